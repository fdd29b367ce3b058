package orders

import (
	"github.com/google/uuid"

	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
)

func errNoItems() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "no items to order")
}

func errInvalidItem(index int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "each item needs a productId and a positive quantity").
		WithDetails(map[string]any{"index": index})
}

func errProductNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "one or more products not found")
}

func errInactiveProduct(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
		WithDetails(map[string]any{"productId": productID})
}

func errInsufficientStock(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
		WithDetails(map[string]any{"productId": productID})
}

func errOrderNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func errAddressNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
}

func errUnauthorized() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
}

func errForbidden(message string) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, message)
}
