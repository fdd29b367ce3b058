package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
)

// Service manages the caller's single open cart.
type Service interface {
	Get(ctx context.Context, identity pkgAuth.Identity) (*CartDTO, error)
	AddItem(ctx context.Context, identity pkgAuth.Identity, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, identity pkgAuth.Identity, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, identity pkgAuth.Identity, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, identity pkgAuth.Identity) (*CartDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, identity pkgAuth.Identity) (*CartDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	cart, err := s.repo.EnsureCart(ctx, identity.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return s.load(ctx, cart.ID)
}

// AddItem increments the line for the product when one exists. Stock is
// checked at placement, not here.
func (s *service) AddItem(ctx context.Context, identity pkgAuth.Identity, input AddItemInput) (*CartDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	if input.ProductID == uuid.Nil || input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId and a positive quantity are required")
	}

	var cartID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProduct(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"productId": product.ID})
		}
		cart, err := repo.EnsureCart(ctx, identity.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		cartID = cart.ID
		if err := repo.AddQuantity(ctx, cart.ID, product.ID, input.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, cartID)
}

func (s *service) UpdateItem(ctx context.Context, identity pkgAuth.Identity, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	item, err := s.repo.FindOwnedItem(ctx, itemID, identity.UserID)
	if err != nil {
		return nil, itemLoadError(err)
	}
	if err := s.repo.SetQuantity(ctx, item.ID, input.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	return s.load(ctx, item.CartID)
}

func (s *service) RemoveItem(ctx context.Context, identity pkgAuth.Identity, itemID uuid.UUID) (*CartDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	item, err := s.repo.FindOwnedItem(ctx, itemID, identity.UserID)
	if err != nil {
		return nil, itemLoadError(err)
	}
	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	return s.load(ctx, item.CartID)
}

func (s *service) Clear(ctx context.Context, identity pkgAuth.Identity) (*CartDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	cart, err := s.repo.EnsureCart(ctx, identity.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return s.load(ctx, cart.ID)
}

func (s *service) load(ctx context.Context, cartID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindWithItems(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return FromModel(cart), nil
}

func itemLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
}

func errUnauthorized() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
}
