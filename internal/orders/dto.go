package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ironmonger/hardware-backend/internal/address"
	"github.com/ironmonger/hardware-backend/internal/products"
	"github.com/ironmonger/hardware-backend/internal/users"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

// ItemInput is one requested line. Validation happens in the service so the
// error codes match the placement rules rather than generic binding errors.
type ItemInput struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// PlaceOrderRequest places an order from explicit items or, when Items is
// empty, from the caller's cart.
type PlaceOrderRequest struct {
	AddressID     *uuid.UUID  `json:"addressId,omitempty"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
	Items         []ItemInput `json:"items,omitempty"`
}

type SetPaymentRequest struct {
	Status string  `json:"paymentStatus" validate:"required"`
	Method *string `json:"paymentMethod,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ListParams struct {
	Pagination pagination.Params
}

type OrderItemDTO struct {
	ID        uuid.UUID            `json:"id"`
	ProductID uuid.UUID            `json:"productId"`
	Quantity  int                  `json:"quantity"`
	Price     decimal.Decimal      `json:"price"`
	LineTotal decimal.Decimal      `json:"lineTotal"`
	Product   *products.ProductDTO `json:"product,omitempty"`
}

// DeliveryInfo is the delivery leg as seen from an order.
type DeliveryInfo struct {
	ID               uuid.UUID            `json:"id"`
	DeliveryPersonID *uuid.UUID           `json:"deliveryPersonId,omitempty"`
	Status           enums.DeliveryStatus `json:"status"`
	AssignedAt       time.Time            `json:"assignedAt"`
	DeliveredAt      *time.Time           `json:"deliveredAt,omitempty"`
}

type OrderDTO struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"userId"`
	User          *users.Summary      `json:"user,omitempty"`
	AddressID     *uuid.UUID          `json:"addressId,omitempty"`
	Address       *address.AddressDTO `json:"address,omitempty"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	Items         []OrderItemDTO      `json:"items"`
	Delivery      *DeliveryInfo       `json:"delivery,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:            o.ID,
		UserID:        o.UserID,
		User:          users.SummaryFromModel(o.User),
		AddressID:     o.AddressID,
		Address:       address.FromModel(o.Address),
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		TotalAmount:   o.TotalAmount,
		Items:         make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for i := range o.Items {
		item := o.Items[i]
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			LineTotal: item.LineTotal(),
			Product:   products.FromModel(item.Product),
		})
	}
	if d := o.Delivery; d != nil {
		dto.Delivery = &DeliveryInfo{
			ID:               d.ID,
			DeliveryPersonID: d.DeliveryPersonID,
			Status:           d.Status,
			AssignedAt:       d.AssignedAt,
			DeliveredAt:      d.DeliveredAt,
		}
	}
	return dto
}
