package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ironmonger/hardware-backend/pkg/enums"
)

// OrderLine is one priced line of a placed order.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderCreatedEvent is emitted once an order, its items and its delivery row commit.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	DeliveryID    uuid.UUID           `json:"delivery_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Items         []OrderLine         `json:"items"`
}

// OrderStatusChangedEvent records an admin moving an order through fulfilment.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
}

// OrderPaymentUpdatedEvent records a payment status transition.
type OrderPaymentUpdatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	From          enums.PaymentStatus `json:"from"`
	To            enums.PaymentStatus `json:"to"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}

// DeliveryAssignedEvent is emitted whenever an admin (re)assigns a courier.
type DeliveryAssignedEvent struct {
	DeliveryID       uuid.UUID  `json:"delivery_id"`
	OrderID          uuid.UUID  `json:"order_id"`
	DeliveryPersonID uuid.UUID  `json:"delivery_person_id"`
	PreviousPersonID *uuid.UUID `json:"previous_person_id,omitempty"`
}

// DeliveryStatusChangedEvent records a courier progressing a delivery.
type DeliveryStatusChangedEvent struct {
	DeliveryID  uuid.UUID            `json:"delivery_id"`
	OrderID     uuid.UUID            `json:"order_id"`
	From        enums.DeliveryStatus `json:"from"`
	To          enums.DeliveryStatus `json:"to"`
	DeliveredAt *time.Time           `json:"delivered_at,omitempty"`
}

// InventoryAdjustedEvent mirrors an inventory_logs row together with the resulting stock.
type InventoryAdjustedEvent struct {
	ProductID  uuid.UUID `json:"product_id"`
	LogID      uuid.UUID `json:"log_id"`
	Change     int       `json:"change"`
	StockAfter int       `json:"stock_after"`
	Reason     *string   `json:"reason,omitempty"`
}
