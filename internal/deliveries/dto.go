package deliveries

import (
	"time"

	"github.com/google/uuid"

	"github.com/ironmonger/hardware-backend/internal/orders"
	"github.com/ironmonger/hardware-backend/internal/users"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

type AssignRequest struct {
	OrderID          uuid.UUID `json:"orderId" validate:"required"`
	DeliveryPersonID uuid.UUID `json:"deliveryPersonId" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ListParams struct {
	IncludeDelivered bool
	Pagination       pagination.Params
}

// DeliveryDTO is a delivery row with the order it fulfils.
type DeliveryDTO struct {
	ID               uuid.UUID            `json:"id"`
	OrderID          uuid.UUID            `json:"orderId"`
	DeliveryPersonID *uuid.UUID           `json:"deliveryPersonId,omitempty"`
	DeliveryPerson   *users.Summary       `json:"deliveryPerson,omitempty"`
	Status           enums.DeliveryStatus `json:"status"`
	AssignedAt       time.Time            `json:"assignedAt"`
	DeliveredAt      *time.Time           `json:"deliveredAt,omitempty"`
	Order            *orders.OrderDTO     `json:"order,omitempty"`
}

func FromModel(d *models.Delivery) *DeliveryDTO {
	if d == nil {
		return nil
	}
	return &DeliveryDTO{
		ID:               d.ID,
		OrderID:          d.OrderID,
		DeliveryPersonID: d.DeliveryPersonID,
		DeliveryPerson:   users.SummaryFromModel(d.DeliveryPerson),
		Status:           d.Status,
		AssignedAt:       d.AssignedAt,
		DeliveredAt:      d.DeliveredAt,
		Order:            orders.FromModel(d.Order),
	}
}
