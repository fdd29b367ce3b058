package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/enums"
)

// Delivery tracks the courier leg of exactly one order.
type Delivery struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_deliveries_order"`
	Order            *Order               `gorm:"foreignKey:OrderID"`
	DeliveryPersonID *uuid.UUID           `gorm:"column:delivery_person_id;type:uuid;index"`
	DeliveryPerson   *User                `gorm:"foreignKey:DeliveryPersonID;constraint:OnDelete:SET NULL"`
	Status           enums.DeliveryStatus `gorm:"column:status;type:text;not null"`
	AssignedAt       time.Time            `gorm:"column:assigned_at;not null"`
	DeliveredAt      *time.Time           `gorm:"column:delivered_at"`
}

func (d *Delivery) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
