package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a delivery destination saved by a user.
type Address struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	User        *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AddressLine string    `gorm:"column:address_line;not null"`
	City        string    `gorm:"column:city;not null"`
	Pincode     string    `gorm:"column:pincode;not null"`
	State       string    `gorm:"column:state;not null"`
	Landmark    *string   `gorm:"column:landmark"`
	IsDefault   bool      `gorm:"column:is_default;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
