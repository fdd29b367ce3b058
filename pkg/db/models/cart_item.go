package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one product line inside a cart.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_product"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_product"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Quantity  int       `gorm:"column:quantity;not null"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
