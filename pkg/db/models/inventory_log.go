package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryLog is an append-only stock delta.
type InventoryLog struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:ix_inventory_logs_product_created"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Change    int       `gorm:"column:change;not null"`
	Reason    *string   `gorm:"column:reason"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:ix_inventory_logs_product_created"`
}

func (l *InventoryLog) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
