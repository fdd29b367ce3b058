package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog listing. Stock only changes through inventory logs.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	CategoryID  *uuid.UUID      `gorm:"column:category_id;type:uuid;index"`
	Category    *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int             `gorm:"column:stock;not null;check:chk_products_stock_non_negative,stock >= 0"`
	Unit        *string         `gorm:"column:unit"`
	Brand       *string         `gorm:"column:brand"`
	ImageURL    *string         `gorm:"column:image_url"`
	IsActive    bool            `gorm:"column:is_active;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
