package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/enums"
)

// Order is a placed purchase. TotalAmount is fixed at creation.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	User          *User               `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AddressID     *uuid.UUID          `gorm:"column:address_id;type:uuid"`
	Address       *Address            `gorm:"foreignKey:AddressID;constraint:OnDelete:SET NULL"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Delivery      *Delivery           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots the unit price paid for a product.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	LineNo    int             `gorm:"column:line_no;not null;default:0"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal returns price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
