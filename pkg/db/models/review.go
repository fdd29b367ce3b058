package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a single user's rating of a product.
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_reviews_product_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_reviews_product_user"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
