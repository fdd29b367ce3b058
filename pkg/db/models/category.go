package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups products; categories nest one level through ParentID.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Description *string    `gorm:"column:description"`
	Image       string     `gorm:"column:image;not null"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex:ux_categories_slug"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid;index"`
	Children    []Category `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
