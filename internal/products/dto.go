package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

// CategoryDTO is the public category shape; Children is only set on listings.
type CategoryDTO struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Image       string        `json:"image"`
	Slug        string        `json:"slug"`
	ParentID    *uuid.UUID    `json:"parentId,omitempty"`
	Children    []CategoryDTO `json:"children,omitempty"`
}

// ProductDTO is the public product shape.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	CategoryID  *uuid.UUID      `json:"categoryId,omitempty"`
	Category    *CategoryDTO    `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Unit        *string         `json:"unit,omitempty"`
	Brand       *string         `json:"brand,omitempty"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CreateCategoryInput is the admin payload for a new category.
type CreateCategoryInput struct {
	Name        string     `json:"name" validate:"required,max=120"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Image       string     `json:"image" validate:"required,max=2048"`
	Slug        string     `json:"slug" validate:"required,max=120"`
	ParentID    *uuid.UUID `json:"parentId,omitempty"`
}

// UpdateCategoryInput carries optional category changes.
type UpdateCategoryInput struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,max=120"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Image       *string    `json:"image,omitempty" validate:"omitempty,max=2048"`
	Slug        *string    `json:"slug,omitempty" validate:"omitempty,max=120"`
	ParentID    *uuid.UUID `json:"parentId,omitempty"`
}

// CreateProductInput is the admin payload for a new product. Stock is the
// opening balance and is written through the inventory ledger.
type CreateProductInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=5000"`
	CategoryID  *uuid.UUID      `json:"categoryId,omitempty"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Unit        *string         `json:"unit,omitempty" validate:"omitempty,max=40"`
	Brand       *string         `json:"brand,omitempty" validate:"omitempty,max=120"`
	ImageURL    *string         `json:"imageUrl,omitempty" validate:"omitempty,max=2048"`
	IsActive    *bool           `json:"isActive,omitempty"`
}

// UpdateProductInput carries optional product changes. Stock is not editable here.
type UpdateProductInput struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	CategoryID  *uuid.UUID       `json:"categoryId,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Unit        *string          `json:"unit,omitempty" validate:"omitempty,max=40"`
	Brand       *string          `json:"brand,omitempty" validate:"omitempty,max=120"`
	ImageURL    *string          `json:"imageUrl,omitempty" validate:"omitempty,max=2048"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

// ListFilters are the browse knobs accepted on GET /products.
type ListFilters struct {
	IsActive   *bool
	CategoryID *uuid.UUID
	Search     string
	Pagination pagination.Params
}

func CategoryFromModel(c *models.Category) *CategoryDTO {
	if c == nil {
		return nil
	}
	dto := &CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Image:       c.Image,
		Slug:        c.Slug,
		ParentID:    c.ParentID,
	}
	for i := range c.Children {
		dto.Children = append(dto.Children, *CategoryFromModel(&c.Children[i]))
	}
	return dto
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Category:    CategoryFromModel(p.Category),
		Price:       p.Price,
		Stock:       p.Stock,
		Unit:        p.Unit,
		Brand:       p.Brand,
		ImageURL:    p.ImageURL,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
