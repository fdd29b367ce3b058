package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ironmonger/hardware-backend/internal/products"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
)

type AddItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0,lte=10000"`
}

type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"required,gt=0,lte=10000"`
}

type ItemDTO struct {
	ID        uuid.UUID            `json:"id"`
	ProductID uuid.UUID            `json:"productId"`
	Quantity  int                  `json:"quantity"`
	LineTotal decimal.Decimal      `json:"lineTotal"`
	Product   *products.ProductDTO `json:"product,omitempty"`
}

// CartDTO prices lines at the current product price. Orders snapshot their own.
type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Items     []ItemDTO       `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"createdAt"`
}

func ItemFromModel(m *models.CartItem) *ItemDTO {
	if m == nil {
		return nil
	}
	dto := &ItemDTO{
		ID:        m.ID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		LineTotal: decimal.Zero,
		Product:   products.FromModel(m.Product),
	}
	if m.Product != nil {
		dto.LineTotal = m.Product.Price.Mul(decimal.NewFromInt(int64(m.Quantity)))
	}
	return dto
}

func FromModel(m *models.Cart) *CartDTO {
	if m == nil {
		return nil
	}
	dto := &CartDTO{
		ID:        m.ID,
		UserID:    m.UserID,
		Items:     make([]ItemDTO, 0, len(m.Items)),
		Subtotal:  decimal.Zero,
		CreatedAt: m.CreatedAt,
	}
	for i := range m.Items {
		item := ItemFromModel(&m.Items[i])
		dto.Items = append(dto.Items, *item)
		dto.Subtotal = dto.Subtotal.Add(item.LineTotal)
	}
	dto.Subtotal = dto.Subtotal.Round(2)
	return dto
}
