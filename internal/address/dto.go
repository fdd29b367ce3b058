package address

import (
	"time"

	"github.com/google/uuid"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
)

// AddressDTO is the public address shape.
type AddressDTO struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	AddressLine string    `json:"addressLine"`
	City        string    `json:"city"`
	Pincode     string    `json:"pincode"`
	State       string    `json:"state"`
	Landmark    *string   `json:"landmark,omitempty"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CreateAddressInput struct {
	AddressLine string  `json:"addressLine" validate:"required,max=500"`
	City        string  `json:"city" validate:"required,max=120"`
	Pincode     string  `json:"pincode" validate:"required,max=12"`
	State       string  `json:"state" validate:"required,max=120"`
	Landmark    *string `json:"landmark,omitempty" validate:"omitempty,max=200"`
	IsDefault   bool    `json:"isDefault"`
}

type UpdateAddressInput struct {
	AddressLine *string `json:"addressLine,omitempty" validate:"omitempty,max=500"`
	City        *string `json:"city,omitempty" validate:"omitempty,max=120"`
	Pincode     *string `json:"pincode,omitempty" validate:"omitempty,max=12"`
	State       *string `json:"state,omitempty" validate:"omitempty,max=120"`
	Landmark    *string `json:"landmark,omitempty" validate:"omitempty,max=200"`
	IsDefault   *bool   `json:"isDefault,omitempty"`
}

func FromModel(m *models.Address) *AddressDTO {
	if m == nil {
		return nil
	}
	return &AddressDTO{
		ID:          m.ID,
		UserID:      m.UserID,
		AddressLine: m.AddressLine,
		City:        m.City,
		Pincode:     m.Pincode,
		State:       m.State,
		Landmark:    m.Landmark,
		IsDefault:   m.IsDefault,
		CreatedAt:   m.CreatedAt,
	}
}
