package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Email     *string        `json:"email,omitempty"`
	Phone     *string        `json:"phone,omitempty"`
	Role      enums.UserRole `json:"role"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Summary is the trimmed user shape embedded in order and delivery payloads.
type Summary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        *string
	Phone        *string
	PasswordHash string
	Role         enums.UserRole
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func SummaryFromModel(u *models.User) *Summary {
	if u == nil {
		return nil
	}
	return &Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		PasswordHash: c.PasswordHash,
		Role:         role,
	}
}
