package auth

import (
	"github.com/ironmonger/hardware-backend/internal/users"
	"github.com/ironmonger/hardware-backend/pkg/enums"
)

// RegisterRequest is the public sign-up payload. Either email or phone is required.
type RegisterRequest struct {
	Name     string         `json:"name" validate:"required,max=120"`
	Email    *string        `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone    *string        `json:"phone,omitempty" validate:"omitempty,phone"`
	Password string         `json:"password" validate:"required"`
	Role     enums.UserRole `json:"role,omitempty"`
}

// LoginRequest identifies the user by email or phone.
type LoginRequest struct {
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token paired with the expired access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.UserDTO `json:"user,omitempty"`
}
