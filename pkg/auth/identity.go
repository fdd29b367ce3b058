package auth

import (
	"github.com/google/uuid"

	"github.com/ironmonger/hardware-backend/pkg/enums"
)

// Identity is the verified caller every protected operation receives.
type Identity struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == enums.UserRoleAdmin
}

// Owns reports whether the caller is the provided user.
func (i Identity) Owns(userID uuid.UUID) bool {
	return i.UserID != uuid.Nil && i.UserID == userID
}

// Valid reports whether the identity carries a user and a known role.
func (i Identity) Valid() bool {
	return i.UserID != uuid.Nil && i.Role.IsValid()
}
