package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/internal/users"
	"github.com/ironmonger/hardware-backend/pkg/db"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/security"
)

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	email := normalizeOptional(req.Email, strings.ToLower)
	phone := normalizeOptional(req.Phone, nil)
	if email == nil && phone == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email or phone is required")
	}

	role := req.Role
	switch role {
	case "":
		role = enums.UserRoleCustomer
	case enums.UserRoleCustomer, enums.UserRoleDelivery:
	case enums.UserRoleAdmin:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role cannot be self-assigned")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	if err := security.CheckPasswordPolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	if email != nil {
		if err := s.ensureUnused(ctx, s.users.FindByEmail, *email, "email already registered"); err != nil {
			return nil, err
		}
	}
	if phone != nil {
		if err := s.ensureUnused(ctx, s.users.FindByPhone, *phone, "phone already registered"); err != nil {
			return nil, err
		}
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		Role:         role,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "user already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return users.FromModel(user), nil
}

func (s *service) ensureUnused(ctx context.Context, find userFinder, value, conflictMsg string) error {
	if _, err := find(ctx, value); err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, conflictMsg)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing user")
	}
	return nil
}

func normalizeOptional(value *string, transform func(string) string) *string {
	if value == nil {
		return nil
	}
	clean := strings.TrimSpace(*value)
	if clean == "" {
		return nil
	}
	if transform != nil {
		clean = transform(clean)
	}
	return &clean
}
