package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
)

type Service interface {
	List(ctx context.Context, identity pkgAuth.Identity) ([]AddressDTO, error)
	Create(ctx context.Context, identity pkgAuth.Identity, input CreateAddressInput) (*AddressDTO, error)
	Update(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID, input UpdateAddressInput) (*AddressDTO, error)
	Delete(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context, identity pkgAuth.Identity) ([]AddressDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	rows, err := s.repo.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Create saves a new address. The first address a user saves becomes the default.
func (s *service) Create(ctx context.Context, identity pkgAuth.Identity, input CreateAddressInput) (*AddressDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	addr := &models.Address{
		UserID:      identity.UserID,
		AddressLine: strings.TrimSpace(input.AddressLine),
		City:        strings.TrimSpace(input.City),
		Pincode:     strings.TrimSpace(input.Pincode),
		State:       strings.TrimSpace(input.State),
		Landmark:    trimOptional(input.Landmark),
		IsDefault:   input.IsDefault,
	}
	if addr.AddressLine == "" || addr.City == "" || addr.Pincode == "" || addr.State == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "addressLine, city, pincode and state are required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountByUser(ctx, identity.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count addresses")
		}
		if count == 0 {
			addr.IsDefault = true
		}
		if err := repo.Create(ctx, addr); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
		}
		if addr.IsDefault {
			if err := repo.ClearDefault(ctx, identity.UserID, addr.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear default address")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(addr), nil
}

func (s *service) Update(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID, input UpdateAddressInput) (*AddressDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	updates := map[string]any{}
	for column, value := range map[string]*string{
		"address_line": input.AddressLine,
		"city":         input.City,
		"pincode":      input.Pincode,
		"state":        input.State,
	} {
		if value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, column+" cannot be empty")
		}
		updates[column] = trimmed
	}
	if input.Landmark != nil {
		updates["landmark"] = trimOptional(input.Landmark)
	}
	if input.IsDefault != nil {
		updates["is_default"] = *input.IsDefault
	}

	var updated *models.Address
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindOwned(ctx, id, identity.UserID); err != nil {
			return notFoundOr(err)
		}
		if len(updates) > 0 {
			if err := repo.UpdateColumns(ctx, id, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update address")
			}
		}
		if input.IsDefault != nil && *input.IsDefault {
			if err := repo.ClearDefault(ctx, identity.UserID, id); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear default address")
			}
		}
		addr, err := repo.FindOwned(ctx, id, identity.UserID)
		if err != nil {
			return notFoundOr(err)
		}
		updated = addr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// Delete removes an address. Orders that referenced it keep their history
// with a null address.
func (s *service) Delete(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID) error {
	if !identity.Valid() {
		return errUnauthorized()
	}
	affected, err := s.repo.Delete(ctx, id, identity.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete address")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
}

func errUnauthorized() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
