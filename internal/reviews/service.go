package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

type Service interface {
	List(ctx context.Context, productID uuid.UUID, params ListParams) (pagination.Page[ReviewDTO], error)
	Upsert(ctx context.Context, identity pkgAuth.Identity, productID uuid.UUID, input UpsertReviewInput) (*ReviewDTO, error)
	Delete(ctx context.Context, identity pkgAuth.Identity, reviewID uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, productID uuid.UUID, params ListParams) (pagination.Page[ReviewDTO], error) {
	page := pagination.Normalize(params.Pagination)
	rows, total, err := s.repo.ListByProduct(ctx, productID, page)
	if err != nil {
		return pagination.Page[ReviewDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return pagination.NewPage(out, page, total), nil
}

func (s *service) Upsert(ctx context.Context, identity pkgAuth.Identity, productID uuid.UUID, input UpsertReviewInput) (*ReviewDTO, error) {
	if !identity.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if identity.Role != enums.UserRoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can review products")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be an integer 1-5")
	}
	exists, err := s.repo.ProductExists(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    identity.UserID,
		Rating:    input.Rating,
	}
	if input.Comment != nil {
		if trimmed := strings.TrimSpace(*input.Comment); trimmed != "" {
			review.Comment = &trimmed
		}
	}
	if err := s.repo.Upsert(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save review")
	}
	stored, err := s.repo.FindByProductAndUser(ctx, productID, identity.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload review")
	}
	return FromModel(stored), nil
}

// Delete removes a review. Authors may delete their own; admins any.
func (s *service) Delete(ctx context.Context, identity pkgAuth.Identity, reviewID uuid.UUID) error {
	if !identity.Valid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	review, err := s.repo.Find(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
	}
	if !identity.IsAdmin() && !identity.Owns(review.UserID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
	}
	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
	}
	return nil
}
