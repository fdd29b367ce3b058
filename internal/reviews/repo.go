package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error
	return count > 0, err
}

// Upsert keeps one review per (product, user); a second submission replaces
// rating and comment.
func (r *Repository) Upsert(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comment"}),
		}).
		Omit("User").
		Create(review).Error
}

func (r *Repository) FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Preload("User").
		First(&review, "product_id = ? AND user_id = ?", productID, userID).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id).Error
}

// ListByProduct returns newest reviews first with their authors.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Review{}).Where("product_id = ?", productID).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Review
	err := query.Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Scopes(params.Scope()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
