package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
)

// Repository persists the address book.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByUser returns the user's addresses, default first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// FindOwned loads an address only when it belongs to userID.
func (r *Repository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	if err := r.db.WithContext(ctx).First(&addr, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *Repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Address{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *Repository) Create(ctx context.Context, addr *models.Address) error {
	return r.db.WithContext(ctx).Create(addr).Error
}

func (r *Repository) UpdateColumns(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Address{}).Where("id = ?", id).Updates(updates).Error
}

// ClearDefault unsets the default flag on every address of the user except keep.
func (r *Repository) ClearDefault(ctx context.Context, userID, keep uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND id <> ? AND is_default = ?", userID, keep, true).
		Update("is_default", false).Error
}

func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Address{}, "id = ? AND user_id = ?", id, userID)
	return res.RowsAffected, res.Error
}
