package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
)

// Repository reads and writes the users table. Lookups return
// gorm.ErrRecordNotFound untouched so callers can map it themselves.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects an already lower-cased address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.first(ctx, "phone = ?", phone)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, cond string, arg any) (*models.User, error) {
	user := new(models.User)
	if err := r.db.WithContext(ctx).Where(cond, arg).Take(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
