package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
)

// Repository persists products and categories.
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

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// UpdateProductColumns applies the given column changes. Callers never pass
// stock; that column belongs to the inventory ledger.
func (r *Repository) UpdateProductColumns(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

// FindProduct loads a product with its category.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns one page of products and the unpaged total.
func (r *Repository) ListProducts(ctx context.Context, filters ListFilters) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.CategoryID != nil {
		query = query.Where("category_id = ?", *filters.CategoryID)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := query.
		Preload("Category").
		Order("created_at DESC").
		Order("id").
		Scopes(filters.Pagination.Scope()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *Repository) UpdateCategoryColumns(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Category{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Preload("Children").First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ListRootCategories returns top-level categories with their children.
func (r *Repository) ListRootCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).
		Preload("Children", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Where("parent_id IS NULL").
		Order("name").
		Find(&rows).Error
	return rows, err
}
