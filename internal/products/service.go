package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/db"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

// InitialStockReason is recorded on the ledger entry that opens a product's stock.
const InitialStockReason = "initial stock"

// Service exposes catalog reads and admin catalog management.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*CategoryDTO, error)
	CreateCategory(ctx context.Context, identity pkgAuth.Identity, input CreateCategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID) error

	ListProducts(ctx context.Context, filters ListFilters) (pagination.Page[ProductDTO], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, identity pkgAuth.Identity, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockLedger is the inventory write primitive; it must run inside tx.
type stockLedger interface {
	Apply(ctx context.Context, tx *gorm.DB, productID uuid.UUID, change int, reason string) (*models.InventoryLog, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	ledger stockLedger
}

func NewService(repo *Repository, tx txRunner, ledger stockLedger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListRootCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *CategoryFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*CategoryDTO, error) {
	category, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "load category")
	}
	return CategoryFromModel(category), nil
}

func (s *service) CreateCategory(ctx context.Context, identity pkgAuth.Identity, input CreateCategoryInput) (*CategoryDTO, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	slug := normalizeSlug(input.Slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	if input.ParentID != nil {
		if err := s.ensureCategory(ctx, *input.ParentID, "parent category not found"); err != nil {
			return nil, err
		}
	}

	category := &models.Category{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Image:       strings.TrimSpace(input.Image),
		Slug:        slug,
		ParentID:    input.ParentID,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, mapWriteError(err, "category slug already exists", "create category")
	}
	return CategoryFromModel(category), nil
}

func (s *service) UpdateCategory(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, id, "category not found"); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Image != nil {
		updates["image"] = strings.TrimSpace(*input.Image)
	}
	if input.Slug != nil {
		slug := normalizeSlug(*input.Slug)
		if slug == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug cannot be empty")
		}
		updates["slug"] = slug
	}
	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
		}
		if err := s.ensureCategory(ctx, *input.ParentID, "parent category not found"); err != nil {
			return nil, err
		}
		updates["parent_id"] = *input.ParentID
	}

	if len(updates) > 0 {
		if _, err := s.repo.UpdateCategoryColumns(ctx, id, updates); err != nil {
			return nil, mapWriteError(err, "category slug already exists", "update category")
		}
	}
	return s.GetCategory(ctx, id)
}

func (s *service) DeleteCategory(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}
	affected, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		return mapWriteError(err, "category is still referenced", "delete category")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}

func (s *service) ListProducts(ctx context.Context, filters ListFilters) (pagination.Page[ProductDTO], error) {
	filters.Pagination = pagination.Normalize(filters.Pagination)
	rows, total, err := s.repo.ListProducts(ctx, filters)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return pagination.NewPage(out, filters.Pagination, total), nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	return FromModel(product), nil
}

// CreateProduct inserts the product at stock zero and books any opening
// stock as a ledger entry in the same transaction.
func (s *service) CreateProduct(ctx context.Context, identity pkgAuth.Identity, input CreateProductInput) (*ProductDTO, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID, "category not found"); err != nil {
			return nil, err
		}
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	product := &models.Product{
		Name:        name,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Price:       input.Price.Round(2),
		Stock:       0,
		Unit:        input.Unit,
		Brand:       input.Brand,
		ImageURL:    input.ImageURL,
		IsActive:    isActive,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateProduct(ctx, product); err != nil {
			return mapWriteError(err, "product already exists", "create product")
		}
		if input.Stock > 0 {
			if _, err := s.ledger.Apply(ctx, tx, product.ID, input.Stock, InitialStockReason); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record initial stock")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindProduct(ctx, id); err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID, "category not found"); err != nil {
			return nil, err
		}
		updates["category_id"] = *input.CategoryID
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.Unit != nil {
		updates["unit"] = *input.Unit
	}
	if input.Brand != nil {
		updates["brand"] = *input.Brand
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if _, err := s.repo.UpdateProductColumns(ctx, id, updates); err != nil {
			return nil, mapWriteError(err, "product already exists", "update product")
		}
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct refuses products that appear on orders; the order_items
// foreign key restricts the delete.
func (s *service) DeleteProduct(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}
	affected, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return mapWriteError(err, "product is referenced by orders", "delete product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) ensureCategory(ctx context.Context, id uuid.UUID, notFoundMsg string) error {
	if _, err := s.repo.FindCategory(ctx, id); err != nil {
		return notFoundOr(err, notFoundMsg, "load category")
	}
	return nil
}

func requireAdmin(identity pkgAuth.Identity) error {
	if !identity.Valid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !identity.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func mapWriteError(err error, conflictMsg, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsUniqueViolation(err, "") || db.IsForeignKeyViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, conflictMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func normalizeSlug(value string) string {
	fields := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}
