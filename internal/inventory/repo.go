package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
)

// Repository owns the stock column and the inventory_logs table.
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

// ApplyDelta adds change to the product's stock only when the result stays
// non-negative. It reports the rows touched; zero means the guard failed or
// the product is missing.
func (r *Repository) ApplyDelta(ctx context.Context, productID uuid.UUID, change int, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", productID, change).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock + ?", change),
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) InsertLog(ctx context.Context, entry *models.InventoryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListLogs returns one page of ledger rows, newest first, and the unpaged total.
func (r *Repository) ListLogs(ctx context.Context, filter LogFilter) ([]models.InventoryLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryLog{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InventoryLog
	err := query.
		Preload("Product").
		Order("created_at DESC").
		Order("id DESC").
		Scopes(filter.Pagination.Scope()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// StockDrift is a product whose stock column disagrees with its ledger.
type StockDrift struct {
	ProductID uuid.UUID `gorm:"column:product_id"`
	Stock     int       `gorm:"column:stock"`
	LedgerSum int       `gorm:"column:ledger_sum"`
}

// FindStockDrift lists products where stock != SUM(inventory_logs.change).
func (r *Repository) FindStockDrift(ctx context.Context) ([]StockDrift, error) {
	var rows []StockDrift
	err := r.db.WithContext(ctx).
		Table("products AS p").
		Select("p.id AS product_id, p.stock AS stock, COALESCE(l.total, 0) AS ledger_sum").
		Joins("LEFT JOIN (SELECT product_id, SUM(change) AS total FROM inventory_logs GROUP BY product_id) AS l ON l.product_id = p.id").
		Where("p.stock <> COALESCE(l.total, 0)").
		Order("p.id ASC").
		Scan(&rows).Error
	return rows, err
}
