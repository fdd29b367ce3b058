package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/internal/products"
	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/metrics"
	"github.com/ironmonger/hardware-backend/pkg/outbox"
	"github.com/ironmonger/hardware-backend/pkg/outbox/payloads"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

var (
	// ErrInsufficientStock means the conditional stock update matched no row
	// for an existing product.
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrZeroChange        = errors.New("stock change must be nonzero")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the only writer of products.stock.
type Service struct {
	repo    *Repository
	tx      txRunner
	events  outbox.Emitter
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	now     func() time.Time
}

type ServiceParams struct {
	Repo    *Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Service{
		repo:    params.Repo,
		tx:      params.Tx,
		events:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Apply moves stock by change and appends the matching ledger row inside tx.
// It returns ErrInsufficientStock when the guard fails and
// gorm.ErrRecordNotFound when the product does not exist.
func (s *Service) Apply(ctx context.Context, tx *gorm.DB, productID uuid.UUID, change int, reason string) (*models.InventoryLog, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if change == 0 {
		return nil, ErrZeroChange
	}
	repo := s.repo.WithTx(tx)

	affected, err := repo.ApplyDelta(ctx, productID, change, s.now())
	if err != nil {
		return nil, fmt.Errorf("apply stock delta: %w", err)
	}
	if affected == 0 {
		if _, err := repo.FindProduct(ctx, productID); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientStock
	}

	entry := &models.InventoryLog{ProductID: productID, Change: change}
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		entry.Reason = &trimmed
	}
	if err := repo.InsertLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert inventory log: %w", err)
	}

	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventInventoryAdjusted,
		AggregateType: enums.AggregateProduct,
		AggregateID:   productID,
		Data: payloads.InventoryAdjustedEvent{
			ProductID:  productID,
			LogID:      entry.ID,
			Change:     change,
			StockAfter: product.Stock,
			Reason:     entry.Reason,
		},
	}
	if err := s.events.Emit(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("emit inventory event: %w", err)
	}
	return entry, nil
}

// AdjustStock applies an admin correction in its own transaction.
func (s *Service) AdjustStock(ctx context.Context, identity pkgAuth.Identity, req AdjustRequest) (*AdjustResult, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	if req.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if req.Change == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "change must be a nonzero integer")
	}
	reason := ""
	if req.Reason != nil {
		reason = *req.Reason
	}

	var entry *models.InventoryLog
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.repo.WithTx(tx).FindProduct(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if product.Stock+req.Change < 0 {
			return negativeStock(req.ProductID, product.Stock, req.Change)
		}

		entry, err = s.Apply(ctx, tx, req.ProductID, req.Change, reason)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrInsufficientStock):
			return negativeStock(req.ProductID, product.Stock, req.Change)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust stock")
		}
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AddStockChange(req.Change)

	product, err := s.repo.FindProduct(ctx, req.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"product_id":  req.ProductID.String(),
			"change":      req.Change,
			"stock_after": product.Stock,
		})
		s.logg.Info(logCtx, "inventory.adjusted")
	}
	return &AdjustResult{Product: products.FromModel(product), Log: LogFromModel(entry)}, nil
}

func (s *Service) ListLogs(ctx context.Context, identity pkgAuth.Identity, filter LogFilter) (pagination.Page[LogDTO], error) {
	if err := requireAdmin(identity); err != nil {
		return pagination.Page[LogDTO]{}, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return pagination.Page[LogDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	filter.Pagination = pagination.Normalize(filter.Pagination)

	rows, total, err := s.repo.ListLogs(ctx, filter)
	if err != nil {
		return pagination.Page[LogDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory logs")
	}
	out := make([]LogDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *LogFromModel(&rows[i]))
	}
	return pagination.NewPage(out, filter.Pagination, total), nil
}

func negativeStock(productID uuid.UUID, stock, change int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot go negative").WithDetails(map[string]any{
		"productId": productID,
		"stock":     stock,
		"change":    change,
	})
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
