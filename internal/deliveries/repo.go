package deliveries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

// Repository defines persistence for delivery rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error)
	FindForCourier(ctx context.Context, orderID, courierID uuid.UUID) (*models.Delivery, error)
	FindDetail(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error)
	Assign(ctx context.Context, deliveryID, courierID uuid.UUID, at time.Time) (int64, error)
	UpdateStatus(ctx context.Context, deliveryID uuid.UUID, from, to enums.DeliveryStatus, at time.Time) (int64, error)
	List(ctx context.Context, filter listFilter) ([]models.Delivery, int64, error)
}

type listFilter struct {
	CourierID        *uuid.UUID
	IncludeDelivered bool
	Pagination       pagination.Params
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.db.WithContext(ctx).First(&delivery, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

// FindForCourier matches on the order and the assigned courier together.
func (r *repository) FindForCourier(ctx context.Context, orderID, courierID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		First(&delivery, "order_id = ? AND delivery_person_id = ?", orderID, courierID).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) FindDetail(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := detailScope(r.db.WithContext(ctx)).First(&delivery, "id = ?", deliveryID).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) Assign(ctx context.Context, deliveryID, courierID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ?", deliveryID).
		UpdateColumns(map[string]any{"delivery_person_id": courierID, "assigned_at": at})
	return res.RowsAffected, res.Error
}

// UpdateStatus moves the row from one status to the next. delivered_at is
// stamped the first time the row reaches delivered and never overwritten.
func (r *repository) UpdateStatus(ctx context.Context, deliveryID uuid.UUID, from, to enums.DeliveryStatus, at time.Time) (int64, error) {
	updates := map[string]any{"status": to}
	if to == enums.DeliveryStatusDelivered {
		updates["delivered_at"] = gorm.Expr("COALESCE(delivered_at, ?)", at)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND status = ?", deliveryID, from).
		UpdateColumns(updates)
	return res.RowsAffected, res.Error
}

// List orders open deliveries first, then the most recently assigned.
func (r *repository) List(ctx context.Context, filter listFilter) ([]models.Delivery, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Delivery{})
	if filter.CourierID != nil {
		query = query.Where("delivery_person_id = ?", *filter.CourierID)
	}
	if !filter.IncludeDelivered {
		query = query.Where("delivered_at IS NULL")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Delivery
	err := detailScope(query).
		Order("CASE WHEN delivered_at IS NULL THEN 0 ELSE 1 END").
		Order("delivered_at ASC").
		Order("assigned_at DESC").
		Scopes(filter.Pagination.Scope()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func detailScope(db *gorm.DB) *gorm.DB {
	return db.
		Preload("DeliveryPerson").
		Preload("Order").
		Preload("Order.Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Preload("Order.Items.Product").
		Preload("Order.Address").
		Preload("Order.User")
}
