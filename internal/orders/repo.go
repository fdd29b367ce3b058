package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindCartWithItems returns the user's cart, or gorm.ErrRecordNotFound when none was created yet.
func (r *repository) FindCartWithItems(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		First(&cart, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

func (r *repository) FindAddressForUser(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	if err := r.db.WithContext(ctx).First(&addr, "id = ? AND user_id = ?", addressID, userID).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items", "Delivery", "User", "Address").Create(order).Error
}

func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Product").Create(&items).Error
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Omit("Order", "DeliveryPerson").Create(delivery).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderDetail loads an order with items, their products, the address,
// the delivery row and the buyer.
func (r *repository) FindOrderDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := detailScope(r.db.WithContext(ctx)).First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns newest orders first. A nil userID lists every order.
func (r *repository) ListOrders(ctx context.Context, userID *uuid.UUID, params pagination.Params) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Order
	err := detailScope(query).
		Order("created_at DESC").
		Order("id DESC").
		Scopes(params.Scope()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdatePayment applies updates only while the payment status is still from.
func (r *repository) UpdatePayment(ctx context.Context, orderID uuid.UUID, from enums.PaymentStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, status enums.OrderStatus, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		UpdateColumns(map[string]any{"status": status, "updated_at": at})
	return res.RowsAffected, res.Error
}

func detailScope(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Preload("Items.Product").
		Preload("Address").
		Preload("Delivery").
		Preload("User")
}
