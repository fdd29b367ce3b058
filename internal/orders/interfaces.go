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

// Repository defines persistence operations for orders and the rows placed with them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindCartWithItems(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
	FindAddressForUser(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID *uuid.UUID, params pagination.Params) ([]models.Order, int64, error)
	UpdatePayment(ctx context.Context, orderID uuid.UUID, from enums.PaymentStatus, updates map[string]any) (int64, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, status enums.OrderStatus, at time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockLedger moves stock and appends the inventory log inside the caller's tx.
type stockLedger interface {
	Apply(ctx context.Context, tx *gorm.DB, productID uuid.UUID, change int, reason string) (*models.InventoryLog, error)
}
