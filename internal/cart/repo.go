package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
)

// Repository exposes persistence operations for carts and their items.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// EnsureCart returns the user's cart, creating it on first use. Concurrent
// first calls converge on the single row the unique index allows.
func (r *Repository) EnsureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Omit("User", "Items").
		Create(&cart).Error
	if err != nil {
		return nil, err
	}
	var stored models.Cart
	if err := r.db.WithContext(ctx).First(&stored, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// FindWithItems loads the cart with items and their products.
func (r *Repository) FindWithItems(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product").
		First(&cart, "id = ?", cartID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// AddQuantity inserts the line or increments the existing one for the product.
func (r *Repository) AddQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	item := models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity": gorm.Expr("cart_items.quantity + ?", quantity),
			}),
		}).
		Omit("Product").
		Create(&item).Error
}

// FindOwnedItem loads an item only when it sits in the user's cart.
func (r *Repository) FindOwnedItem(ctx context.Context, itemID, userID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) SetQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		UpdateColumn("quantity", quantity).Error
}

func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", itemID).Error
}

func (r *Repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
