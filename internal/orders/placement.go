package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/internal/inventory"
	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/outbox"
	"github.com/ironmonger/hardware-backend/pkg/outbox/payloads"
)

// OrderStockReason is the inventory log reason written for placement decrements.
const OrderStockReason = "order"

// PlaceOrder validates the requested lines against a product snapshot, then
// creates the order, its items, the stock decrements, the delivery row and
// the order_created event in one transaction.
func (s *service) PlaceOrder(ctx context.Context, identity pkgAuth.Identity, req PlaceOrderRequest) (*OrderDTO, error) {
	orderID, err := s.placeOrder(ctx, identity, req)
	if err != nil {
		s.metrics.IncOrderRejected(string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncOrderPlaced()
	return s.loadOrder(ctx, orderID)
}

func (s *service) placeOrder(ctx context.Context, identity pkgAuth.Identity, req PlaceOrderRequest) (uuid.UUID, error) {
	if !identity.Valid() {
		return uuid.Nil, errUnauthorized()
	}
	if identity.Role != enums.UserRoleCustomer {
		return uuid.Nil, errForbidden("only customers can place orders")
	}

	method := enums.PaymentMethodCOD
	if raw := strings.TrimSpace(req.PaymentMethod); raw != "" {
		parsed, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
		}
		method = parsed
	}

	lines := req.Items
	var cartID *uuid.UUID
	if len(lines) == 0 {
		cart, err := s.repo.FindCartWithItems(ctx, identity.UserID)
		switch {
		case err == nil:
			cartID = &cart.ID
			for _, item := range cart.Items {
				lines = append(lines, ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
	}
	if len(lines) == 0 {
		return uuid.Nil, errNoItems()
	}

	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for i, line := range lines {
		if line.ProductID == uuid.Nil || line.Quantity <= 0 {
			return uuid.Nil, errInvalidItem(i)
		}
		if _, ok := seen[line.ProductID]; !ok {
			seen[line.ProductID] = struct{}{}
			ids = append(ids, line.ProductID)
		}
	}

	found, err := s.repo.FindProductsByIDs(ctx, ids)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	if len(found) != len(ids) {
		return uuid.Nil, errProductNotFound()
	}
	snapshot := make(map[uuid.UUID]models.Product, len(found))
	for _, p := range found {
		snapshot[p.ID] = p
	}

	requested := make(map[uuid.UUID]int, len(ids))
	total := decimal.Zero
	for _, line := range lines {
		product := snapshot[line.ProductID]
		if !product.IsActive {
			return uuid.Nil, errInactiveProduct(product.ID)
		}
		if product.Stock < line.Quantity {
			return uuid.Nil, errInsufficientStock(product.ID)
		}
		requested[product.ID] += line.Quantity
		if product.Stock < requested[product.ID] {
			return uuid.Nil, errInsufficientStock(product.ID)
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	order := &models.Order{
		UserID:        identity.UserID,
		Status:        enums.OrderStatusPending,
		PaymentMethod: method,
		PaymentStatus: enums.PaymentStatusUnpaid,
		TotalAmount:   total.Round(2),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if req.AddressID != nil {
			if _, err := repo.FindAddressForUser(ctx, *req.AddressID, identity.UserID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errAddressNotFound()
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
			}
			order.AddressID = req.AddressID
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(lines))
		eventLines := make([]payloads.OrderLine, 0, len(lines))
		for i, line := range lines {
			price := snapshot[line.ProductID].Price
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     price,
				LineNo:    i,
			})
			eventLines = append(eventLines, payloads.OrderLine{ProductID: line.ProductID, Quantity: line.Quantity, Price: price})
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}

		for _, line := range lines {
			_, err := s.ledger.Apply(ctx, tx, line.ProductID, -line.Quantity, OrderStockReason)
			switch {
			case err == nil:
			case errors.Is(err, inventory.ErrInsufficientStock):
				return errInsufficientStock(line.ProductID)
			case errors.Is(err, gorm.ErrRecordNotFound):
				return errProductNotFound()
			default:
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
		}

		delivery := &models.Delivery{
			OrderID:    order.ID,
			Status:     enums.DeliveryStatusAssigned,
			AssignedAt: s.now(),
		}
		if err := repo.CreateDelivery(ctx, delivery); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create delivery")
		}

		if cartID != nil {
			if err := repo.ClearCart(ctx, *cartID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
			}
		}

		return s.emit(ctx, tx, identity, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				DeliveryID:    delivery.ID,
				PaymentMethod: order.PaymentMethod,
				TotalAmount:   order.TotalAmount,
				Items:         eventLines,
			},
		})
	})
	if err != nil {
		return uuid.Nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"user_id":      identity.UserID.String(),
			"items":        len(lines),
			"total_amount": order.TotalAmount.String(),
			"from_cart":    cartID != nil,
		})
		s.logg.Info(logCtx, "order.placed")
	}
	return order.ID, nil
}
