package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/metrics"
	"github.com/ironmonger/hardware-backend/pkg/outbox"
	"github.com/ironmonger/hardware-backend/pkg/outbox/payloads"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

// Service exposes order placement and the order lifecycle.
type Service interface {
	PlaceOrder(ctx context.Context, identity pkgAuth.Identity, req PlaceOrderRequest) (*OrderDTO, error)
	SetPaymentStatus(ctx context.Context, identity pkgAuth.Identity, orderID uuid.UUID, req SetPaymentRequest) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, identity pkgAuth.Identity, orderID uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error)
	List(ctx context.Context, identity pkgAuth.Identity, params ListParams) (pagination.Page[OrderDTO], error)
	Get(ctx context.Context, identity pkgAuth.Identity, orderID uuid.UUID) (*OrderDTO, error)
}

type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Ledger  stockLedger
	Outbox  outbox.Emitter
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  stockLedger
	events  outbox.Emitter
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		ledger:  params.Ledger,
		events:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// List returns the caller's orders for customers and every order for admins.
func (s *service) List(ctx context.Context, identity pkgAuth.Identity, params ListParams) (pagination.Page[OrderDTO], error) {
	if !identity.Valid() {
		return pagination.Page[OrderDTO]{}, errUnauthorized()
	}
	var owner *uuid.UUID
	switch identity.Role {
	case enums.UserRoleAdmin:
	case enums.UserRoleCustomer:
		owner = &identity.UserID
	default:
		return pagination.Page[OrderDTO]{}, errForbidden("orders are visible to customers and admins only")
	}

	page := pagination.Normalize(params.Pagination)
	rows, total, err := s.repo.ListOrders(ctx, owner, page)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return pagination.NewPage(out, page, total), nil
}

func (s *service) Get(ctx context.Context, identity pkgAuth.Identity, orderID uuid.UUID) (*OrderDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, orderLoadError(err)
	}
	if !identity.IsAdmin() && !identity.Owns(order.UserID) {
		return nil, errForbidden("order belongs to another user")
	}
	return FromModel(order), nil
}

// UpdateStatus moves an order through fulfilment. Admin only.
func (s *service) UpdateStatus(ctx context.Context, identity pkgAuth.Identity, orderID uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	if !identity.IsAdmin() {
		return nil, errForbidden("admin role required")
	}
	status, err := enums.ParseOrderStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, orderLoadError(err)
	}
	if order.Status == status {
		return s.loadOrder(ctx, orderID)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdateStatus(ctx, orderID, order.Status, status, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently")
		}
		return s.emit(ctx, tx, identity, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID: orderID,
				From:    order.Status,
				To:      status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": orderID.String(),
			"from":     order.Status.String(),
			"to":       status.String(),
		})
		s.logg.Info(logCtx, "order.status_changed")
	}
	return s.loadOrder(ctx, orderID)
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, orderLoadError(err)
	}
	return FromModel(order), nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, identity pkgAuth.Identity, event outbox.DomainEvent) error {
	event.Actor = &outbox.ActorRef{UserID: identity.UserID, Role: identity.Role}
	if err := s.events.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(event.EventType))
	}
	return nil
}

func orderLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errOrderNotFound()
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
}
