package deliveries

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

type Service interface {
	Assign(ctx context.Context, identity pkgAuth.Identity, req AssignRequest) (*DeliveryDTO, error)
	UpdateStatus(ctx context.Context, identity pkgAuth.Identity, orderID uuid.UUID, req UpdateStatusRequest) (*DeliveryDTO, error)
	List(ctx context.Context, identity pkgAuth.Identity, params ListParams) (pagination.Page[DeliveryDTO], error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	events  outbox.Emitter
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		events:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Assign points the order's delivery at a courier. Reassignment is allowed
// and restamps assignedAt.
func (s *service) Assign(ctx context.Context, identity pkgAuth.Identity, req AssignRequest) (*DeliveryDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	if !identity.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if req.OrderID == uuid.Nil || req.DeliveryPersonID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId and deliveryPersonId are required")
	}

	var deliveryID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		courier, err := repo.FindUser(ctx, req.DeliveryPersonID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery person")
		}
		if courier.Role != enums.UserRoleDelivery {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery person must have delivery role")
		}

		delivery, err := repo.FindByOrder(ctx, req.OrderID)
		if err != nil {
			return deliveryLoadError(err)
		}
		if _, err := repo.Assign(ctx, delivery.ID, courier.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign delivery")
		}
		deliveryID = delivery.ID

		return s.emit(ctx, tx, identity, outbox.DomainEvent{
			EventType:     enums.EventDeliveryAssigned,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Data: payloads.DeliveryAssignedEvent{
				DeliveryID:       delivery.ID,
				OrderID:          delivery.OrderID,
				DeliveryPersonID: courier.ID,
				PreviousPersonID: delivery.DeliveryPersonID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":           req.OrderID.String(),
			"delivery_person_id": req.DeliveryPersonID.String(),
		})
		s.logg.Info(logCtx, "delivery.assigned")
	}
	return s.load(ctx, deliveryID)
}

// UpdateStatus lets the assigned courier move a delivery forward. A missing
// order and an order assigned to someone else both report not found.
func (s *service) UpdateStatus(ctx context.Context, identity pkgAuth.Identity, orderID uuid.UUID, req UpdateStatusRequest) (*DeliveryDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	if identity.Role != enums.UserRoleDelivery {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery role required")
	}
	status, err := enums.ParseDeliveryStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status")
	}

	delivery, err := s.repo.FindForCourier(ctx, orderID, identity.UserID)
	if err != nil {
		return nil, deliveryLoadError(err)
	}
	if delivery.Status == status {
		return s.load(ctx, delivery.ID)
	}
	if !enums.CanTransitionDelivery(delivery.Status, status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery status can only move forward").
			WithDetails(map[string]any{"from": delivery.Status, "to": status})
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.UpdateStatus(ctx, delivery.ID, delivery.Status, status, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update delivery status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery status changed concurrently")
		}
		updated, err := repo.FindByOrder(ctx, orderID)
		if err != nil {
			return deliveryLoadError(err)
		}
		return s.emit(ctx, tx, identity, outbox.DomainEvent{
			EventType:     enums.EventDeliveryStatusChanged,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Data: payloads.DeliveryStatusChangedEvent{
				DeliveryID:  delivery.ID,
				OrderID:     orderID,
				From:        delivery.Status,
				To:          status,
				DeliveredAt: updated.DeliveredAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncDeliveryTransition(status.String())
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": orderID.String(),
			"from":     delivery.Status.String(),
			"to":       status.String(),
		})
		s.logg.Info(logCtx, "delivery.status_changed")
	}
	return s.load(ctx, delivery.ID)
}

// List shows every delivery to admins and only their own to couriers.
func (s *service) List(ctx context.Context, identity pkgAuth.Identity, params ListParams) (pagination.Page[DeliveryDTO], error) {
	if !identity.Valid() {
		return pagination.Page[DeliveryDTO]{}, errUnauthorized()
	}
	filter := listFilter{
		IncludeDelivered: params.IncludeDelivered,
		Pagination:       pagination.Normalize(params.Pagination),
	}
	switch identity.Role {
	case enums.UserRoleAdmin:
	case enums.UserRoleDelivery:
		filter.CourierID = &identity.UserID
	default:
		return pagination.Page[DeliveryDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "deliveries are visible to admins and couriers only")
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return pagination.Page[DeliveryDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list deliveries")
	}
	out := make([]DeliveryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return pagination.NewPage(out, filter.Pagination, total), nil
}

func (s *service) load(ctx context.Context, deliveryID uuid.UUID) (*DeliveryDTO, error) {
	delivery, err := s.repo.FindDetail(ctx, deliveryID)
	if err != nil {
		return nil, deliveryLoadError(err)
	}
	return FromModel(delivery), nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, identity pkgAuth.Identity, event outbox.DomainEvent) error {
	event.Actor = &outbox.ActorRef{UserID: identity.UserID, Role: identity.Role}
	if err := s.events.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(event.EventType))
	}
	return nil
}

func deliveryLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery")
}

func errUnauthorized() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
}
