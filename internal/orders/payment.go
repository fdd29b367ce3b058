package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/outbox"
	"github.com/ironmonger/hardware-backend/pkg/outbox/payloads"
)

// SetPaymentStatus records a payment outcome. Owners may only mark their
// order paid; every other edge, including paid back to unpaid, is admin only.
func (s *service) SetPaymentStatus(ctx context.Context, identity pkgAuth.Identity, orderID uuid.UUID, req SetPaymentRequest) (*OrderDTO, error) {
	if !identity.Valid() {
		return nil, errUnauthorized()
	}
	status, err := enums.ParsePaymentStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid paymentStatus; use paid, unpaid or failed")
	}
	var method *enums.PaymentMethod
	if req.Method != nil {
		parsed, err := enums.ParsePaymentMethod(strings.TrimSpace(*req.Method))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid paymentMethod; use COD or Razorpay")
		}
		method = &parsed
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, orderLoadError(err)
	}
	isAdmin := identity.IsAdmin()
	if !isAdmin && !identity.Owns(order.UserID) {
		return nil, errForbidden("order belongs to another user")
	}
	if !isAdmin && status != enums.PaymentStatusPaid {
		return nil, errForbidden("customers can only mark payment as paid")
	}

	current := order.PaymentStatus
	methodChanged := method != nil && *method != order.PaymentMethod
	if status == current && !methodChanged {
		return s.loadOrder(ctx, orderID)
	}
	if status != current && !enums.CanTransitionPayment(current, status, isAdmin) {
		if current == enums.PaymentStatusPaid && status == enums.PaymentStatusUnpaid {
			return nil, errForbidden("only admin can revert a paid order to unpaid")
		}
		return nil, errForbidden("payment status change not allowed")
	}

	updates := map[string]any{"payment_status": status}
	nextMethod := order.PaymentMethod
	if methodChanged {
		updates["payment_method"] = *method
		nextMethod = *method
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdatePayment(ctx, orderID, current, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment status changed concurrently")
		}
		return s.emit(ctx, tx, identity, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: payloads.OrderPaymentUpdatedEvent{
				OrderID:       orderID,
				From:          current,
				To:            status,
				PaymentMethod: nextMethod,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if status != current {
		s.metrics.IncPaymentTransition(current.String(), status.String())
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": orderID.String(),
			"from":     current.String(),
			"to":       status.String(),
			"admin":    isAdmin,
		})
		s.logg.Info(logCtx, "order.payment_updated")
	}
	return s.loadOrder(ctx, orderID)
}
