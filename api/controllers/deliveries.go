package controllers

import (
	"net/http"

	"github.com/ironmonger/hardware-backend/api/responses"
	"github.com/ironmonger/hardware-backend/api/validators"
	"github.com/ironmonger/hardware-backend/internal/deliveries"
	"github.com/ironmonger/hardware-backend/pkg/logger"
)

// DeliveryList returns open deliveries first; delivered=true includes completed ones.
func DeliveryList(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "deliveries service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}

		delivered, err := validators.ParseQueryBool(r, "delivered")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), identity, deliveries.ListParams{
			IncludeDelivered: delivered != nil && *delivered,
			Pagination:       pageParams(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, page)
	}
}

func DeliveryAssign(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "deliveries service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}

		var body deliveries.AssignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.Assign(r.Context(), identity, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func DeliveryUpdateStatus(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "deliveries service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body deliveries.UpdateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.UpdateStatus(r.Context(), identity, orderID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}
