package controllers

import (
	"context"
	"net/http"

	"github.com/ironmonger/hardware-backend/api/responses"
	"github.com/ironmonger/hardware-backend/api/validators"
	"github.com/ironmonger/hardware-backend/internal/inventory"
	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

// InventoryService is the part of *inventory.Service the HTTP layer needs.
type InventoryService interface {
	AdjustStock(ctx context.Context, identity pkgAuth.Identity, req inventory.AdjustRequest) (*inventory.AdjustResult, error)
	ListLogs(ctx context.Context, identity pkgAuth.Identity, filter inventory.LogFilter) (pagination.Page[inventory.LogDTO], error)
}

// InventoryUpdate applies a signed stock adjustment and returns the product
// together with the ledger row it produced.
func InventoryUpdate(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}

		var body inventory.AdjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdjustStock(r.Context(), identity, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusCreated, result)
	}
}

func InventoryLogs(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}

		productID, err := validators.ParseQueryUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListLogs(r.Context(), identity, inventory.LogFilter{
			ProductID:  productID,
			From:       from,
			To:         to,
			Pagination: pageParams(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, page)
	}
}
