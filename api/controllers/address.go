package controllers

import (
	"net/http"

	"github.com/ironmonger/hardware-backend/api/responses"
	"github.com/ironmonger/hardware-backend/api/validators"
	"github.com/ironmonger/hardware-backend/internal/address"
	"github.com/ironmonger/hardware-backend/pkg/logger"
)

func AddressList(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "address service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.List(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AddressCreate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "address service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}

		var body address.CreateAddressInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), identity, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, created)
	}
}

func AddressUpdate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "address service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body address.UpdateAddressInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), identity, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func AddressDelete(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "address service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), identity, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": id.String()})
	}
}
