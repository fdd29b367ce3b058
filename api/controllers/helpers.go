package controllers

import (
	"net/http"

	"github.com/ironmonger/hardware-backend/api/middleware"
	"github.com/ironmonger/hardware-backend/api/responses"
	"github.com/ironmonger/hardware-backend/api/validators"
	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

// requireIdentity writes 401 and reports false when Auth did not resolve a caller.
func requireIdentity(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (pkgAuth.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return pkgAuth.Identity{}, false
	}
	return identity, true
}

// pageParams reads page and pageSize leniently; services clamp them.
func pageParams(r *http.Request) pagination.Params {
	def := pagination.Default()
	return pagination.Params{
		Page:     validators.ParseQueryLenientInt(r, "page", def.Page),
		PageSize: validators.ParseQueryLenientInt(r, "pageSize", def.PageSize),
	}
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable"))
}
