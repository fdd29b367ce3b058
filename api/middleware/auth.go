package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ironmonger/hardware-backend/api/responses"
	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/auth/session"
	"github.com/ironmonger/hardware-backend/pkg/config"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/logger"
)

// BearerToken strips an optional case-insensitive "Bearer " prefix.
func BearerToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if scheme, token, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return raw
}

// Auth admits requests carrying a valid access token whose session has not
// been revoked, and puts the caller identity on the context. A nil sessions
// checker skips the revocation lookup.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				identity, _ := IdentityFromContext(ctx)
				ctx = logg.WithUserID(ctx, identity.UserID.String())
				ctx = logg.WithActorRole(ctx, identity.Role.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (context.Context, error) {
	token := BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	ctx := r.Context()
	if sessions != nil {
		live, err := sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	ctx = WithIdentity(ctx, pkgAuth.Identity{UserID: claims.UserID, Role: claims.Role})
	return WithAccessID(ctx, claims.ID), nil
}
