package middleware

import (
	"context"

	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
)

type contextKey string

const (
	ctxIdentity contextKey = "identity"
	ctxAccessID contextKey = "access_id"
)

// IdentityFromContext returns the caller resolved by Auth.
func IdentityFromContext(ctx context.Context) (pkgAuth.Identity, bool) {
	if ctx == nil {
		return pkgAuth.Identity{}, false
	}
	id, ok := ctx.Value(ctxIdentity).(pkgAuth.Identity)
	return id, ok && id.Valid()
}

// AccessIDFromContext returns the jti of the token used for the request.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithIdentity injects the caller into the context.
func WithIdentity(ctx context.Context, id pkgAuth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, id)
}

// WithAccessID injects the token jti into the context.
func WithAccessID(ctx context.Context, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccessID, accessID)
}
