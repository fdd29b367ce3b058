package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/metrics"
)

// Logging writes one request.complete line per request and, when
// httpMetrics is set, observes it under its chi route pattern so path
// parameters do not explode label cardinality.
func Logging(logg *logger.Logger, httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"method": r.Method, "path": r.URL.Path})
				logg.Debug(ctx, "request.start")
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))
			elapsed := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpMetrics.Observe(r.Method, routePattern(r), status, elapsed)

			if logg != nil {
				logg.Info(logg.WithFields(ctx, map[string]any{
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": elapsed.Milliseconds(),
				}), "request.complete")
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
