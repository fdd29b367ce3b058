package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/ironmonger/hardware-backend/api/responses"
	"github.com/ironmonger/hardware-backend/pkg/config"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/logger"
)

const envHeader = "X-Hardware-Env"

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis; any failure reports 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, dep := range []struct {
			name   string
			pinger Pinger
		}{{"database", db}, {"redis", redis}} {
			if dep.pinger == nil {
				continue
			}
			if err := dep.pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
