package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/courierloop/courierloop-backend/api/responses"
	"github.com/courierloop/courierloop-backend/pkg/config"
	"github.com/courierloop/courierloop-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CourierLoop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis; a failing dependency flips the
// whole endpoint to 503 so load balancers stop routing here.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CourierLoop-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true
		for name, p := range map[string]pinger{"database": dbP, "redis": redisP} {
			if p == nil {
				checks[name] = "not_configured"
				ready = false
				continue
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "down"
				ready = false
				if logg != nil {
					logg.Error(r.Context(), "readiness check failed for "+name, err)
				}
				continue
			}
			checks[name] = "up"
		}

		if !ready {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": checks})
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
