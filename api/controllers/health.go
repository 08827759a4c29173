package controllers

import (
	"net/http"

	"github.com/marcvidal/eventstock-backend/api/responses"
	"github.com/marcvidal/eventstock-backend/pkg/config"
	"github.com/marcvidal/eventstock-backend/pkg/db"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
	"github.com/marcvidal/eventstock-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-EventStock-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency and reports per-dependency
// status. Any failure flips the endpoint to 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-EventStock-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				checks["database"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(r.Context(), "readiness database ping failed", err)
				}
			} else {
				checks["database"] = "up"
			}
		}

		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				checks["redis"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(r.Context(), "readiness redis ping failed", err)
				}
			} else {
				checks["redis"] = "up"
			}
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
