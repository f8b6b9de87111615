package controllers

import (
	"net/http"

	"github.com/fabrichouse/inventory-backend/api/responses"
	"github.com/fabrichouse/inventory-backend/pkg/config"
	"github.com/fabrichouse/inventory-backend/pkg/db"
	pkgerrors "github.com/fabrichouse/inventory-backend/pkg/errors"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
	"github.com/fabrichouse/inventory-backend/pkg/redis"
)

const envHeader = "X-FabricHouse-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness. The database is required; redis is optional
// and only reported.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not wired"))
			return
		}
		if err := dbP.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
			return
		}

		cache := "disabled"
		if redisClient != nil {
			cache = "ok"
			if err := redisClient.Ping(r.Context()); err != nil {
				cache = "unreachable"
				if logg != nil {
					logg.Warn(r.Context(), "redis unreachable during readiness check")
				}
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready", "cache": cache})
	}
}
