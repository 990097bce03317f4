package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/vehiclevault-lookup/api/responses"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/config"
	pkgerrors "github.com/angelmondragon/vehiclevault-lookup/pkg/errors"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/logger"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/redis"
)

const (
	envHeader    = "X-VehicleVault-Env"
	readyTimeout = 2 * time.Second
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once every configured dependency answers a ping.
// A nil pinger means the dependency is not configured and is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, redisPinger redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{"redis": "disabled"}
		if redisPinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := redisPinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

// LegacyHealth answers the bare {"ok":true} probe older clients poll.
func LegacyHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
