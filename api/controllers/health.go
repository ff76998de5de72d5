package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/crispyspin/crispyspin-backend/api/middleware"
	"github.com/crispyspin/crispyspin-backend/api/responses"
	"github.com/crispyspin/crispyspin-backend/pkg/config"
	"github.com/crispyspin/crispyspin-backend/pkg/db"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CrispySpin-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency and fails when any is unreachable.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]db.Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CrispySpin-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := make(map[string]string, len(names))
		var failed []string
		for _, name := range names {
			if err := deps[name].Ping(ctx); err != nil {
				status[name] = "down"
				failed = append(failed, name)
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "health.ready.failed", err)
				}
				continue
			}
			status[name] = "up"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(status))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}

// Ping answers unauthenticated reachability checks from clients.
func Ping() http.HandlerFunc {
	body := map[string]string{"pong": "public"}
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, body)
	}
}

// Whoami reports the caller resolved from the bearer token so clients can
// check a stored session before spinning.
func Whoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"pong":   "private",
			"userId": caller.UserID.String(),
			"wallet": caller.Wallet,
		})
	}
}
