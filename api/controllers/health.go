package controllers

import (
	"context"
	"net/http"

	"github.com/teamnishkar/nishkar-backend/api/responses"
	"github.com/teamnishkar/nishkar-backend/pkg/config"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/logger"
)

const envHeader = "X-Nishkar-Env"

// Pinger is satisfied by every backing dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
