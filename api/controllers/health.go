package controllers

import (
	"context"
	"net/http"

	"github.com/nochance19900208-source/Real-Estate/api/responses"
	"github.com/nochance19900208-source/Real-Estate/pkg/config"
	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Akiya-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the backing stores. Redis is optional, so a nil pinger
// is simply skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, mongoPing, redisPing Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Akiya-Env", cfg.App.Env)

		if mongoPing != nil {
			if err := mongoPing.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mongo unavailable"))
				return
			}
		}
		if redisPing != nil {
			if err := redisPing.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
