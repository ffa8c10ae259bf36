package controllers

import (
	"context"
	"net/http"

	"github.com/andreivasquez/lumapay-pos/api/responses"
	"github.com/andreivasquez/lumapay-pos/pkg/config"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

// ReadyCheck is one named dependency probe for the readiness endpoint.
type ReadyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LumaPay-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LumaPay-Env", cfg.App.Env)

		statuses := map[string]string{}
		for _, check := range checks {
			if check.Ping == nil {
				continue
			}
			if err := check.Ping(r.Context()); err != nil {
				statuses[check.Name] = "unreachable"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeBackendUnavailable, err, check.Name+" unavailable").
						WithDetails(statuses))
				return
			}
			statuses[check.Name] = "ok"
		}

		statuses["status"] = "ready"
		responses.WriteSuccess(w, statuses)
	}
}
