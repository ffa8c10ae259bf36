package controllers

import (
	"net/http"

	"github.com/andreivasquez/lumapay-pos/api/responses"
	"github.com/andreivasquez/lumapay-pos/api/validators"
	"github.com/andreivasquez/lumapay-pos/internal/credentials"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

// GetCredentialState refreshes and returns per-mode credential readiness.
func GetCredentialState(svc credentials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credentials service unavailable"))
			return
		}

		mode, err := modeFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.Refresh(r.Context(), mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

type putCredentialRequest struct {
	Mode   string `json:"mode" validate:"required,oneof=sandbox live"`
	Secret string `json:"secret" validate:"required,min=8"`
}

// PutCredential stores a merchant credential for the mode.
func PutCredential(svc credentials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credentials service unavailable"))
			return
		}

		var req putCredentialRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode := modeFromString(req.Mode)
		if err := svc.SetCredential(r.Context(), mode, req.Secret); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.State(mode))
	}
}
