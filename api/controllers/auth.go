package controllers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/andreivasquez/lumapay-pos/api/responses"
	"github.com/andreivasquez/lumapay-pos/api/validators"
	pkgauth "github.com/andreivasquez/lumapay-pos/pkg/auth"
	"github.com/andreivasquez/lumapay-pos/pkg/config"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

type terminalLoginRequest struct {
	TerminalID string `json:"terminal_id" validate:"required"`
	Secret     string `json:"secret" validate:"required"`
}

type terminalLoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// TerminalLogin exchanges the terminal's provisioned secret for a bearer
// token used by the UI against the local API.
func TerminalLogin(cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req terminalLoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		idMatch := subtle.ConstantTimeCompare([]byte(req.TerminalID), []byte(cfg.Terminal.ID))
		secretMatch := subtle.ConstantTimeCompare([]byte(req.Secret), []byte(cfg.Terminal.Secret))
		if idMatch != 1 || secretMatch != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid terminal credentials"))
			return
		}

		token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{TerminalID: req.TerminalID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithTerminalID(r.Context(), req.TerminalID), "terminal authenticated")
		}
		responses.WriteSuccess(w, terminalLoginResponse{
			AccessToken: token,
			ExpiresIn:   cfg.JWT.ExpirationMinutes * 60,
		})
	}
}
