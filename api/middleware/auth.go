package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/andreivasquez/lumapay-pos/api/responses"
	pkgauth "github.com/andreivasquez/lumapay-pos/pkg/auth"
	"github.com/andreivasquez/lumapay-pos/pkg/config"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

// Auth validates the terminal's bearer token and seeds the request context
// with the terminal id.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.TerminalID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing terminal id"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxTerminalID, claims.TerminalID)
			if logg != nil {
				ctx = logg.WithTerminalID(ctx, claims.TerminalID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
