package controllers

import (
	"net/http"

	"github.com/andreivasquez/lumapay-pos/api/responses"
	"github.com/andreivasquez/lumapay-pos/internal/notify"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

// RecentNotifications returns the latest visual notifications, newest first.
func RecentNotifications(dispatcher *notify.Dispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dispatcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notification dispatcher unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": dispatcher.Recent()})
	}
}
