package controllers

import (
	"net/http"

	"github.com/andreivasquez/lumapay-pos/api/responses"
	"github.com/andreivasquez/lumapay-pos/api/validators"
	"github.com/andreivasquez/lumapay-pos/internal/offline"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

// OfflineQueueList returns the pending offline payments in enqueue order.
func OfflineQueueList(svc offline.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offline queue unavailable"))
			return
		}

		queue, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if queue == nil {
			queue = []offline.QueuedPayment{}
		}
		responses.WriteSuccess(w, map[string]any{"items": queue, "depth": len(queue)})
	}
}

type offlineSyncRequest struct {
	Mode string `json:"mode" validate:"required,oneof=sandbox live"`
}

// OfflineSync drains the queue against the backend for the requested mode.
func OfflineSync(svc offline.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offline queue unavailable"))
			return
		}

		var req offlineSyncRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Sync(r.Context(), modeFromString(req.Mode))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
