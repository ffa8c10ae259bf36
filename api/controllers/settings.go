package controllers

import (
	"net/http"

	"github.com/andreivasquez/lumapay-pos/api/responses"
	"github.com/andreivasquez/lumapay-pos/api/validators"
	"github.com/andreivasquez/lumapay-pos/internal/settings"
	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

// GetSettings returns the persisted terminal settings.
func GetSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		prefs, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, prefs)
	}
}

type putSettingsRequest struct {
	OfflineMode     bool   `json:"offline_mode"`
	QRStyle         string `json:"qr_style" validate:"required,oneof=dynamic static"`
	StoreName       string `json:"store_name" validate:"omitempty,max=128"`
	Sound           bool   `json:"sound"`
	Vibration       bool   `json:"vibration"`
	InventoryLinked bool   `json:"inventory_linked"`
}

// PutSettings replaces the whole settings document.
func PutSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var req putSettingsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		prefs := settings.PosSettings{
			OfflineMode:     req.OfflineMode,
			QRStyle:         enums.QRStyle(req.QRStyle),
			StoreName:       req.StoreName,
			Sound:           req.Sound,
			Vibration:       req.Vibration,
			InventoryLinked: req.InventoryLinked,
		}
		if err := svc.Put(r.Context(), prefs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, prefs)
	}
}
