package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/andreivasquez/lumapay-pos/api/responses"
	"github.com/andreivasquez/lumapay-pos/api/validators"
	"github.com/andreivasquez/lumapay-pos/internal/session"
	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

type createSessionRequest struct {
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Currency string          `json:"currency" validate:"required"`
	Mode     string          `json:"mode" validate:"required,oneof=sandbox live"`
	QRStyle  string          `json:"qr_style" validate:"omitempty,oneof=dynamic static"`
}

// CreateSession starts a new payment-collection attempt.
func CreateSession(manager *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		var req createSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := manager.Create(r.Context(), session.CreateParams{
			Amount:   req.Amount,
			Currency: req.Currency,
			Mode:     enums.Mode(req.Mode),
			QRStyle:  enums.QRStyle(req.QRStyle),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PosState reports the manager's current lifecycle state.
func PosState(manager *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}
		responses.WriteSuccess(w, manager.Snapshot())
	}
}

// AcknowledgeOutcome returns the manager to idle after a terminal outcome.
func AcknowledgeOutcome(manager *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}
		if err := manager.Acknowledge(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, manager.Snapshot())
	}
}
