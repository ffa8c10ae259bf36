package controllers

import (
	"net/http"
	"strings"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
)

// modeFromString trusts values already vetted by the request validator.
func modeFromString(value string) enums.Mode {
	mode, _ := enums.ParseMode(value)
	return mode
}

// modeFromQuery reads and validates the ?mode= query parameter, defaulting
// to sandbox when absent.
func modeFromQuery(r *http.Request) (enums.Mode, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("mode"))
	if raw == "" {
		return enums.ModeSandbox, nil
	}
	mode, err := enums.ParseMode(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode").
			WithDetails(map[string]string{"mode": raw})
	}
	return mode, nil
}
