package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
)

// SessionCreateParams configures one create-session call. ExpiresIn is chosen
// by the caller from the QR style: dynamic codes get a short TTL, static
// reusable codes a long one.
type SessionCreateParams struct {
	Amount         decimal.Decimal
	Currency       string
	Mode           enums.Mode
	QRStyle        enums.QRStyle
	ExpiresIn      time.Duration
	IdempotencyKey string
}

type sessionCreateRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	QRStyle          enums.QRStyle   `json:"qr_style"`
	ExpiresInSeconds int64           `json:"expires_in_seconds"`
}

func (p SessionCreateParams) toRequest() sessionCreateRequest {
	return sessionCreateRequest{
		Amount:           p.Amount,
		Currency:         p.Currency,
		QRStyle:          p.QRStyle,
		ExpiresInSeconds: int64(p.ExpiresIn.Seconds()),
	}
}

type refundRequest struct {
	Reason string `json:"reason"`
}

type credentialRequest struct {
	Secret string `json:"secret"`
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}
