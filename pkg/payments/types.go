package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
)

// Session is one backend-tracked attempt to collect a payment. The token is
// the public-facing value embedded in the acceptance surface shown to the
// payer; status is owned by the backend and only ever read here.
type Session struct {
	ID        string              `json:"session_id"`
	Token     string              `json:"session_token"`
	Amount    decimal.Decimal     `json:"amount"`
	Currency  string              `json:"currency"`
	Mode      enums.Mode          `json:"mode"`
	Status    enums.SessionStatus `json:"status"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// SessionStatus is the backend's answer to a status poll.
type SessionStatus struct {
	Status enums.SessionStatus `json:"status"`
	PaidAt *time.Time          `json:"paid_at,omitempty"`
}

// Transaction is a backend-owned record of a settled payment.
type Transaction struct {
	ID        string                  `json:"transaction_id"`
	SessionID string                  `json:"session_id"`
	Amount    decimal.Decimal         `json:"amount"`
	Currency  string                  `json:"currency"`
	Status    enums.TransactionStatus `json:"status"`
	RefundID  *string                 `json:"refund_id,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// RefundResult carries the backend acknowledgement of a refund.
type RefundResult struct {
	RefundID string `json:"refund_id"`
}

// CredentialState reports per-mode merchant credential readiness.
type CredentialState struct {
	Configured  bool   `json:"configured"`
	DisplayName string `json:"display_name"`
}
