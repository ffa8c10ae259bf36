package enums

import "fmt"

// SessionStatus is the backend-owned status of a payment session. The
// orchestrator only ever reads it.
type SessionStatus string

const (
	SessionStatusWaiting  SessionStatus = "waiting"
	SessionStatusPaid     SessionStatus = "paid"
	SessionStatusExpired  SessionStatus = "expired"
	SessionStatusCanceled SessionStatus = "canceled"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusWaiting,
	SessionStatusPaid,
	SessionStatusExpired,
	SessionStatusCanceled,
}

// IsValid reports whether the value matches the canonical session status enum.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can occur from this status.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusPaid || s == SessionStatusExpired || s == SessionStatusCanceled
}

// ParseSessionStatus converts the raw string to SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}
