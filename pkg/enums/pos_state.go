package enums

import "fmt"

// PosState is the local lifecycle state of one payment-collection attempt.
// Idle is both the initial state and the state re-entered once a terminal
// outcome is acknowledged.
type PosState string

const (
	PosStateIdle     PosState = "idle"
	PosStateCreating PosState = "creating"
	PosStateWaiting  PosState = "waiting"
	PosStateSuccess  PosState = "success"
	PosStateFailed   PosState = "failed"
)

var validPosStates = []PosState{
	PosStateIdle,
	PosStateCreating,
	PosStateWaiting,
	PosStateSuccess,
	PosStateFailed,
}

// IsValid reports whether the value matches the canonical pos state enum.
func (p PosState) IsValid() bool {
	for _, candidate := range validPosStates {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state requires acknowledgement before a new
// collection attempt resets the lifecycle.
func (p PosState) IsTerminal() bool {
	return p == PosStateSuccess || p == PosStateFailed
}

// ParsePosState converts the raw string to PosState.
func ParsePosState(value string) (PosState, error) {
	for _, candidate := range validPosStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pos state %q", value)
}
