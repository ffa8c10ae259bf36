package enums

import "fmt"

// Mode is the operating environment a payment session is created against.
// Sandbox and live carry independent credentials and independent backend state.
type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"
)

var validModes = []Mode{
	ModeSandbox,
	ModeLive,
}

// IsValid reports whether the value matches the canonical mode enum.
func (m Mode) IsValid() bool {
	for _, candidate := range validModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMode converts the raw string to Mode.
func ParseMode(value string) (Mode, error) {
	for _, candidate := range validModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid mode %q", value)
}
