package enums

import "fmt"

// QRStyle selects the acceptance surface flavor: dynamic codes are single-use
// and short-lived, static codes are reusable and long-lived.
type QRStyle string

const (
	QRStyleDynamic QRStyle = "dynamic"
	QRStyleStatic  QRStyle = "static"
)

var validQRStyles = []QRStyle{
	QRStyleDynamic,
	QRStyleStatic,
}

// IsValid reports whether the value matches the canonical QR style enum.
func (q QRStyle) IsValid() bool {
	for _, candidate := range validQRStyles {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQRStyle converts the raw string to QRStyle.
func ParseQRStyle(value string) (QRStyle, error) {
	for _, candidate := range validQRStyles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid qr style %q", value)
}
