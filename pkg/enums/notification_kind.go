package enums

import "fmt"

// NotificationKind classifies the feedback raised on a state transition.
type NotificationKind string

const (
	NotificationKindSuccess NotificationKind = "success"
	NotificationKindFailure NotificationKind = "failure"
	NotificationKindInfo    NotificationKind = "info"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindSuccess,
	NotificationKindFailure,
	NotificationKindInfo,
}

// IsValid reports whether the value matches the canonical notification kind enum.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts the raw string to NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
