package model

import "fmt"

// PermissionState is the authorization level for local notifications.
type PermissionState string

const (
	// PermissionUnsupported means the host has no notification capability.
	PermissionUnsupported PermissionState = "unsupported"
	// PermissionDefault means the user has not been asked yet.
	PermissionDefault PermissionState = "default"
	// PermissionGranted means notifications may be shown.
	PermissionGranted PermissionState = "granted"
	// PermissionDenied is terminal: the user must not be prompted again.
	PermissionDenied PermissionState = "denied"
)

// String returns the string representation of the permission state.
func (p PermissionState) String() string {
	return string(p)
}

// IsResolved reports whether the user has already answered the prompt.
func (p PermissionState) IsResolved() bool {
	return p == PermissionGranted || p == PermissionDenied
}

// ParsePermissionState parses a permission state name.
func ParsePermissionState(s string) (PermissionState, error) {
	switch PermissionState(s) {
	case PermissionUnsupported, PermissionDefault, PermissionGranted, PermissionDenied:
		return PermissionState(s), nil
	default:
		return "", fmt.Errorf("unknown permission state: %q", s)
	}
}

// InstallOutcome is the user's answer to the native install prompt.
type InstallOutcome string

const (
	InstallAccepted  InstallOutcome = "accepted"
	InstallDismissed InstallOutcome = "dismissed"
)
