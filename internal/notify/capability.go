// Package notify negotiates notification permission with the host and
// delivers locally triggered notifications.
package notify

import (
	"context"

	"github.com/sokoniarena/sokoni/internal/model"
)

// Capability is the host's notification surface.
type Capability interface {
	// Supported reports whether the host exposes notifications at all.
	Supported() bool

	// Permission reads the live permission state.
	Permission(ctx context.Context) model.PermissionState

	// RequestPermission shows the native prompt once and returns the result.
	RequestPermission(ctx context.Context) (model.PermissionState, error)

	// Show displays a notification immediately (foreground delivery).
	Show(ctx context.Context, payload model.NotificationPayload) error
}

// DeliveryWorker is an optional background delivery path. Notifications
// routed through it keep their tag clustering when the caller goes away.
type DeliveryWorker interface {
	Active() bool
	Ready(ctx context.Context) error
	Deliver(ctx context.Context, payload model.NotificationPayload) error
}

// Prompter asks the user a yes/no question on behalf of a capability.
type Prompter interface {
	Confirm(ctx context.Context, title, description string) (bool, error)
}
