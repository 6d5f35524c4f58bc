package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sokoniarena/sokoni/internal/model"
)

// DefaultReadyTimeout bounds how long ShowNotification waits for the
// background worker before falling back to foreground delivery.
const DefaultReadyTimeout = 2 * time.Second

// Options are the optional fields of a notification.
type Options struct {
	Body string
	Tag  string
	Data map[string]any
}

// Negotiator wraps a Capability with the permission rules: it never prompts
// once permission is resolved, prompts at most once per request, and never
// shows anything unless permission is granted.
type Negotiator struct {
	capability Capability
	logger     *slog.Logger

	mu           sync.Mutex // serializes native prompts
	worker       DeliveryWorker
	icon         string
	badge        string
	readyTimeout time.Duration
}

// NewNegotiator creates a Negotiator over capability. A nil capability is
// treated as unsupported.
func NewNegotiator(capability Capability, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		capability:   capability,
		logger:       logger,
		icon:         model.DefaultIcon,
		badge:        model.DefaultBadge,
		readyTimeout: DefaultReadyTimeout,
	}
}

// SetWorker registers a background delivery worker.
func (n *Negotiator) SetWorker(w DeliveryWorker) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.worker = w
}

// SetAssets overrides the icon and badge attached to notifications.
// Empty values keep the current setting.
func (n *Negotiator) SetAssets(icon, badge string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if icon != "" {
		n.icon = icon
	}
	if badge != "" {
		n.badge = badge
	}
}

// SetReadyTimeout changes how long to wait for the worker to become ready.
func (n *Negotiator) SetReadyTimeout(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.readyTimeout = d
}

// IsSupported reports whether the host exposes a notification capability.
func (n *Negotiator) IsSupported() bool {
	return n.capability != nil && n.capability.Supported()
}

// CurrentPermission reads the live permission state. Unsupported hosts
// report denied.
func (n *Negotiator) CurrentPermission(ctx context.Context) model.PermissionState {
	if !n.IsSupported() {
		return model.PermissionDenied
	}
	return n.capability.Permission(ctx)
}

// RequestPermission returns true iff notifications are granted after the
// call. It prompts only from the default state, and at most once.
func (n *Negotiator) RequestPermission(ctx context.Context) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch state := n.CurrentPermission(ctx); state {
	case model.PermissionGranted:
		return true
	case model.PermissionDefault:
	default:
		n.logger.Debug("permission request refused locally", "state", state)
		return false
	}

	result, err := n.capability.RequestPermission(ctx)
	if err != nil {
		n.logger.Warn("permission prompt failed", "error", err)
		return false
	}
	n.logger.Debug("permission prompt resolved", "state", result)
	return result == model.PermissionGranted
}

// ShowNotification displays a notification if permission is granted and is
// a no-op otherwise. It prefers the background worker when one is active
// and ready, falling back to foreground delivery.
func (n *Negotiator) ShowNotification(ctx context.Context, title string, opts Options) error {
	if n.CurrentPermission(ctx) != model.PermissionGranted {
		return nil
	}

	n.mu.Lock()
	worker, icon, badge, timeout := n.worker, n.icon, n.badge, n.readyTimeout
	n.mu.Unlock()

	payload := model.NotificationPayload{
		Title: title,
		Body:  opts.Body,
		Tag:   opts.Tag,
		Icon:  icon,
		Data:  opts.Data,
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	if worker != nil && worker.Active() {
		readyCtx, cancel := context.WithTimeout(ctx, timeout)
		err := worker.Ready(readyCtx)
		cancel()
		if err == nil {
			payload.Badge = badge
			if err := worker.Deliver(ctx, payload); err != nil {
				n.logger.Warn("background delivery failed, showing in foreground", "tag", payload.Tag, "error", err)
			} else {
				return nil
			}
		} else {
			n.logger.Debug("worker not ready, showing in foreground", "error", err)
		}
		payload.Badge = ""
	}

	if err := n.capability.Show(ctx, payload); err != nil {
		return fmt.Errorf("failed to show notification: %w", err)
	}
	return nil
}

// ShowMessageNotification announces a new chat message. An empty
// conversationID yields the shared "message-new" tag.
func (n *Negotiator) ShowMessageNotification(ctx context.Context, senderName, preview, conversationID string) error {
	data := map[string]any{"type": model.PayloadTypeMessage}
	if conversationID != "" {
		data["conversationId"] = conversationID
	}
	return n.ShowNotification(ctx, "New message from "+senderName, Options{
		Body: model.TruncatePreview(preview, model.MessagePreviewLimit),
		Tag:  model.MessageTag(conversationID),
		Data: data,
	})
}
