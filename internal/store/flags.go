package store

import (
	"fmt"
	"log/slog"

	"github.com/sokoniarena/sokoni/internal/model"
)

// Fixed storage keys for the banner dismissal flags.
const (
	InstallDismissedKey      = "pwa-install-dismissed"
	NotificationDismissedKey = "notification-prompt-dismissed"

	dismissedValue = "true"
)

// DismissalKey returns the storage key for a banner's dismissal flag.
func DismissalKey(kind model.BannerKind) string {
	switch kind {
	case model.BannerInstall:
		return InstallDismissedKey
	case model.BannerNotification:
		return NotificationDismissedKey
	default:
		return ""
	}
}

// DismissalFlags reads and writes the persisted "don't show again" flags.
// Once a flag is set the corresponding banner never auto-shows again for
// the storage scope.
type DismissalFlags struct {
	kv     KV
	logger *slog.Logger
}

// NewDismissalFlags creates DismissalFlags over kv.
func NewDismissalFlags(kv KV, logger *slog.Logger) *DismissalFlags {
	if logger == nil {
		logger = slog.Default()
	}
	return &DismissalFlags{kv: kv, logger: logger}
}

// IsDismissed reports whether the banner's flag is set. Any non-empty value
// counts as set. A storage read error is logged and reported as dismissed so
// a banner is never shown against an unknown flag.
func (d *DismissalFlags) IsDismissed(kind model.BannerKind) bool {
	key := DismissalKey(kind)
	if key == "" {
		return false
	}
	v, ok, err := d.kv.Get(key)
	if err != nil {
		d.logger.Warn("failed to read dismissal flag", "key", key, "error", err)
		return true
	}
	return ok && v != ""
}

// Dismiss sets the banner's flag. It writes at most once: if the flag is
// already set no write happens. Reports whether a write occurred.
func (d *DismissalFlags) Dismiss(kind model.BannerKind) (bool, error) {
	key := DismissalKey(kind)
	if key == "" {
		return false, fmt.Errorf("unknown banner kind: %q", kind)
	}
	if v, ok, err := d.kv.Get(key); err == nil && ok && v != "" {
		return false, nil
	}
	if err := d.kv.Set(key, dismissedValue); err != nil {
		return false, fmt.Errorf("failed to persist %s: %w", key, err)
	}
	d.logger.Debug("dismissal flag set", "key", key)
	return true, nil
}

// Reset clears the banner's flag so it may be offered again.
func (d *DismissalFlags) Reset(kind model.BannerKind) error {
	key := DismissalKey(kind)
	if key == "" {
		return fmt.Errorf("unknown banner kind: %q", kind)
	}
	if err := d.kv.Delete(key); err != nil {
		return fmt.Errorf("failed to clear %s: %w", key, err)
	}
	return nil
}
