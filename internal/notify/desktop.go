package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/sokoniarena/sokoni/internal/model"
	"github.com/sokoniarena/sokoni/internal/store"
)

// D-Bus interface constants for the freedesktop notification service.
const (
	DBusInterface = "org.freedesktop.Notifications"
	DBusPath      = "/org/freedesktop/Notifications"
	DBusBusName   = "org.freedesktop.Notifications"
)

// PermissionKey is the KV key holding the desktop permission answer.
const PermissionKey = "notification-permission"

// TagKeyPrefix prefixes the KV keys mapping a tag to the id of its visible
// notification, so later processes replace it too.
const TagKeyPrefix = "notification-tag:"

// Urgency hint values understood by freedesktop notification daemons.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// CloseReason is the reason carried by the NotificationClosed signal.
type CloseReason uint32

const (
	CloseReasonExpired   CloseReason = 1
	CloseReasonDismissed CloseReason = 2
	CloseReasonClosed    CloseReason = 3
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// ErrNoPrompter is returned when permission must be asked but no prompter
// is configured.
var ErrNoPrompter = errors.New("no permission prompter configured")

// caller is the subset of dbus.BusObject used by DesktopCapability.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DesktopCapability delivers notifications through the running
// notification daemon on the session bus. A tag maps to the daemon's
// replaces_id so a repeated tag replaces the visible notification. The
// mapping lives in the KV and is shared by every sokoni process.
type DesktopCapability struct {
	conn          *dbus.Conn
	notifications caller
	bus           caller
	kv            store.KV
	prompter      Prompter
	appName       string
	logger        *slog.Logger

	mu        sync.Mutex
	byTag     map[string]uint32
	supported *bool
}

// NewDesktopCapability connects to the session bus.
func NewDesktopCapability(kv store.KV, prompter Prompter, appName string, logger *slog.Logger) (*DesktopCapability, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	d := newDesktopCapability(conn.Object(DBusBusName, DBusPath), conn.BusObject(), kv, prompter, appName, logger)
	d.conn = conn
	return d, nil
}

func newDesktopCapability(notifications, bus caller, kv store.KV, prompter Prompter, appName string, logger *slog.Logger) *DesktopCapability {
	if logger == nil {
		logger = slog.Default()
	}
	return &DesktopCapability{
		notifications: notifications,
		bus:           bus,
		kv:            kv,
		prompter:      prompter,
		appName:       appName,
		logger:        logger,
		byTag:         make(map[string]uint32),
	}
}

// Supported reports whether a notification daemon owns the bus name.
// The answer is cached after the first successful query.
func (d *DesktopCapability) Supported() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.supported != nil {
		return *d.supported
	}
	if d.bus == nil {
		return false
	}

	var has bool
	call := d.bus.CallWithContext(context.Background(), "org.freedesktop.DBus.NameHasOwner", 0, DBusBusName)
	if err := call.Store(&has); err != nil {
		d.logger.Debug("NameHasOwner failed", "error", err)
		return false
	}
	d.supported = &has
	return has
}

// Permission returns the stored answer, or default when none is stored.
// Unreadable or unknown values are treated as denied.
func (d *DesktopCapability) Permission(ctx context.Context) model.PermissionState {
	v, ok, err := d.kv.Get(PermissionKey)
	if err != nil {
		d.logger.Warn("failed to read notification permission", "error", err)
		return model.PermissionDenied
	}
	if !ok || v == "" {
		return model.PermissionDefault
	}
	state, err := model.ParsePermissionState(v)
	if err != nil {
		d.logger.Warn("ignoring stored notification permission", "value", v, "error", err)
		return model.PermissionDenied
	}
	return state
}

// RequestPermission asks the prompter once and stores the answer.
// A resolved state is returned without prompting.
func (d *DesktopCapability) RequestPermission(ctx context.Context) (model.PermissionState, error) {
	if state := d.Permission(ctx); state != model.PermissionDefault {
		return state, nil
	}
	if d.prompter == nil {
		return model.PermissionDefault, ErrNoPrompter
	}

	ok, err := d.prompter.Confirm(ctx, "Enable Notifications", "Get notified when you receive new messages")
	if err != nil {
		return model.PermissionDefault, err
	}

	state := model.PermissionDenied
	if ok {
		state = model.PermissionGranted
	}
	if err := d.kv.Set(PermissionKey, state.String()); err != nil {
		return state, fmt.Errorf("failed to store permission: %w", err)
	}
	return state, nil
}

// Show sends a Notify call. Payloads with a tag reuse the id of the
// previous notification with that tag.
func (d *DesktopCapability) Show(ctx context.Context, payload model.NotificationPayload) error {
	replacesID := d.taggedID(payload.Tag)

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(UrgencyNormal),
	}
	if payload.Tag != "" {
		// Stacking hints for daemons that group notifications by tag
		hints["x-dunst-stack-tag"] = dbus.MakeVariant(payload.Tag)
		hints["x-canonical-private-synchronous"] = dbus.MakeVariant(payload.Tag)
	}
	if payload.DataString("type") == model.PayloadTypeMessage {
		hints["category"] = dbus.MakeVariant("im.received")
	}
	if payload.Badge != "" {
		hints["image-path"] = dbus.MakeVariant(payload.Badge)
	}
	if conv := payload.DataString("conversationId"); conv != "" {
		hints["x-sokoni-conversation"] = dbus.MakeVariant(conv)
	}

	var id uint32
	call := d.notifications.CallWithContext(ctx, DBusInterface+".Notify", 0,
		d.appName,
		replacesID,
		payload.Icon,
		payload.Title,
		payload.Body,
		[]string{},
		hints,
		int32(-1),
	)
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify call failed: %w", err)
	}

	if payload.Tag != "" {
		d.rememberTag(payload.Tag, id)
	}
	d.logger.Debug("notification shown", "id", id, "replaces_id", replacesID, "tag", payload.Tag)
	return nil
}

// Close closes the visible notification carrying tag, if any.
func (d *DesktopCapability) Close(ctx context.Context, tag string) error {
	id := d.taggedID(tag)
	d.forgetTag(tag)
	if id == 0 {
		return nil
	}
	if err := d.notifications.CallWithContext(ctx, DBusInterface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("close call failed: %w", err)
	}
	return nil
}

// WatchClosed listens for NotificationClosed signals and forgets tags whose
// notification is gone, so the next payload with that tag is shown fresh.
// It returns when ctx is done.
func (d *DesktopCapability) WatchClosed(ctx context.Context) error {
	if d.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}
	opts := []dbus.MatchOption{
		dbus.WithMatchInterface(DBusInterface),
		dbus.WithMatchMember("NotificationClosed"),
	}
	if err := d.conn.AddMatchSignal(opts...); err != nil {
		return fmt.Errorf("failed to add match rule: %w", err)
	}
	defer d.conn.RemoveMatchSignal(opts...)

	ch := make(chan *dbus.Signal, 16)
	d.conn.Signal(ch)
	defer d.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			if sig.Name != DBusInterface+".NotificationClosed" || len(sig.Body) < 2 {
				continue
			}
			id, _ := sig.Body[0].(uint32)
			reason, _ := sig.Body[1].(uint32)
			d.forget(id, CloseReason(reason))
		}
	}
}

func (d *DesktopCapability) forget(id uint32, reason CloseReason) {
	d.mu.Lock()
	var closed string
	for tag, tid := range d.byTag {
		if tid == id {
			closed = tag
			break
		}
	}
	d.mu.Unlock()

	if closed == "" {
		return
	}
	d.forgetTag(closed)
	d.logger.Debug("notification closed", "id", id, "tag", closed, "reason", reason.String())
}

// taggedID returns the id of the visible notification for tag, or 0.
func (d *DesktopCapability) taggedID(tag string) uint32 {
	if tag == "" {
		return 0
	}
	d.mu.Lock()
	id, ok := d.byTag[tag]
	d.mu.Unlock()
	if ok {
		return id
	}

	v, ok, err := d.kv.Get(TagKeyPrefix + tag)
	if err != nil || !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		d.logger.Debug("ignoring stored notification id", "tag", tag, "value", v)
		return 0
	}
	return uint32(n)
}

func (d *DesktopCapability) rememberTag(tag string, id uint32) {
	d.mu.Lock()
	d.byTag[tag] = id
	d.mu.Unlock()

	if err := d.kv.Set(TagKeyPrefix+tag, strconv.FormatUint(uint64(id), 10)); err != nil {
		d.logger.Warn("failed to store notification id", "tag", tag, "error", err)
	}
}

func (d *DesktopCapability) forgetTag(tag string) {
	d.mu.Lock()
	delete(d.byTag, tag)
	d.mu.Unlock()

	if err := d.kv.Delete(TagKeyPrefix + tag); err != nil {
		d.logger.Warn("failed to clear notification id", "tag", tag, "error", err)
	}
}
