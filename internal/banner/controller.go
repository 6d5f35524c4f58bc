package banner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sokoniarena/sokoni/internal/install"
	"github.com/sokoniarena/sokoni/internal/model"
	"github.com/sokoniarena/sokoni/internal/store"
)

// DefaultRevealDelay is how long gating must hold before the notification
// banner appears.
const DefaultRevealDelay = 5 * time.Second

// Permissions is the negotiator surface the controller needs.
type Permissions interface {
	IsSupported() bool
	CurrentPermission(ctx context.Context) model.PermissionState
	RequestPermission(ctx context.Context) bool
}

// View is the presentation state of both banners.
type View struct {
	Install      model.BannerState `json:"install"`
	Notification model.BannerState `json:"notification"`
}

// State returns the state of the banner of the given kind.
func (v View) State(kind model.BannerKind) model.BannerState {
	if kind == model.BannerInstall {
		return v.Install
	}
	return v.Notification
}

// Controller runs the two independent banner state machines.
type Controller struct {
	perms    Permissions
	capturer *install.Capturer
	flags    *store.DismissalFlags
	clock    Clock
	delay    time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	view       View
	session    bool
	mounted    bool
	generation int
	timer      Timer
	timerSeq   int
	listeners  map[int]func(View)
	nextID     int
}

// Config configures a Controller. Zero values select defaults.
type Config struct {
	Clock       Clock
	RevealDelay time.Duration
	Logger      *slog.Logger
}

// NewController creates an unmounted controller.
func NewController(perms Permissions, capturer *install.Capturer, flags *store.DismissalFlags, cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.RevealDelay <= 0 {
		cfg.RevealDelay = DefaultRevealDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		perms:     perms,
		capturer:  capturer,
		flags:     flags,
		clock:     cfg.Clock,
		delay:     cfg.RevealDelay,
		logger:    cfg.Logger,
		ctx:       context.Background(),
		listeners: make(map[int]func(View)),
	}
}

// Mount starts the install capture subscription and evaluates the
// notification gating. Both banners start hidden.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.generation++
	c.ctx = ctx
	c.view = View{}
	c.mu.Unlock()

	c.capturer.SetOfferHandler(c.offerInstall)
	c.capturer.Start()

	// An intent retained from an earlier mount is still usable
	if c.capturer.HasIntent() && !c.flags.IsDismissed(model.BannerInstall) {
		c.offerInstall()
	}

	c.evaluate()
}

// Unmount cancels the pending reveal and unsubscribes. No transition
// happens after Unmount returns.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	c.generation++
	c.stopTimerLocked()
	c.mu.Unlock()

	c.capturer.Stop()
	c.capturer.SetOfferHandler(nil)
}

// SetSession records whether a user session is present and re-evaluates
// the notification gating.
func (c *Controller) SetSession(present bool) {
	c.mu.Lock()
	c.session = present
	c.mu.Unlock()

	c.evaluate()
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// OnChange registers fn to receive every view change. The returned
// function unregisters it.
func (c *Controller) OnChange(fn func(View)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// AcceptInstall shows the native install prompt. Accepting marks the
// banner actioned; declining hides it for this mount without persisting
// the dismissal flag.
func (c *Controller) AcceptInstall(ctx context.Context) (model.InstallOutcome, error) {
	outcome, ok, err := c.capturer.Accept(ctx)
	if !ok {
		return "", install.ErrNoIntent
	}

	switch {
	case err != nil:
		c.transition(model.BannerInstall, model.BannerDismissed)
		return "", err
	case outcome == model.InstallAccepted:
		c.transition(model.BannerInstall, model.BannerActioned)
	default:
		c.transition(model.BannerInstall, model.BannerDismissed)
	}
	return outcome, nil
}

// DismissInstall persists the install dismissal flag and hides the banner.
func (c *Controller) DismissInstall() error {
	err := c.capturer.Dismiss()
	c.transition(model.BannerInstall, model.BannerDismissed)
	return err
}

// EnableNotifications requests permission. The banner is actioned when
// permission is granted. A refused prompt leaves it offered, so only
// DismissNotifications hides it.
func (c *Controller) EnableNotifications(ctx context.Context) bool {
	granted := c.perms.RequestPermission(ctx)
	if granted {
		c.transition(model.BannerNotification, model.BannerActioned)
	}
	return granted
}

// DismissNotifications persists the notification dismissal flag, cancels a
// pending reveal and hides the banner.
func (c *Controller) DismissNotifications() error {
	_, err := c.flags.Dismiss(model.BannerNotification)
	if err != nil {
		err = fmt.Errorf("failed to dismiss notification banner: %w", err)
	}

	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()

	c.transition(model.BannerNotification, model.BannerDismissed)
	return err
}

// Reevaluate re-reads the persisted flags and permission after another
// process changed them. Offered banners whose conditions no longer hold are
// dismissed, a cleared install flag re-offers a retained intent, and
// terminal states are kept.
func (c *Controller) Reevaluate() {
	c.mu.Lock()
	mounted, ctx, session := c.mounted, c.ctx, c.session
	c.mu.Unlock()
	if !mounted {
		return
	}

	if c.flags.IsDismissed(model.BannerInstall) {
		c.transitionFrom(model.BannerInstall, model.BannerOffered, model.BannerDismissed)
	} else if c.capturer.HasIntent() {
		c.offerInstall()
	}

	if !c.gated(ctx, session) {
		c.transitionFrom(model.BannerNotification, model.BannerOffered, model.BannerDismissed)
	}
	c.evaluate()
}

// revealPending reports whether the notification reveal timer is running.
func (c *Controller) revealPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Controller) offerInstall() {
	c.transitionFrom(model.BannerInstall, model.BannerHidden, model.BannerOffered)
}

// gated reports whether every notification banner condition holds.
func (c *Controller) gated(ctx context.Context, session bool) bool {
	if !session || !c.perms.IsSupported() {
		return false
	}
	if c.perms.CurrentPermission(ctx) != model.PermissionDefault {
		return false
	}
	return !c.flags.IsDismissed(model.BannerNotification)
}

func (c *Controller) evaluate() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	ctx, session, gen := c.ctx, c.session, c.generation
	c.mu.Unlock()

	ok := c.gated(ctx, session)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted || c.generation != gen {
		return
	}
	if !ok {
		if c.timer != nil {
			c.logger.Debug("notification banner gating lost, cancelling reveal")
		}
		c.stopTimerLocked()
		return
	}
	if c.view.Notification != model.BannerHidden || c.timer != nil {
		return
	}

	c.logger.Debug("scheduling notification banner", "delay", c.delay)
	c.timerSeq++
	seq := c.timerSeq
	c.timer = c.clock.AfterFunc(c.delay, func() { c.reveal(gen, seq) })
}

// reveal runs when timer seq fires. A callback that outlived its Stop
// carries an old seq and does nothing.
func (c *Controller) reveal(gen, seq int) {
	c.mu.Lock()
	if !c.mounted || c.generation != gen || c.timer == nil || c.timerSeq != seq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	ctx, session := c.ctx, c.session
	c.mu.Unlock()

	// Permission or the flag may have changed while waiting
	if !c.gated(ctx, session) {
		return
	}

	c.mu.Lock()
	stale := !c.mounted || c.generation != gen
	c.mu.Unlock()
	if stale {
		return
	}
	c.transitionFrom(model.BannerNotification, model.BannerHidden, model.BannerOffered)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerSeq++
}

// transition moves a mounted, non-terminal banner to state.
func (c *Controller) transition(kind model.BannerKind, to model.BannerState) {
	c.mu.Lock()
	if !c.mounted || c.view.State(kind).Terminal() {
		c.mu.Unlock()
		return
	}
	c.setLocked(kind, to)
	c.publishLocked()
}

// transitionFrom moves a mounted banner to state only from the given state.
func (c *Controller) transitionFrom(kind model.BannerKind, from, to model.BannerState) {
	c.mu.Lock()
	if !c.mounted || c.view.State(kind) != from {
		c.mu.Unlock()
		return
	}
	c.setLocked(kind, to)
	c.publishLocked()
}

func (c *Controller) setLocked(kind model.BannerKind, to model.BannerState) {
	c.logger.Debug("banner transition", "banner", kind, "from", c.view.State(kind), "to", to)
	if kind == model.BannerInstall {
		c.view.Install = to
	} else {
		c.view.Notification = to
	}
}

// publishLocked unlocks c.mu and notifies listeners with the new view.
func (c *Controller) publishLocked() {
	view := c.view
	listeners := make([]func(View), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(view)
	}
}
