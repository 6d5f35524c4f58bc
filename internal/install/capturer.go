package install

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sokoniarena/sokoni/internal/model"
	"github.com/sokoniarena/sokoni/internal/store"
)

// ErrNoIntent is returned when an install is requested but no offer has
// been captured, or the captured offer was already used.
var ErrNoIntent = errors.New("no install intent available")

// Capturer holds at most one live install intent.
type Capturer struct {
	signal Signal
	flags  *store.DismissalFlags
	logger *slog.Logger

	mu      sync.Mutex
	sub     Subscription
	token   Intent
	onOffer func()
	onHide  func()
}

// NewCapturer creates a Capturer listening on signal.
func NewCapturer(signal Signal, flags *store.DismissalFlags, logger *slog.Logger) *Capturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capturer{
		signal: signal,
		flags:  flags,
		logger: logger,
	}
}

// SetOfferHandler sets the function called when an offer should be shown.
func (c *Capturer) SetOfferHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOffer = fn
}

// SetHideHandler sets the function called when the banner should hide.
func (c *Capturer) SetHideHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHide = fn
}

// Start subscribes to the signal. Calling Start twice keeps one subscription.
func (c *Capturer) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return
	}
	c.sub = c.signal.Subscribe(c.capture)
}

// Stop unsubscribes from the signal. The retained token is kept.
func (c *Capturer) Stop() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

// HasIntent reports whether an unused intent is retained.
func (c *Capturer) HasIntent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != nil
}

func (c *Capturer) capture(intent Intent) {
	intent.PreventDefault()

	c.mu.Lock()
	c.token = intent
	onOffer := c.onOffer
	c.mu.Unlock()

	if c.flags.IsDismissed(model.BannerInstall) {
		c.logger.Debug("install intent captured, banner previously dismissed")
		return
	}
	c.logger.Debug("install intent captured")
	if onOffer != nil {
		onOffer()
	}
}

// Accept shows the native prompt for the retained intent. ok is false when
// there is no intent. The intent is discarded whatever the outcome.
func (c *Capturer) Accept(ctx context.Context) (outcome model.InstallOutcome, ok bool, err error) {
	c.mu.Lock()
	token := c.token
	c.token = nil
	onHide := c.onHide
	c.mu.Unlock()

	if token == nil {
		return "", false, nil
	}

	outcome, err = token.Prompt(ctx)
	if err != nil {
		return "", true, fmt.Errorf("install prompt failed: %w", err)
	}
	c.logger.Debug("install prompt resolved", "outcome", outcome)

	if outcome == model.InstallAccepted && onHide != nil {
		onHide()
	}
	return outcome, true, nil
}

// Dismiss persists the install dismissal flag and hides the banner.
// The retained intent is not touched.
func (c *Capturer) Dismiss() error {
	c.mu.Lock()
	onHide := c.onHide
	c.mu.Unlock()

	_, err := c.flags.Dismiss(model.BannerInstall)
	if onHide != nil {
		onHide()
	}
	return err
}
