package banner

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sokoniarena/sokoni/internal/install"
	"github.com/sokoniarena/sokoni/internal/model"
	"github.com/sokoniarena/sokoni/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock fires timers only when Advance moves past their deadline.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (c *manualClock) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakePermissions struct {
	mu        sync.Mutex
	supported bool
	state     model.PermissionState
	answer    model.PermissionState
	prompts   int
}

func (p *fakePermissions) IsSupported() bool { return p.supported }

func (p *fakePermissions) CurrentPermission(context.Context) model.PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.supported {
		return model.PermissionDenied
	}
	return p.state
}

func (p *fakePermissions) RequestPermission(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != model.PermissionDefault {
		return p.state == model.PermissionGranted
	}
	p.prompts++
	p.state = p.answer
	return p.state == model.PermissionGranted
}

func (p *fakePermissions) set(state model.PermissionState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

type fakeIntent struct {
	outcome model.InstallOutcome
	prompts int
}

func (f *fakeIntent) PreventDefault() {}

func (f *fakeIntent) Prompt(context.Context) (model.InstallOutcome, error) {
	f.prompts++
	return f.outcome, nil
}

type harness struct {
	kv     *store.MemoryKV
	clock  *manualClock
	signal *install.LocalSignal
	perms  *fakePermissions
	ctrl   *Controller
	views  []View
}

func newHarness(t *testing.T, kv *store.MemoryKV, perms *fakePermissions) *harness {
	t.Helper()
	if kv == nil {
		kv = store.NewMemoryKV()
	}
	if perms == nil {
		perms = &fakePermissions{supported: true, state: model.PermissionDefault, answer: model.PermissionGranted}
	}
	h := &harness{
		kv:     kv,
		clock:  &manualClock{},
		signal: install.NewLocalSignal(),
		perms:  perms,
	}
	flags := store.NewDismissalFlags(kv, nil)
	capturer := install.NewCapturer(h.signal, flags, nil)
	h.ctrl = NewController(perms, capturer, flags, Config{Clock: h.clock})
	h.ctrl.OnChange(func(v View) { h.views = append(h.views, v) })
	return h
}

func TestController_MountSubscribesBeforeEvaluation(t *testing.T) {
	h := newHarness(t, nil, nil)
	assert.Equal(t, 0, h.signal.Subscribers())

	h.ctrl.Mount(context.Background())
	assert.Equal(t, 1, h.signal.Subscribers())

	h.ctrl.Mount(context.Background())
	assert.Equal(t, 1, h.signal.Subscribers())

	h.ctrl.Unmount()
	assert.Equal(t, 0, h.signal.Subscribers())
}

func TestController_NotificationRevealAfterDelay(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()

	// No session yet: nothing scheduled
	assert.False(t, h.ctrl.revealPending())

	h.ctrl.SetSession(true)
	assert.True(t, h.ctrl.revealPending())

	h.clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, model.BannerHidden, h.ctrl.Snapshot().Notification)

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, model.BannerOffered, h.ctrl.Snapshot().Notification)
	assert.False(t, h.ctrl.revealPending())
	assert.Equal(t, model.BannerHidden, h.ctrl.Snapshot().Install)
}

func TestController_ReevaluationDoesNotStartSecondTimer(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()

	h.ctrl.SetSession(true)
	h.clock.Advance(3 * time.Second)
	h.ctrl.SetSession(true)
	h.ctrl.SetSession(true)
	assert.Equal(t, 1, h.clock.Live())

	// Original deadline still applies
	h.clock.Advance(2 * time.Second)
	assert.Equal(t, model.BannerOffered, h.ctrl.Snapshot().Notification)
	require.Len(t, h.views, 1)
}

func TestController_UnmountCancelsReveal(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	h.ctrl.SetSession(true)

	h.clock.Advance(2 * time.Second)
	h.ctrl.Unmount()
	assert.Equal(t, 0, h.clock.Live())

	h.clock.Advance(time.Minute)
	assert.Equal(t, model.BannerHidden, h.ctrl.Snapshot().Notification)
	assert.Empty(t, h.views)
}

func TestController_SessionLossCancelsReveal(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()

	h.ctrl.SetSession(true)
	h.ctrl.SetSession(false)
	assert.False(t, h.ctrl.revealPending())

	h.clock.Advance(time.Minute)
	assert.Equal(t, model.BannerHidden, h.ctrl.Snapshot().Notification)
}

func TestController_ResolvedPermissionNeverOffers(t *testing.T) {
	tests := []struct {
		name  string
		perms *fakePermissions
	}{
		{"granted", &fakePermissions{supported: true, state: model.PermissionGranted}},
		{"denied", &fakePermissions{supported: true, state: model.PermissionDenied}},
		{"unsupported", &fakePermissions{supported: false, state: model.PermissionDefault}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, tt.perms)
			h.ctrl.Mount(context.Background())
			defer h.ctrl.Unmount()

			h.ctrl.SetSession(true)
			h.clock.Advance(time.Minute)
			assert.Equal(t, model.BannerHidden, h.ctrl.Snapshot().Notification)
			assert.Equal(t, 0, h.clock.Live())
		})
	}
}

func TestController_PermissionResolvedWhileWaiting(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()

	h.ctrl.SetSession(true)
	h.perms.set(model.PermissionGranted)
	h.clock.Advance(5 * time.Second)
	assert.Equal(t, model.BannerHidden, h.ctrl.Snapshot().Notification)
}

func TestController_DismissedFlagSuppressesNotificationBanner(t *testing.T) {
	kv := store.NewMemoryKV()
	require.NoError(t, kv.Set(store.NotificationDismissedKey, "true"))

	h := newHarness(t, kv, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()

	h.ctrl.SetSession(true)
	assert.False(t, h.ctrl.revealPending())
}

func TestController_DismissNotifications(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	h.ctrl.SetSession(true)
	h.clock.Advance(5 * time.Second)

	require.NoError(t, h.ctrl.DismissNotifications())
	require.NoError(t, h.ctrl.DismissNotifications())
	assert.Equal(t, model.BannerDismissed, h.ctrl.Snapshot().Notification)
	assert.Equal(t, 1, h.kv.Writes())
	h.ctrl.Unmount()

	// Never offered again in the same storage scope
	again := newHarness(t, h.kv, nil)
	again.ctrl.Mount(context.Background())
	defer again.ctrl.Unmount()
	again.ctrl.SetSession(true)
	again.clock.Advance(time.Minute)
	assert.Equal(t, model.BannerHidden, again.ctrl.Snapshot().Notification)
}

func TestController_DismissNotificationsCancelsPendingReveal(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()

	h.ctrl.SetSession(true)
	require.NoError(t, h.ctrl.DismissNotifications())
	assert.Equal(t, 0, h.clock.Live())
}

func TestController_EnableNotifications(t *testing.T) {
	tests := []struct {
		name   string
		answer model.PermissionState
		want   model.BannerState
	}{
		{"granted", model.PermissionGranted, model.BannerActioned},
		{"denied", model.PermissionDenied, model.BannerOffered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perms := &fakePermissions{supported: true, state: model.PermissionDefault, answer: tt.answer}
			h := newHarness(t, nil, perms)
			h.ctrl.Mount(context.Background())
			defer h.ctrl.Unmount()
			h.ctrl.SetSession(true)
			h.clock.Advance(5 * time.Second)

			granted := h.ctrl.EnableNotifications(context.Background())
			assert.Equal(t, tt.answer == model.PermissionGranted, granted)
			assert.Equal(t, tt.want, h.ctrl.Snapshot().Notification)
			assert.Equal(t, 1, perms.prompts)
			// Only the explicit dismiss path persists the flag
			assert.Empty(t, h.kv.Snapshot())
		})
	}
}

func TestController_InstallOffer(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()

	h.signal.Fire(&fakeIntent{outcome: model.InstallAccepted})
	assert.Equal(t, model.BannerOffered, h.ctrl.Snapshot().Install)

	outcome, err := h.ctrl.AcceptInstall(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.InstallAccepted, outcome)
	assert.Equal(t, model.BannerActioned, h.ctrl.Snapshot().Install)

	_, err = h.ctrl.AcceptInstall(context.Background())
	assert.ErrorIs(t, err, install.ErrNoIntent)
}

func TestController_InstallDeclinedIsTransient(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())

	h.signal.Fire(&fakeIntent{outcome: model.InstallDismissed})
	outcome, err := h.ctrl.AcceptInstall(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.InstallDismissed, outcome)
	assert.Equal(t, model.BannerDismissed, h.ctrl.Snapshot().Install)
	assert.Empty(t, h.kv.Snapshot())

	// Later capture in the same mount stays hidden
	h.signal.Fire(&fakeIntent{})
	assert.Equal(t, model.BannerDismissed, h.ctrl.Snapshot().Install)
	h.ctrl.Unmount()

	// A fresh mount with a new capture may offer again
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()
	assert.Equal(t, model.BannerOffered, h.ctrl.Snapshot().Install)
}

func TestController_DismissInstallNeverReappears(t *testing.T) {
	h := newHarness(t, nil, nil)

	for range 3 {
		h.ctrl.Mount(context.Background())
		h.signal.Fire(&fakeIntent{})
		if h.ctrl.Snapshot().Install == model.BannerOffered {
			require.NoError(t, h.ctrl.DismissInstall())
		}
		assert.NotEqual(t, model.BannerOffered, h.ctrl.Snapshot().Install)
		h.ctrl.Unmount()
	}

	require.NoError(t, h.ctrl.DismissInstall())
	assert.Equal(t, 1, h.kv.Writes())
}

func TestController_BannersAreIndependent(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()

	h.signal.Fire(&fakeIntent{})
	h.ctrl.SetSession(true)
	h.clock.Advance(5 * time.Second)

	view := h.ctrl.Snapshot()
	assert.Equal(t, model.BannerOffered, view.Install)
	assert.Equal(t, model.BannerOffered, view.Notification)

	require.NoError(t, h.ctrl.DismissInstall())
	view = h.ctrl.Snapshot()
	assert.Equal(t, model.BannerDismissed, view.Install)
	assert.Equal(t, model.BannerOffered, view.Notification)
}

func TestController_OnChangeUnsubscribe(t *testing.T) {
	h := newHarness(t, nil, nil)
	var count int
	unsubscribe := h.ctrl.OnChange(func(View) { count++ })

	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()
	h.signal.Fire(&fakeIntent{})
	unsubscribe()
	require.NoError(t, h.ctrl.DismissInstall())

	assert.Equal(t, 1, count)
	assert.Len(t, h.views, 2)
}

func TestController_DefaultRevealDelay(t *testing.T) {
	ctrl := NewController(&fakePermissions{}, nil, nil, Config{})
	assert.Equal(t, 5*time.Second, ctrl.delay)
	assert.IsType(t, RealClock{}, ctrl.clock)
}

func TestController_StaleTimerCallbackDoesNotReveal(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()

	h.ctrl.SetSession(true)
	h.ctrl.SetSession(false)
	h.ctrl.SetSession(true)
	require.Len(t, h.clock.timers, 2)

	// The first callback was already running when Stop was called.
	h.clock.timers[0].f()
	assert.Equal(t, model.BannerHidden, h.ctrl.Snapshot().Notification)
	assert.True(t, h.ctrl.revealPending())

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, model.BannerOffered, h.ctrl.Snapshot().Notification)
}

func TestController_Reevaluate(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()
	h.ctrl.SetSession(true)
	h.signal.Fire(&fakeIntent{outcome: model.InstallAccepted})
	h.clock.Advance(5 * time.Second)

	// Nothing changed: both banners stay offered, no new timer.
	h.ctrl.Reevaluate()
	assert.Equal(t, View{Install: model.BannerOffered, Notification: model.BannerOffered}, h.ctrl.Snapshot())
	assert.Equal(t, 0, h.clock.Live())

	require.NoError(t, h.kv.Set(store.InstallDismissedKey, "true"))
	h.ctrl.Reevaluate()
	assert.Equal(t, View{Install: model.BannerDismissed, Notification: model.BannerOffered}, h.ctrl.Snapshot())

	h.perms.set(model.PermissionGranted)
	h.ctrl.Reevaluate()
	assert.Equal(t, View{Install: model.BannerDismissed, Notification: model.BannerDismissed}, h.ctrl.Snapshot())
}

func TestController_ReevaluateOffersRetainedIntentAfterReset(t *testing.T) {
	kv := store.NewMemoryKV()
	require.NoError(t, kv.Set(store.InstallDismissedKey, "true"))
	h := newHarness(t, kv, nil)
	h.ctrl.Mount(context.Background())
	defer h.ctrl.Unmount()

	h.signal.Fire(&fakeIntent{})
	assert.Equal(t, model.BannerHidden, h.ctrl.Snapshot().Install)

	require.NoError(t, kv.Delete(store.InstallDismissedKey))
	h.ctrl.Reevaluate()
	assert.Equal(t, model.BannerOffered, h.ctrl.Snapshot().Install)
}

func TestController_PrefsWatcherKeepsBannersIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	kv, err := store.OpenFileKV(path)
	require.NoError(t, err)

	perms := &fakePermissions{supported: true, state: model.PermissionDefault, answer: model.PermissionGranted}
	clock := &manualClock{}
	sig := install.NewLocalSignal()
	flags := store.NewDismissalFlags(kv, nil)
	ctrl := NewController(perms, install.NewCapturer(sig, flags, nil), flags, Config{Clock: clock})

	fw, err := store.NewFileWatcher(kv, nil)
	require.NoError(t, err)
	var reloads atomic.Int32
	fw.SetChangeCallback(func() {
		reloads.Add(1)
		ctrl.Reevaluate()
	})
	require.NoError(t, fw.Start())
	defer fw.Stop()

	ctrl.Mount(context.Background())
	defer ctrl.Unmount()
	ctrl.SetSession(true)
	sig.Fire(&fakeIntent{})
	clock.Advance(5 * time.Second)
	require.Equal(t, View{Install: model.BannerOffered, Notification: model.BannerOffered}, ctrl.Snapshot())

	// Our own write is not an external change.
	require.NoError(t, ctrl.DismissInstall())
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), reloads.Load())
	assert.Equal(t, View{Install: model.BannerDismissed, Notification: model.BannerOffered}, ctrl.Snapshot())

	other, err := store.OpenFileKV(path)
	require.NoError(t, err)
	require.NoError(t, other.Set(store.NotificationDismissedKey, "true"))

	assert.Eventually(t, func() bool {
		return ctrl.Snapshot().Notification == model.BannerDismissed
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, model.BannerDismissed, ctrl.Snapshot().Install)
}
