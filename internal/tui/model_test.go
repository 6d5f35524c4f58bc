package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoniarena/sokoni/internal/banner"
	"github.com/sokoniarena/sokoni/internal/config"
	"github.com/sokoniarena/sokoni/internal/listings"
	"github.com/sokoniarena/sokoni/internal/model"
)

type fakeBanners struct {
	mu        sync.Mutex
	view      banner.View
	listener  func(banner.View)
	accepted  int
	installNo int
	enabled   int
	notifyNo  int
	grant     bool
}

func (f *fakeBanners) Snapshot() banner.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeBanners) OnChange(fn func(banner.View)) func() {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.listener = nil
		f.mu.Unlock()
	}
}

func (f *fakeBanners) publish(v banner.View) {
	f.mu.Lock()
	f.view = v
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

func (f *fakeBanners) AcceptInstall(context.Context) (model.InstallOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted++
	return model.InstallAccepted, nil
}

func (f *fakeBanners) DismissInstall() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installNo++
	return nil
}

func (f *fakeBanners) EnableNotifications(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled++
	return f.grant
}

func (f *fakeBanners) DismissNotifications() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifyNo++
	return nil
}

func price(v float64) *float64 { return &v }

func testFetcher() *listings.MemoryFetcher {
	return listings.NewMemoryFetcher([]model.Listing{
		{ID: "e1", Type: model.ListingEvent, Title: "Jazz Night", Category: "Music & Concerts", Location: "Nairobi", Price: price(1500)},
		{ID: "e2", Type: model.ListingEvent, Title: "Startup Mixer", Category: "Business & Networking", IsFree: true},
		{ID: "s1", Type: model.ListingService, Title: "Plumbing", Category: "Home Services"},
	})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step applies msg and returns the updated model and command.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func newReadyModel(t *testing.T, opts Options) Model {
	t.Helper()
	m := New(opts)
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = step(t, m, m.fetchCmd(m.page)())
	return m
}

func TestModel_LoadsEvents(t *testing.T) {
	m := newReadyModel(t, Options{Fetcher: testFetcher()})

	assert.Equal(t, pageEvents, m.page)
	assert.Equal(t, listings.StateGrid, m.pages[pageEvents].State)
	assert.Len(t, m.list.Items(), 2)
	assert.Contains(t, m.View(), "Showing 2 events")
	assert.Contains(t, m.View(), "Discover exciting events")
}

func TestModel_DefaultPageFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TUI.DefaultPage = "services"

	m := newReadyModel(t, Options{Config: cfg, Fetcher: testFetcher()})
	assert.Equal(t, pageServices, m.page)
	assert.Len(t, m.list.Items(), 1)
}

func TestModel_SwitchPage(t *testing.T) {
	m := newReadyModel(t, Options{Fetcher: testFetcher()})

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	assert.Equal(t, pageServices, m.page)
	assert.Equal(t, listings.StateLoading, m.pages[pageServices].State)

	m, _ = step(t, m, cmd())
	assert.Len(t, m.list.Items(), 1)
	assert.Contains(t, m.View(), "Showing 1 services")
}

func TestModel_CategoryAndSortCycling(t *testing.T) {
	m := newReadyModel(t, Options{Fetcher: testFetcher()})

	m, cmd := step(t, m, runes("c"))
	assert.Equal(t, "Music & Concerts", m.queries[pageEvents].Category)
	m, _ = step(t, m, cmd())
	assert.Len(t, m.list.Items(), 1)

	m, _ = step(t, m, runes("s"))
	assert.Equal(t, listings.SortPriceLow, m.queries[pageEvents].SortBy)
	assert.Contains(t, m.View(), "Price: Low to High")

	m, cmd = step(t, m, runes("x"))
	assert.Equal(t, "All Events", m.queries[pageEvents].Category)
	m, _ = step(t, m, cmd())
	assert.Len(t, m.list.Items(), 2)
}

func TestModel_DropsStaleResults(t *testing.T) {
	m := newReadyModel(t, Options{Fetcher: testFetcher()})

	_, stale := step(t, m, runes("c"))
	m, fresh := step(t, m, runes("r"))

	// The category change never landed on m, so its result is stale for m.
	m, _ = step(t, m, stale())
	assert.Equal(t, listings.StateLoading, m.pages[pageEvents].State)

	m, _ = step(t, m, fresh())
	assert.Equal(t, listings.StateGrid, m.pages[pageEvents].State)
}

func TestModel_Search(t *testing.T) {
	m := newReadyModel(t, Options{Fetcher: testFetcher()})

	m, _ = step(t, m, runes("/"))
	assert.Equal(t, ModeSearch, m.mode)

	m, _ = step(t, m, runes("j"))
	assert.Equal(t, "j", m.queries[pageEvents].SearchQuery)
	assert.Equal(t, listings.StateLoading, m.pages[pageEvents].State)
	m, _ = step(t, m, m.fetchCmd(pageEvents)())
	assert.Len(t, m.list.Items(), 1)

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeList, m.mode)
	assert.Empty(t, m.queries[pageEvents].SearchQuery)
}

func TestModel_FetchError(t *testing.T) {
	f := testFetcher()
	f.SetError(errors.New("offline"))

	m := newReadyModel(t, Options{Fetcher: f})
	assert.Equal(t, listings.StateError, m.pages[pageEvents].State)
	assert.Contains(t, m.View(), "Error loading events: offline")
}

func TestModel_Detail(t *testing.T) {
	m := newReadyModel(t, Options{Fetcher: testFetcher()})

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ModeDetail, m.mode)
	require.NotNil(t, m.selected)
	assert.Contains(t, m.renderDetail(*m.selected), "Nairobi")

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeList, m.mode)
	assert.Nil(t, m.selected)
}

func TestModel_Banners(t *testing.T) {
	b := &fakeBanners{grant: true}
	m := newReadyModel(t, Options{Fetcher: testFetcher(), Banners: b})
	assert.NotContains(t, m.View(), InstallTitle)

	// Actions are ignored while the banners are hidden.
	m, _ = step(t, m, runes("i"))
	assert.Equal(t, 0, b.installNo)

	b.publish(banner.View{Install: model.BannerOffered, Notification: model.BannerOffered})
	m, _ = step(t, m, m.waitForBanner())

	view := m.View()
	assert.Contains(t, view, InstallTitle)
	assert.Contains(t, view, InstallDescription)
	assert.Contains(t, view, NotifyTitle)
	assert.Contains(t, view, NotifyDescription)

	m, cmd := step(t, m, runes("I"))
	require.NotNil(t, cmd)
	m, cmd = step(t, m, cmd())
	assert.Equal(t, 1, b.accepted)
	m, _ = step(t, m, cmd())
	assert.Equal(t, "SokoniArena installed", m.statusMsg)

	m, cmd = step(t, m, runes("E"))
	require.NotNil(t, cmd)
	m, cmd = step(t, m, cmd())
	assert.Equal(t, 1, b.enabled)
	m, _ = step(t, m, cmd())
	assert.Equal(t, "Notifications enabled", m.statusMsg)

	m, _ = step(t, m, runes("i"))
	m, _ = step(t, m, runes("e"))
	assert.Equal(t, 1, b.installNo)
	assert.Equal(t, 1, b.notifyNo)

	b.publish(banner.View{Install: model.BannerDismissed, Notification: model.BannerDismissed})
	m, _ = step(t, m, m.waitForBanner())
	assert.NotContains(t, m.View(), InstallTitle)
	assert.NotContains(t, m.View(), NotifyTitle)

	m.Close()
	assert.Nil(t, b.listener)
}

func TestSubscribe_KeepsLatestView(t *testing.T) {
	b := &fakeBanners{}
	ch, stop := subscribe(b)
	defer stop()

	b.publish(banner.View{Install: model.BannerOffered})
	b.publish(banner.View{Install: model.BannerDismissed})

	select {
	case v := <-ch:
		assert.Equal(t, model.BannerDismissed, v.Install)
	default:
		t.Fatal("no view delivered")
	}
}

func TestPrompter_Modal(t *testing.T) {
	p := NewPrompter()
	m := newReadyModel(t, Options{Fetcher: testFetcher(), Prompter: p})

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := p.Confirm(context.Background(), NotifyTitle, NotifyDescription)
		done <- result{ok, err}
	}()

	m, _ = step(t, m, m.waitForPrompt())
	require.Equal(t, ModeConfirm, m.mode)
	assert.Contains(t, m.View(), NotifyTitle)

	m, _ = step(t, m, runes("y"))
	assert.Equal(t, ModeList, m.mode)

	select {
	case r := <-done:
		assert.NoError(t, r.err)
		assert.True(t, r.ok)
	case <-time.After(2 * time.Second):
		t.Fatal("confirm did not return")
	}
}

func TestPrompter_ContextCancel(t *testing.T) {
	p := NewPrompter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := p.Confirm(ctx, "t", "d")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildKeybindBar_FitsWidth(t *testing.T) {
	m := New(Options{})
	bar := m.buildKeybindBar(20, "list")
	assert.Contains(t, bar, "quit")
	assert.NotContains(t, bar, "refresh")
}
