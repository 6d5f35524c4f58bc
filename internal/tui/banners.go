package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokoniarena/sokoni/internal/banner"
	"github.com/sokoniarena/sokoni/internal/model"
)

// Banner copy.
const (
	InstallTitle       = "Install SokoniArena"
	InstallDescription = "Add to your home screen for the best experience"
	NotifyTitle        = "Enable Notifications"
	NotifyDescription  = "Get notified when you receive new messages"
)

// Banners is the banner controller as seen by the TUI.
type Banners interface {
	Snapshot() banner.View
	OnChange(fn func(banner.View)) func()
	AcceptInstall(ctx context.Context) (model.InstallOutcome, error)
	DismissInstall() error
	EnableNotifications(ctx context.Context) bool
	DismissNotifications() error
}

type bannerMsg banner.View

type installResultMsg struct {
	outcome model.InstallOutcome
	err     error
}

type notifyResultMsg struct {
	granted bool
}

// subscribe forwards controller changes into a channel that always holds
// the latest view.
func subscribe(b Banners) (chan banner.View, func()) {
	ch := make(chan banner.View, 1)
	stop := b.OnChange(func(v banner.View) {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	})
	return ch, stop
}

func (m Model) waitForBanner() tea.Msg {
	if m.bannerCh == nil {
		return nil
	}
	return bannerMsg(<-m.bannerCh)
}

func (m Model) acceptInstall() tea.Cmd {
	b := m.banners
	return func() tea.Msg {
		outcome, err := b.AcceptInstall(context.Background())
		return installResultMsg{outcome: outcome, err: err}
	}
}

func (m Model) enableNotifications() tea.Cmd {
	b := m.banners
	return func() tea.Msg {
		return notifyResultMsg{granted: b.EnableNotifications(context.Background())}
	}
}

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("10")).
			Padding(0, 1)
	bannerTitleStyle = lipgloss.NewStyle().Bold(true)
	bannerDescStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	bannerKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func renderBanner(width int, title, desc, accept, acceptLabel, later string) string {
	body := bannerTitleStyle.Render(title) + "  " + bannerDescStyle.Render(desc) + "\n" +
		bannerKeyStyle.Render(accept) + " " + acceptLabel + "  " +
		bannerKeyStyle.Render(later) + " Not Now"

	style := bannerStyle
	if width > 4 {
		style = style.Width(width - 2)
	}
	return style.Render(body)
}

// viewBanners renders the visible banners, install first.
func (m Model) viewBanners() string {
	var s string
	if m.bannerView.Install.Visible() {
		s += renderBanner(m.width, InstallTitle, InstallDescription, "I", "Install", "i") + "\n"
	}
	if m.bannerView.Notification.Visible() {
		s += renderBanner(m.width, NotifyTitle, NotifyDescription, "E", "Enable", "e") + "\n"
	}
	return s
}

// bannerHeight is the number of lines used by the visible banners.
func (m Model) bannerHeight() int {
	h := 0
	if m.bannerView.Install.Visible() {
		h += 4
	}
	if m.bannerView.Notification.Visible() {
		h += 4
	}
	return h
}
