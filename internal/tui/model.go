// Package tui provides the BubbleTea-based marketplace browser.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/sokoniarena/sokoni/internal/banner"
	"github.com/sokoniarena/sokoni/internal/config"
	"github.com/sokoniarena/sokoni/internal/listings"
	"github.com/sokoniarena/sokoni/internal/model"
)

const fetchTimeout = 15 * time.Second

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeSearch
	ModeHelp
	ModeConfirm
)

const (
	pageEvents = iota
	pageServices
)

var catalogs = [2]listings.Catalog{listings.Events, listings.Services}

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg      *config.Config
	fetcher  listings.Fetcher
	banners  Banners
	prompter *Prompter

	// Current mode
	mode     Mode
	prevMode Mode

	// Components
	list        list.Model
	viewport    viewport.Model
	searchInput textinput.Model
	help        help.Model

	// Browse state, one slot per page
	page    int
	queries [2]listings.Query
	results [2]listings.Result
	pages   [2]listings.Page

	selected *listings.Card

	// Banners and the pending confirm modal
	bannerView banner.View
	bannerCh   chan banner.View
	stopBanner func()
	confirm    *confirmRequest

	width  int
	height int
	ready  bool

	// Key bindings
	keys KeyMap

	// Status message
	statusMsg string
	statusErr bool
}

// Options configures a Model.
type Options struct {
	Config   *config.Config
	Fetcher  listings.Fetcher
	Banners  Banners
	Prompter *Prompter
}

// listingItem wraps a card for the list component.
type listingItem struct {
	card listings.Card
}

func (i listingItem) Title() string {
	title := i.card.Title
	if i.card.Featured {
		title = "★ " + title
	}
	if i.card.Sponsored {
		title += " [sponsored]"
	}
	return title
}

func (i listingItem) Description() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{i.card.EventDate, i.card.Location, i.card.Price, i.card.Category} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " · ")
}

func (i listingItem) FilterValue() string {
	return i.card.Title + " " + i.card.Location
}

// listingDelegate renders free listings with a highlighted price.
type listingDelegate struct {
	list.DefaultDelegate
}

func newListingDelegate() listingDelegate {
	return listingDelegate{DefaultDelegate: list.NewDefaultDelegate()}
}

// Render renders a list item, truncating to the list width.
func (d listingDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	li, ok := item.(listingItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	titleStyle := d.Styles.NormalTitle
	descStyle := d.Styles.NormalDesc
	if index == m.Index() {
		titleStyle = d.Styles.SelectedTitle
		descStyle = d.Styles.SelectedDesc
	}
	if li.card.Free {
		descStyle = descStyle.Foreground(lipgloss.Color("10"))
	}

	itemWidth := m.Width() - d.Styles.NormalTitle.GetHorizontalPadding()
	title := truncate(li.Title(), itemWidth)
	desc := truncate(li.Description(), itemWidth)

	fmt.Fprint(w, titleStyle.Render(title))
	fmt.Fprint(w, "\n")
	fmt.Fprint(w, descStyle.Render(desc))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// New creates a new TUI model. Banner changes are subscribed to until
// Close is called.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	l := list.New(nil, newListingDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	searchInput := textinput.New()
	searchInput.Placeholder = "Search..."
	searchInput.CharLimit = 100

	m := Model{
		cfg:         cfg,
		fetcher:     opts.Fetcher,
		banners:     opts.Banners,
		prompter:    opts.Prompter,
		mode:        ModeList,
		list:        l,
		searchInput: searchInput,
		help:        help.New(),
		keys:        DefaultKeyMap(),
	}
	for i, c := range catalogs {
		m.queries[i] = listings.NewQuery(c)
		m.results[i] = listings.Result{IsLoading: true}
		m.pages[i] = listings.BuildPage(c, m.queries[i], m.results[i])
	}
	if cfg.TUI.DefaultPage == "services" {
		m.page = pageServices
	}

	if opts.Banners != nil {
		m.bannerView = opts.Banners.Snapshot()
		m.bannerCh, m.stopBanner = subscribe(opts.Banners)
	}
	return m
}

// Close stops the banner subscription.
func (m Model) Close() {
	if m.stopBanner != nil {
		m.stopBanner()
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchCmd(m.page),
		m.waitForBanner,
		m.waitForPrompt,
	)
}

type listingsMsg struct {
	page     int
	query    listings.Query
	listings []model.Listing
	err      error
}

// fetchCmd loads the current query of a page.
func (m Model) fetchCmd(page int) tea.Cmd {
	if m.fetcher == nil {
		return nil
	}
	f := m.fetcher
	q := m.queries[page]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		items, err := f.Fetch(ctx, q)
		return listingsMsg{page: page, query: q, listings: items, err: err}
	}
}

// refetch marks the page as loading and reloads it.
func (m *Model) refetch(page int) tea.Cmd {
	m.results[page] = listings.Result{IsLoading: true}
	m.rebuild(page)
	return m.fetchCmd(page)
}

func (m *Model) rebuild(page int) {
	m.pages[page] = listings.BuildPage(catalogs[page], m.queries[page], m.results[page])
	if page != m.page {
		return
	}
	cards := m.pages[page].Cards
	items := make([]list.Item, len(cards))
	for i, c := range cards {
		items[i] = listingItem{card: c}
	}
	m.list.SetItems(items)
}

func (m Model) waitForPrompt() tea.Msg {
	if m.prompter == nil {
		return nil
	}
	return m.prompter.wait()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case listingsMsg:
		// Drop results of a query the user has already changed.
		if msg.query != m.queries[msg.page] {
			return m, nil
		}
		m.results[msg.page] = listings.Result{Listings: msg.listings, Error: msg.err}
		m.rebuild(msg.page)
		return m, nil

	case bannerMsg:
		m.bannerView = banner.View(msg)
		m.layout()
		return m, m.waitForBanner

	case confirmMsg:
		req := confirmRequest(msg)
		m.confirm = &req
		m.prevMode = m.mode
		m.mode = ModeConfirm
		return m, m.waitForPrompt

	case installResultMsg:
		switch {
		case msg.err != nil:
			return m, setStatus("Install failed: "+msg.err.Error(), true)
		case msg.outcome == model.InstallAccepted:
			return m, setStatus("SokoniArena installed", false)
		default:
			return m, setStatus("Install dismissed", false)
		}

	case notifyResultMsg:
		if msg.granted {
			return m, setStatus("Notifications enabled", false)
		}
		return m, setStatus("Notifications not enabled", false)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, setStatus("Copy failed: "+msg.err.Error(), true)
		}
		return m, setStatus("Copied to clipboard", false)
	}

	switch m.mode {
	case ModeList:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	case ModeDetail:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	case ModeSearch:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

func setStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// layout sizes the components around the header, banners and footer.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	const chrome = 6 // tabs, subtitle, filters, summary, status bar, spacing
	h := m.height - chrome - m.bannerHeight()
	if h < 2 {
		h = 2
	}
	m.list.SetSize(m.width, h)
	m.viewport = viewport.New(m.width, m.height-4)
	m.viewport.YPosition = 2
	if m.selected != nil {
		m.viewport.SetContent(m.renderDetail(*m.selected))
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == ModeConfirm {
		return m.handleConfirmKey(msg)
	}

	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Quit) && m.mode != ModeSearch:
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help) && m.mode != ModeSearch:
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	switch m.mode {
	case ModeList:
		return m.handleListKey(msg)
	case ModeDetail:
		return m.handleDetailKey(msg)
	case ModeSearch:
		return m.handleSearchKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
		return m, nil
	}

	return m, nil
}

// handleBannerKey handles the banner actions, which work in list and
// detail mode. The second result reports whether the key was consumed.
func (m Model) handleBannerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if m.banners == nil {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Install) && m.bannerView.Install.Visible():
		return m, m.acceptInstall(), true

	case key.Matches(msg, m.keys.InstallLater) && m.bannerView.Install.Visible():
		if err := m.banners.DismissInstall(); err != nil {
			return m, setStatus(err.Error(), true), true
		}
		return m, nil, true

	case key.Matches(msg, m.keys.EnableNotify) && m.bannerView.Notification.Visible():
		return m, m.enableNotifications(), true

	case key.Matches(msg, m.keys.NotifyLater) && m.bannerView.Notification.Visible():
		if err := m.banners.DismissNotifications(); err != nil {
			return m, setStatus(err.Error(), true), true
		}
		return m, nil, true
	}
	return m, nil, false
}

// handleListKey handles keys in list mode.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if next, cmd, ok := m.handleBannerKey(msg); ok {
		return next, cmd
	}

	c := catalogs[m.page]
	switch {
	case key.Matches(msg, m.keys.Enter):
		if item, ok := m.list.SelectedItem().(listingItem); ok {
			card := item.card
			m.selected = &card
			m.mode = ModeDetail
			m.viewport.SetContent(m.renderDetail(card))
			m.viewport.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		m.page = (m.page + 1) % len(catalogs)
		m.searchInput.SetValue(m.queries[m.page].SearchQuery)
		m.list.ResetSelected()
		return m, m.refetch(m.page)

	case key.Matches(msg, m.keys.Category):
		m.queries[m.page].Category = c.NextCategory(m.queries[m.page].Category)
		m.list.ResetSelected()
		return m, m.refetch(m.page)

	case key.Matches(msg, m.keys.Sort):
		m.queries[m.page].SortBy = c.NextSort(m.queries[m.page].SortBy)
		m.list.ResetSelected()
		return m, m.refetch(m.page)

	case key.Matches(msg, m.keys.Clear):
		m.queries[m.page] = listings.ClearFilters(c, m.queries[m.page])
		m.searchInput.SetValue("")
		return m, m.refetch(m.page)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refetch(m.page)

	case key.Matches(msg, m.keys.Search):
		m.mode = ModeSearch
		m.searchInput.SetValue(m.queries[m.page].SearchQuery)
		m.searchInput.CursorEnd()
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.CopyAllJSON):
		data, err := json.MarshalIndent(m.pages[m.page], "", "  ")
		if err != nil {
			return m, setStatus("Failed to marshal JSON: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))

	case key.Matches(msg, m.keys.CopyAllYAML):
		data, err := yaml.Marshal(m.pages[m.page])
		if err != nil {
			return m, setStatus("Failed to marshal YAML: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleDetailKey handles keys in detail mode.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if next, cmd, ok := m.handleBannerKey(msg); ok {
		return next, cmd
	}

	if key.Matches(msg, m.keys.Back) {
		m.mode = ModeList
		m.selected = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleSearchKey handles keys in search mode. Every keystroke refetches
// with the new search text.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeList
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		if m.queries[m.page].SearchQuery == "" {
			return m, nil
		}
		m.queries[m.page].SearchQuery = ""
		return m, m.refetch(m.page)

	case tea.KeyEnter:
		m.mode = ModeList
		m.searchInput.Blur()
		return m, nil

	case tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	value := strings.TrimSpace(m.searchInput.Value())
	if value == m.queries[m.page].SearchQuery {
		return m, cmd
	}
	m.queries[m.page].SearchQuery = value
	m.list.ResetSelected()
	return m, tea.Batch(cmd, m.refetch(m.page))
}

// handleConfirmKey answers the pending confirm modal.
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var answer, quit bool
	switch {
	case key.Matches(msg, m.keys.ConfirmYes):
		answer = true
	case key.Matches(msg, m.keys.ConfirmNo):
	case msg.String() == "ctrl+c":
		quit = true
	default:
		return m, nil
	}

	if m.confirm != nil {
		m.confirm.reply <- answer
		m.confirm = nil
	}
	m.mode = m.prevMode
	if quit {
		return m, tea.Quit
	}
	return m, nil
}

// renderDetail renders the detail view for a listing.
func (m Model) renderDetail(c listings.Card) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(c.Title) + "\n\n")

	field := func(label, value string) {
		if value != "" {
			b.WriteString(labelStyle.Render(label+": ") + value + "\n")
		}
	}
	field("Category", c.Category)
	field("Location", c.Location)
	field("Date", c.EventDate)
	field("Price", c.Price)
	field("Image", c.Image)

	if c.Description != "" {
		b.WriteString("\n" + labelStyle.Render("Description:") + "\n")
		b.WriteString(c.Description + "\n")
	}
	return b.String()
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	command := m.cfg.TUI.ClipboardCommand
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, command)}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeList:
		return m.viewList()
	case ModeDetail:
		return m.viewDetail()
	case ModeSearch:
		return m.viewSearch()
	case ModeHelp:
		return m.viewHelp()
	case ModeConfirm:
		return m.viewConfirm()
	default:
		return ""
	}
}

func (m Model) viewTabs() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Underline(true)
	inactive := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	tabs := make([]string, 0, len(catalogs))
	for i, c := range catalogs {
		if i == m.page {
			tabs = append(tabs, active.Render(c.Title))
		} else {
			tabs = append(tabs, inactive.Render(c.Title))
		}
	}
	subtitle := lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Render(catalogs[m.page].Subtitle)
	return strings.Join(tabs, "  ") + "\n" + subtitle
}

func (m Model) viewFilters() string {
	c := catalogs[m.page]
	q := m.queries[m.page]
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	s := label.Render("Category: ") + q.Category + "  " +
		label.Render("Sort: ") + c.SortLabel(q.SortBy)
	if q.SearchQuery != "" {
		s += "  " + label.Render("Search: ") + q.SearchQuery
	}
	return s
}

func (m Model) viewResults() string {
	page := m.pages[m.page]
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	switch page.State {
	case listings.StateLoading:
		return muted.Render("Loading " + catalogs[m.page].Noun + "...")
	case listings.StateError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(page.Message)
	case listings.StateEmpty:
		return muted.Render(page.Message)
	default:
		return m.list.View()
	}
}

func (m Model) viewFooter(mode string) string {
	s := m.viewBanners()
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		return s + statusStyle.Render(m.statusMsg)
	}
	return s + m.buildKeybindBar(m.width, mode)
}

func (m Model) viewList() string {
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.pages[m.page].Summary)
	return m.viewTabs() + "\n" + m.viewFilters() + "\n\n" +
		m.viewResults() + "\n" + summary + "\n" + m.viewFooter("list")
}

func (m Model) viewDetail() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1)

	header := headerStyle.Render(catalogs[m.page].Title + " Detail")
	return header + "\n" + m.viewport.View() + "\n" + m.viewFooter("detail")
}

func (m Model) viewSearch() string {
	countStr := fmt.Sprintf("(%d matches)", len(m.pages[m.page].Cards))
	searchBar := "Search: " + m.searchInput.View() + " " +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(countStr)

	return m.viewTabs() + "\n" + searchBar + "\n\n" + m.viewResults() + "\n" + m.buildKeybindBar(m.width, "search")
}

func (m Model) viewConfirm() string {
	if m.confirm == nil {
		return ""
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("12")).
		Padding(1, 2)

	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	body := lipgloss.NewStyle().Bold(true).Render(m.confirm.title) + "\n\n" +
		m.confirm.description + "\n\n" +
		keyStyle.Render("y") + " yes  " + keyStyle.Render("n") + " no"

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box.Render(body))
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"

	s += sectionStyle.Render("Navigation") + "\n"
	s += keyStyle.Render("  j/k, ↑/↓") + "     Move up/down\n"
	s += keyStyle.Render("  g/G") + "          Go to top/bottom\n"
	s += keyStyle.Render("  pgup/pgdn") + "    Page up/down\n"
	s += keyStyle.Render("  tab") + "          Switch between events and services\n"
	s += "\n"

	s += sectionStyle.Render("Listings") + "\n"
	s += keyStyle.Render("  enter") + "        View listing details\n"
	s += keyStyle.Render("  /") + "            Search by title\n"
	s += keyStyle.Render("  c") + "            Next category\n"
	s += keyStyle.Render("  s") + "            Next sort order\n"
	s += keyStyle.Render("  x") + "            Clear filters\n"
	s += keyStyle.Render("  r") + "            Refresh\n"
	s += keyStyle.Render("  C") + "            Copy page as JSON\n"
	s += keyStyle.Render("  alt+c") + "        Copy page as YAML\n"
	s += "\n"

	s += sectionStyle.Render("Banners") + "\n"
	s += keyStyle.Render("  I / i") + "        Install / not now\n"
	s += keyStyle.Render("  E / e") + "        Enable notifications / not now\n"
	s += "\n"

	s += sectionStyle.Render("General") + "\n"
	s += keyStyle.Render("  ?") + "            Toggle this help\n"
	s += keyStyle.Render("  esc") + "          Back / Cancel\n"
	s += keyStyle.Render("  q") + "            Quit\n"

	s += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		"Press ? or esc to return")

	return s
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// mode determines which keybinds are shown: "list", "detail", "search"
func (m Model) buildKeybindBar(width int, mode string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind

	switch mode {
	case "list":
		binds = []keybind{
			{"q", "quit", 1},
			{"tab", "page", 2},
			{"enter", "view", 3},
			{"/", "search", 4},
			{"c", "category", 5},
			{"s", "sort", 6},
			{"?", "help", 7},
			{"x", "clear", 8},
			{"r", "refresh", 9},
		}
	case "detail":
		binds = []keybind{
			{"q", "quit", 1},
			{"esc", "back", 2},
			{"j/k", "scroll", 3},
		}
	case "search":
		binds = []keybind{
			{"enter", "done", 1},
			{"esc", "clear", 2},
			{"↑/↓", "navigate", 3},
		}
	}

	const separator = "  "
	result := ""
	plainLen := 0
	for _, b := range binds {
		plain := b.key + " " + b.desc
		testLen := plainLen + len(plain)
		if result != "" {
			testLen += len(separator)
		}
		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += keyStyle.Render(b.key) + " " + b.desc
		plainLen = testLen
	}

	return style.Render(result)
}

// Run starts the TUI and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
