// Package app is the terminal window: a bubbletea model that owns the
// navigation session and turns keyboard and mouse input into intents.
package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/vidyasagar/navshell/internal/browser"
	"github.com/vidyasagar/navshell/internal/nav"
	"github.com/vidyasagar/navshell/internal/theme"
	"github.com/vidyasagar/navshell/internal/ui"
)

const (
	urlBarHeight    = 3 // border adds two lines
	statusBarHeight = 1
)

// Resizer is implemented by surfaces that render to a column width.
type Resizer interface {
	SetWidth(width int)
}

// Options configures the window.
type Options struct {
	// StartURL is loaded on startup after normalization. Empty shows the
	// welcome screen.
	StartURL string
	Resizer  Resizer
	Logger   *zap.Logger
}

// intentMsg submits an intent from inside the program, e.g. the start URL.
type intentMsg struct {
	nav.Intent
}

// Model is the top-level bubbletea model. While the program runs, its Update
// goroutine is the only goroutine that touches the session.
type Model struct {
	session *nav.Session
	resizer Resizer
	log     *zap.Logger

	urlBar       ui.URLBar
	statusBar    ui.StatusBar
	commandBar   ui.CommandBar
	viewport     ui.PageViewport
	historyPanel ui.HistoryPanel
	helpPanel    ui.HelpPanel

	keys     KeyMap
	mode     ui.Mode
	page     *browser.RenderedPage
	width    int
	height   int
	ready    bool
	lastGKey bool
	startURL string
}

// New creates the window for session.
func New(session *nav.Session, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	keys := DefaultKeyMap()
	m := Model{
		session:      session,
		resizer:      opts.Resizer,
		log:          opts.Logger.Named("app"),
		urlBar:       ui.NewURLBar(),
		statusBar:    ui.NewStatusBar(),
		commandBar:   ui.NewCommandBar(),
		viewport:     ui.NewPageViewport(),
		historyPanel: ui.NewHistoryPanel(),
		helpPanel:    ui.NewHelpPanel(keys.HelpGroups()),
		keys:         keys,
		mode:         ui.ModeNormal,
		startURL:     opts.StartURL,
	}
	m.sync()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.startURL == "" {
		return nil
	}
	in := nav.LoadURL(NormalizeInput(m.startURL))
	return func() tea.Msg { return intentMsg{in} }
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case sessionOpMsg:
		msg.fn(m.session)
		m.sync()
		return m, nil

	case loadResultMsg:
		m.handleLoadResult(msg.Result)
		return m, nil

	case intentMsg:
		m.submit(msg.Intent)
		return m, nil

	case tea.MouseMsg:
		if in, ok := IntentForMouse(msg); ok {
			m.submit(in)
			return m, nil
		}
		cmd := m.viewport.Update(msg)
		m.statusBar.SetScrollInfo(m.viewport.ScrollInfo())
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.urlBar.IsActive() {
		return m, m.urlBar.Update(msg)
	}
	if m.commandBar.IsActive() {
		return m, m.commandBar.Update(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "\n  Starting navshell..."
	}
	t := theme.Current

	sections := []string{m.urlBar.View()}

	if m.historyPanel.IsVisible() {
		divider := make([]string, m.contentHeight())
		for i := range divider {
			divider[i] = "│"
		}
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
			m.historyPanel.View(),
			lipgloss.NewStyle().Foreground(t.Border).Render(strings.Join(divider, "\n")),
			m.viewport.View(),
		))
	} else {
		sections = append(sections, m.viewport.View())
	}

	sections = append(sections, m.statusBar.View())
	if m.commandBar.IsActive() {
		sections = append(sections, m.commandBar.View())
	}
	out := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.helpPanel.IsVisible() {
		out = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.helpPanel.View(),
			lipgloss.WithWhitespaceChars(" "),
			lipgloss.WithWhitespaceForeground(t.Background),
		)
	}
	return out
}

func (m *Model) contentHeight() int {
	h := m.height - urlBarHeight - statusBarHeight
	if m.commandBar.IsActive() {
		h--
	}
	return max(h, 1)
}

// layout recalculates component sizes and tells the surface the page width.
func (m *Model) layout() {
	m.urlBar.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.commandBar.SetWidth(m.width)

	height := m.contentHeight()
	width := m.width
	if m.historyPanel.IsVisible() {
		panel := max(m.width*35/100, 24)
		m.historyPanel.SetSize(panel, height)
		width = m.width - panel - 1
	}
	m.viewport.SetSize(width, height)
	if m.resizer != nil {
		m.resizer.SetWidth(m.viewport.Width())
	}
}

// sync copies session state into the chrome.
func (m *Model) sync() {
	snap := m.session.Snapshot()
	var pending string
	if req, ok := m.session.InFlight(); ok {
		pending = string(req.Location)
	}
	m.urlBar.SetLocation(string(snap.Current), pending)
	m.statusBar.SetNav(ui.NavState{
		CanGoBack:    snap.CanGoBack,
		CanGoForward: snap.CanGoForward,
		Pending:      snap.Pending,
		Position:     snap.Position,
		Entries:      len(snap.Entries),
	})
	m.historyPanel.SetEntries(snap.Entries, snap.Position)
	m.statusBar.SetScrollInfo(m.viewport.ScrollInfo())
}

// submit hands in to the session. A rejection is always reported in the
// status bar.
func (m *Model) submit(in nav.Intent) {
	id, err := m.session.Submit(in)
	if err != nil {
		msg, level := rejection(in, err)
		m.statusBar.SetMessage(msg, level)
	} else {
		m.statusBar.ClearMessage()
		m.log.Debug("intent submitted", zap.Stringer("intent", in.Kind), zap.Uint64("load", uint64(id)))
	}
	m.sync()
}

func rejection(in nav.Intent, err error) (string, ui.MessageLevel) {
	switch {
	case errors.Is(err, nav.ErrBusy):
		return "Busy: a page is still loading", ui.LevelWarn
	case errors.Is(err, nav.ErrAtHistoryBoundary):
		if in.Kind == nav.IntentGoForward {
			return "No next page in history", ui.LevelWarn
		}
		return "No previous page in history", ui.LevelWarn
	case errors.Is(err, nav.ErrInvalidLocation):
		return "Not a valid URL: " + in.URL, ui.LevelError
	default:
		return err.Error(), ui.LevelError
	}
}

// handleLoadResult applies a surface result and shows the outcome if it is
// still relevant to the session.
func (m *Model) handleLoadResult(r browser.Result) {
	req, inFlight := m.session.InFlight()
	current := inFlight && r.ID != 0 && req.ID == r.ID
	r.Apply(m.session)

	switch {
	case r.ID == 0:
		if loc, ok := m.session.CurrentLocation(); ok && loc == r.Final && r.Page != nil {
			m.showPage(r.Page)
		}
	case !current:
		m.log.Debug("dropping stale load result", zap.Uint64("load", uint64(r.ID)))
	case r.Err != nil:
		m.showError(r.Requested, r.Err)
	default:
		m.showPage(r.Page)
	}
	m.sync()
}

func (m *Model) showPage(page *browser.RenderedPage) {
	if page == nil {
		return
	}
	m.page = page
	m.viewport.SetContent(page.Content)
	m.statusBar.SetTitle(page.Title)
	m.statusBar.SetLinkCount(len(page.Links))
	if page.StatusCode >= 400 {
		m.statusBar.SetMessage(fmt.Sprintf("HTTP %d", page.StatusCode), ui.LevelWarn)
	}
}

// showError replaces the page with a description of the failed load. History
// is not touched, so the previous location remains current.
func (m *Model) showError(loc nav.Location, err error) {
	t := theme.Current
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(t.Error).Render("  Could not load page"))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.NewStyle().Foreground(t.Link).Render("  " + string(loc)))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.NewStyle().Foreground(t.Text).Render("  " + err.Error()))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Render("  History is unchanged. Press r to reload the current page or o to open another."))
	sb.WriteString("\n")

	m.page = nil
	m.viewport.SetContent(sb.String())
	m.statusBar.SetTitle("")
	m.statusBar.SetLinkCount(0)
	m.statusBar.SetMessage("Load failed: "+err.Error(), ui.LevelError)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.helpPanel.IsVisible() {
		m.helpPanel.Hide()
		return m, nil
	}

	switch m.mode {
	case ui.ModeInsert:
		return m.handleInsertMode(msg)
	case ui.ModeCommand, ui.ModeFollow:
		return m.handleCommandMode(msg)
	case ui.ModeHistory:
		return m.handleHistoryMode(msg)
	default:
		return m.handleNormalMode(msg)
	}
}

func (m Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	current, _ := m.session.CurrentLocation()
	if in, ok := IntentForKey(msg, m.keys, current); ok {
		m.lastGKey = false
		m.submit(in)
		return m, nil
	}

	gPressed := false
	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Reload):
		m.statusBar.SetMessage("Nothing to reload", ui.LevelWarn)

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.LineDown(1)
	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.LineUp(1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.viewport.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.viewport.HalfPageUp()
	case key.Matches(msg, m.keys.GotoBottom):
		m.viewport.GotoBottom()
	case key.Matches(msg, m.keys.GotoTop):
		if m.lastGKey {
			m.viewport.GotoTop()
		} else {
			gPressed = true
		}

	case key.Matches(msg, m.keys.OpenURL):
		m.mode = ui.ModeInsert
		m.statusBar.SetMode(m.mode)
		cmd = m.urlBar.Focus()

	case key.Matches(msg, m.keys.FollowLink):
		if m.page == nil || len(m.page.Links) == 0 {
			m.statusBar.SetMessage("No links on this page", ui.LevelInfo)
			break
		}
		m.mode = ui.ModeFollow
		m.statusBar.SetMode(m.mode)
		cmd = m.commandBar.Open(ui.CommandFollow)
		m.layout()

	case key.Matches(msg, m.keys.CommandMode):
		m.mode = ui.ModeCommand
		m.statusBar.SetMode(m.mode)
		cmd = m.commandBar.Open(ui.CommandEx)
		m.layout()

	case key.Matches(msg, m.keys.HistoryToggle):
		m.toggleHistory()

	case key.Matches(msg, m.keys.CycleTheme):
		next := theme.Next()
		m.statusBar.SetMessage("Theme: "+next.Name, ui.LevelInfo)

	case key.Matches(msg, m.keys.Help):
		m.helpPanel.Show()

	default:
		cmd = m.viewport.Update(msg)
	}

	m.lastGKey = gPressed
	m.statusBar.SetScrollInfo(m.viewport.ScrollInfo())
	return m, cmd
}

func (m Model) handleInsertMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		target := NormalizeInput(m.urlBar.Value())
		m.leaveMode()
		if target != "" {
			m.submit(nav.LoadURL(target))
		}
		return m, nil
	case tea.KeyEsc:
		m.leaveMode()
		return m, nil
	}
	return m, m.urlBar.Update(msg)
}

func (m Model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		res := m.commandBar.Submit()
		m.leaveMode()
		switch res.Type {
		case ui.CommandEx:
			return m, m.executeCommand(res.Value)
		case ui.CommandFollow:
			m.followLink(res.Value)
		}
		return m, nil
	}

	cmd := m.commandBar.Update(msg)
	if !m.commandBar.IsActive() {
		m.leaveMode()
	}
	return m, cmd
}

func (m Model) handleHistoryMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.historyPanel.CursorDown()
	case "k", "up":
		m.historyPanel.CursorUp()
	case "ctrl+d":
		m.historyPanel.HalfPageDown()
	case "ctrl+u":
		m.historyPanel.HalfPageUp()
	case "G":
		m.historyPanel.GotoBottom()
	case "g":
		m.historyPanel.HandleGKey()
	case "enter":
		entry, ok := m.historyPanel.Selected()
		m.toggleHistory()
		if ok {
			m.submit(nav.LoadURL(string(entry.Location)))
		}
	case "esc", "q", "ctrl+h":
		m.toggleHistory()
	}
	return m, nil
}

// leaveMode returns to normal mode from any input mode.
func (m *Model) leaveMode() {
	m.urlBar.Blur()
	if m.commandBar.IsActive() {
		m.commandBar.Close()
	}
	m.mode = ui.ModeNormal
	m.statusBar.SetMode(m.mode)
	m.layout()
}

func (m *Model) toggleHistory() {
	m.historyPanel.Toggle()
	if m.historyPanel.IsVisible() {
		m.mode = ui.ModeHistory
	} else {
		m.mode = ui.ModeNormal
	}
	m.statusBar.SetMode(m.mode)
	m.layout()
}

// executeCommand runs a ":" command line.
func (m *Model) executeCommand(line string) tea.Cmd {
	c := parseExCommand(line)
	current, _ := m.session.CurrentLocation()
	if in, ok := c.intent(current); ok {
		m.submit(in)
		return nil
	}

	switch c.name {
	case "":
	case "q", "quit":
		return tea.Quit
	case "o", "open":
		m.statusBar.SetMessage("Usage: :open <url>", ui.LevelInfo)
	case "r", "reload":
		m.statusBar.SetMessage("Nothing to reload", ui.LevelWarn)
	case "history":
		m.toggleHistory()
	case "help":
		m.helpPanel.Show()
	case "theme":
		switch {
		case c.arg == "":
			m.statusBar.SetMessage(fmt.Sprintf("Theme: %s (available: %s)",
				theme.Current.Name, strings.Join(theme.List(), ", ")), ui.LevelInfo)
		case theme.Set(c.arg):
			m.statusBar.SetMessage("Theme: "+c.arg, ui.LevelInfo)
		default:
			m.statusBar.SetMessage(fmt.Sprintf("Unknown theme: %s (available: %s)",
				c.arg, strings.Join(theme.List(), ", ")), ui.LevelError)
		}
	default:
		m.statusBar.SetMessage("Unknown command: "+c.name, ui.LevelError)
	}
	return nil
}

// followLink loads the link numbered value on the displayed page.
func (m *Model) followLink(value string) {
	n, err := strconv.Atoi(value)
	if err != nil {
		m.statusBar.SetMessage("Not a link number: "+value, ui.LevelError)
		return
	}
	if m.page != nil {
		for _, link := range m.page.Links {
			if link.Index == n {
				m.submit(nav.LoadURL(link.URL))
				return
			}
		}
	}
	m.statusBar.SetMessage(fmt.Sprintf("No link %d on this page", n), ui.LevelError)
}
