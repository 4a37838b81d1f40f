package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vidyasagar/navshell/internal/theme"
)

// Mode is the input mode shown at the left of the status bar.
type Mode string

const (
	ModeNormal  Mode = "NORMAL"
	ModeInsert  Mode = "INSERT"
	ModeCommand Mode = "COMMAND"
	ModeFollow  Mode = "FOLLOW"
	ModeHistory Mode = "HISTORY"
)

// MessageLevel colors a status message.
type MessageLevel int

const (
	LevelInfo MessageLevel = iota
	LevelWarn
	LevelError
)

// NavState is the slice of session state the status bar displays.
type NavState struct {
	CanGoBack    bool
	CanGoForward bool
	Pending      bool
	Position     int // -1 with no history
	Entries      int
}

// StatusBar is the bottom line: mode, page title or message, navigation
// availability and scroll position.
type StatusBar struct {
	mode       Mode
	title      string
	message    string
	level      MessageLevel
	nav        NavState
	linkCount  int
	scrollInfo string
	width      int
}

func NewStatusBar() StatusBar {
	return StatusBar{mode: ModeNormal, nav: NavState{Position: -1}}
}

func (s *StatusBar) SetWidth(w int)            { s.width = w }
func (s *StatusBar) SetMode(m Mode)            { s.mode = m }
func (s *StatusBar) SetTitle(title string)     { s.title = title }
func (s *StatusBar) SetLinkCount(n int)        { s.linkCount = n }
func (s *StatusBar) SetScrollInfo(info string) { s.scrollInfo = info }
func (s *StatusBar) SetNav(n NavState)         { s.nav = n }

// SetMessage shows msg in place of the title until ClearMessage.
func (s *StatusBar) SetMessage(msg string, level MessageLevel) {
	s.message = msg
	s.level = level
}

func (s *StatusBar) ClearMessage() {
	s.message = ""
}

func (s *StatusBar) View() string {
	t := theme.Current

	modeBg := t.Primary
	switch s.mode {
	case ModeInsert:
		modeBg = t.Success
	case ModeCommand:
		modeBg = t.Accent
	case ModeFollow:
		modeBg = t.Link
	case ModeHistory:
		modeBg = t.Secondary
	}
	mode := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(t.Background).
		Background(modeBg).
		Render(string(s.mode))

	segment := lipgloss.NewStyle().Background(t.Surface).Padding(0, 1)

	var left string
	switch {
	case s.message != "":
		fg := t.Info
		switch s.level {
		case LevelWarn:
			fg = t.Warning
		case LevelError:
			fg = t.Error
		}
		left = segment.Foreground(fg).Render(s.message)
	case s.nav.Pending:
		left = segment.Foreground(t.Warning).Bold(true).Render("Loading...")
	case s.title != "":
		left = segment.Foreground(t.Text).Render(s.title)
	}

	var right strings.Builder
	if s.linkCount > 0 {
		right.WriteString(segment.Foreground(t.TextDim).Render(fmt.Sprintf("%d links", s.linkCount)))
	}
	right.WriteString(s.navIndicator())
	if s.scrollInfo != "" {
		right.WriteString(segment.Bold(true).Foreground(t.Secondary).Render(s.scrollInfo))
	}

	spacer := s.width - lipgloss.Width(mode) - lipgloss.Width(left) - lipgloss.Width(right.String())
	if spacer < 0 {
		spacer = 0
	}
	fill := lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", spacer))

	return lipgloss.NewStyle().Background(t.Surface).Render(mode + left + fill + right.String())
}

// navIndicator renders "◀ 2/5 ▶" with unavailable directions dimmed.
func (s *StatusBar) navIndicator() string {
	t := theme.Current
	on := lipgloss.NewStyle().Background(t.Surface).Foreground(t.TextBright).Bold(true)
	off := lipgloss.NewStyle().Background(t.Surface).Foreground(t.TextDim)

	back, fwd := off.Render("◀"), off.Render("▶")
	if s.nav.CanGoBack {
		back = on.Render("◀")
	}
	if s.nav.CanGoForward {
		fwd = on.Render("▶")
	}

	pos := "-"
	if s.nav.Position >= 0 {
		pos = fmt.Sprintf("%d/%d", s.nav.Position+1, s.nav.Entries)
	}
	return lipgloss.NewStyle().Background(t.Surface).Padding(0, 1).
		Render(back + off.Render(" "+pos+" ") + fwd)
}
