package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vidyasagar/navshell/internal/theme"
)

// PageViewport shows the rendered page of the current location.
type PageViewport struct {
	viewport   viewport.Model
	ready      bool
	contentSet bool
}

// NewPageViewport creates a viewport. Its size is set on the first
// WindowSizeMsg.
func NewPageViewport() PageViewport {
	return PageViewport{}
}

// SetSize updates the viewport dimensions.
func (pv *PageViewport) SetSize(width, height int) {
	if !pv.ready {
		pv.viewport = viewport.New(width, height)
		pv.viewport.MouseWheelEnabled = true
		pv.viewport.MouseWheelDelta = 3
		pv.ready = true
		return
	}
	pv.viewport.Width = width
	pv.viewport.Height = height
}

// SetContent replaces the page and scrolls to the top.
func (pv *PageViewport) SetContent(content string) {
	if !pv.ready {
		return
	}
	pv.viewport.SetContent(content)
	pv.contentSet = true
	pv.viewport.GotoTop()
}

// Update forwards messages (mouse wheel, paging keys) to the viewport.
func (pv *PageViewport) Update(msg tea.Msg) tea.Cmd {
	if !pv.ready {
		return nil
	}
	var cmd tea.Cmd
	pv.viewport, cmd = pv.viewport.Update(msg)
	return cmd
}

func (pv *PageViewport) View() string {
	if !pv.ready {
		return "\n  Initializing..."
	}
	if !pv.contentSet {
		return pv.renderWelcome()
	}
	return pv.viewport.View()
}

// ScrollInfo returns "TOP", "BOT" or a percentage.
func (pv *PageViewport) ScrollInfo() string {
	if !pv.ready || !pv.contentSet {
		return ""
	}
	pct := pv.viewport.ScrollPercent()
	switch {
	case pct <= 0:
		return "TOP"
	case pct >= 1:
		return "BOT"
	default:
		return fmt.Sprintf("%d%%", int(pct*100))
	}
}

func (pv *PageViewport) HalfPageDown() {
	if pv.ready {
		pv.viewport.HalfViewDown()
	}
}

func (pv *PageViewport) HalfPageUp() {
	if pv.ready {
		pv.viewport.HalfViewUp()
	}
}

func (pv *PageViewport) LineDown(n int) {
	if pv.ready {
		pv.viewport.LineDown(n)
	}
}

func (pv *PageViewport) LineUp(n int) {
	if pv.ready {
		pv.viewport.LineUp(n)
	}
}

func (pv *PageViewport) GotoTop() {
	if pv.ready {
		pv.viewport.GotoTop()
	}
}

func (pv *PageViewport) GotoBottom() {
	if pv.ready {
		pv.viewport.GotoBottom()
	}
}

// Width returns the viewport width, or 0 before the first resize.
func (pv *PageViewport) Width() int {
	if !pv.ready {
		return 0
	}
	return pv.viewport.Width
}

func (pv *PageViewport) renderWelcome() string {
	t := theme.Current

	title := lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	dim := lipgloss.NewStyle().Foreground(t.TextDim)
	heading := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	key := lipgloss.NewStyle().Foreground(t.Secondary)
	desc := lipgloss.NewStyle().Foreground(t.Text)

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(title.Render("  navshell"))
	sb.WriteString("\n")
	sb.WriteString(dim.Render("  One window, one history, driven by keys or by an agent"))
	sb.WriteString("\n\n")
	sb.WriteString(heading.Render("  Navigation"))
	sb.WriteString("\n\n")

	for _, s := range []struct{ key, desc string }{
		{"o", "Open a URL"},
		{"f", "Follow a numbered link"},
		{"H / alt+left", "Back"},
		{"L / alt+right", "Forward"},
		{"r", "Reload"},
		{"ctrl+h", "History"},
		{":", "Command line"},
		{"?", "All keybindings"},
		{"q", "Quit"},
	} {
		sb.WriteString(key.Render(fmt.Sprintf("    %-16s", s.key)))
		sb.WriteString(desc.Render(s.desc))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(dim.Render("  Mouse back and forward buttons work too"))
	sb.WriteString("\n")
	return sb.String()
}
