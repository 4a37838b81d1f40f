package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vidyasagar/navshell/internal/theme"
)

// URLBar shows the current location, or the target of a load in flight, and
// doubles as the input for new locations.
type URLBar struct {
	input   textinput.Model
	active  bool
	width   int
	current string
	pending string
}

func NewURLBar() URLBar {
	ti := textinput.New()
	ti.Placeholder = "Enter a URL..."
	ti.CharLimit = 2048
	ti.Width = 60
	return URLBar{input: ti}
}

func (u *URLBar) SetWidth(w int) {
	u.width = w
	u.input.Width = w - 8
}

// SetLocation records what the bar shows while it is not being edited. An
// empty pending means no load is in flight.
func (u *URLBar) SetLocation(current, pending string) {
	u.current = current
	u.pending = pending
}

// Focus starts editing, prefilled with the current location.
func (u *URLBar) Focus() tea.Cmd {
	u.active = true
	u.input.SetValue(u.current)
	u.input.CursorEnd()
	return u.input.Focus()
}

func (u *URLBar) Blur() {
	u.active = false
	u.input.Blur()
	u.input.Reset()
}

func (u *URLBar) IsActive() bool {
	return u.active
}

func (u *URLBar) Value() string {
	return u.input.Value()
}

func (u *URLBar) Update(msg tea.Msg) tea.Cmd {
	if !u.active {
		return nil
	}
	var cmd tea.Cmd
	u.input, cmd = u.input.Update(msg)
	return cmd
}

func (u *URLBar) View() string {
	t := theme.Current

	border := t.Border
	fg := t.TextDim
	if u.active {
		border = t.BorderFocus
		fg = t.Text
	}
	barStyle := lipgloss.NewStyle().
		Foreground(fg).
		Background(t.Surface).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(u.width - 2)
	prompt := lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render(">")

	if u.active {
		return barStyle.Render(prompt + " " + u.input.View())
	}

	var content string
	switch {
	case u.pending != "":
		arrow := lipgloss.NewStyle().Foreground(t.Warning).Render("→ ")
		content = arrow + lipgloss.NewStyle().Foreground(t.Text).Render(u.pending)
	case u.current != "":
		content = lipgloss.NewStyle().Foreground(t.Text).Render(u.current)
	default:
		content = lipgloss.NewStyle().Foreground(t.TextDim).Render(u.input.Placeholder)
	}
	return barStyle.Render(prompt + " " + content)
}
