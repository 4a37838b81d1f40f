package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/vidyasagar/navshell/internal/theme"
)

// HelpGroup is a titled column of key bindings.
type HelpGroup struct {
	Name     string
	Bindings []key.Binding
}

// HelpPanel is the keybinding overlay. It is drawn over the page so that
// opening it does not disturb the displayed location.
type HelpPanel struct {
	visible bool
	groups  []HelpGroup
}

func NewHelpPanel(groups []HelpGroup) HelpPanel {
	return HelpPanel{groups: groups}
}

func (hp *HelpPanel) Show()           { hp.visible = true }
func (hp *HelpPanel) Hide()           { hp.visible = false }
func (hp *HelpPanel) IsVisible() bool { return hp.visible }

func (hp *HelpPanel) View() string {
	if !hp.visible {
		return ""
	}
	t := theme.Current

	groupName := lipgloss.NewStyle().Bold(true).Foreground(t.Accent).Underline(true)
	badge := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary).Width(14)
	desc := lipgloss.NewStyle().Foreground(t.Text)
	sep := lipgloss.NewStyle().Foreground(t.Border)

	rows := 0
	for _, g := range hp.groups {
		rows = max(rows, len(g.Bindings))
	}

	var columns []string
	for i, g := range hp.groups {
		lines := []string{groupName.Render(g.Name), ""}
		for _, b := range g.Bindings {
			h := b.Help()
			lines = append(lines, badge.Render(h.Key)+desc.Render(h.Desc))
		}
		for j := len(g.Bindings); j < rows; j++ {
			lines = append(lines, "")
		}
		col := lipgloss.NewStyle().Width(30).Render(strings.Join(lines, "\n"))
		columns = append(columns, col)

		if i < len(hp.groups)-1 {
			bar := make([]string, lipgloss.Height(col))
			for k := range bar {
				bar[k] = sep.Render(" │ ")
			}
			columns = append(columns, strings.Join(bar, "\n"))
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)
	rule := sep.Render(strings.Repeat("─", lipgloss.Width(body)))
	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Render("Keybindings"),
		rule,
		"",
		body,
		"",
		rule,
		lipgloss.NewStyle().Foreground(t.TextDim).Italic(true).Render("press any key to dismiss"),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Render(content)
}
