package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vidyasagar/navshell/internal/nav"
	"github.com/vidyasagar/navshell/internal/theme"
)

// HistoryPanel lists the session's back/forward entries, oldest first, with
// the displayed entry marked.
type HistoryPanel struct {
	entries  []nav.Entry
	position int
	cursor   int
	offset   int
	width    int
	height   int
	visible  bool
	lastGKey bool
	now      func() time.Time
}

func NewHistoryPanel() HistoryPanel {
	return HistoryPanel{position: -1, now: time.Now}
}

// SetEntries replaces the list. The cursor is kept where it was if it is
// still in range, and otherwise moved to position.
func (hp *HistoryPanel) SetEntries(entries []nav.Entry, position int) {
	hp.entries = entries
	hp.position = position
	if hp.cursor >= len(entries) || hp.cursor < 0 {
		hp.cursor = max(position, 0)
	}
	hp.ensureVisible()
}

func (hp *HistoryPanel) SetSize(w, h int) {
	hp.width = w
	hp.height = h
	hp.ensureVisible()
}

// Show opens the panel with the cursor on the displayed entry.
func (hp *HistoryPanel) Show() {
	hp.visible = true
	hp.lastGKey = false
	hp.cursor = max(hp.position, 0)
	hp.offset = 0
	hp.ensureVisible()
}

func (hp *HistoryPanel) Hide() {
	hp.visible = false
	hp.lastGKey = false
}

func (hp *HistoryPanel) IsVisible() bool {
	return hp.visible
}

func (hp *HistoryPanel) Toggle() {
	if hp.visible {
		hp.Hide()
	} else {
		hp.Show()
	}
}

func (hp *HistoryPanel) CursorUp() {
	hp.lastGKey = false
	if hp.cursor > 0 {
		hp.cursor--
		hp.ensureVisible()
	}
}

func (hp *HistoryPanel) CursorDown() {
	hp.lastGKey = false
	if hp.cursor < len(hp.entries)-1 {
		hp.cursor++
		hp.ensureVisible()
	}
}

func (hp *HistoryPanel) GotoTop() {
	hp.lastGKey = false
	hp.cursor = 0
	hp.offset = 0
}

func (hp *HistoryPanel) GotoBottom() {
	hp.lastGKey = false
	if len(hp.entries) > 0 {
		hp.cursor = len(hp.entries) - 1
		hp.ensureVisible()
	}
}

func (hp *HistoryPanel) HalfPageDown() {
	hp.lastGKey = false
	hp.cursor = min(hp.cursor+hp.visibleCount()/2, len(hp.entries)-1)
	hp.cursor = max(hp.cursor, 0)
	hp.ensureVisible()
}

func (hp *HistoryPanel) HalfPageUp() {
	hp.lastGKey = false
	hp.cursor = max(hp.cursor-hp.visibleCount()/2, 0)
	hp.ensureVisible()
}

// HandleGKey reports true when a second g completes "gg".
func (hp *HistoryPanel) HandleGKey() bool {
	if hp.lastGKey {
		hp.GotoTop()
		return true
	}
	hp.lastGKey = true
	return false
}

// Selected returns the entry under the cursor.
func (hp *HistoryPanel) Selected() (nav.Entry, bool) {
	if hp.cursor < 0 || hp.cursor >= len(hp.entries) {
		return nav.Entry{}, false
	}
	return hp.entries[hp.cursor], true
}

// Cursor returns the cursor index.
func (hp *HistoryPanel) Cursor() int {
	return hp.cursor
}

// visibleCount is the number of entries that fit: two header lines, one
// footer line, one line per entry.
func (hp *HistoryPanel) visibleCount() int {
	return max(hp.height-3, 1)
}

func (hp *HistoryPanel) ensureVisible() {
	visible := hp.visibleCount()
	if hp.cursor < hp.offset {
		hp.offset = hp.cursor
	}
	if hp.cursor >= hp.offset+visible {
		hp.offset = hp.cursor - visible + 1
	}
	hp.offset = max(hp.offset, 0)
}

func (hp *HistoryPanel) View() string {
	if !hp.visible {
		return ""
	}
	t := theme.Current

	panel := lipgloss.NewStyle().Width(hp.width).Height(hp.height).Background(t.Background)
	row := lipgloss.NewStyle().Width(hp.width).Padding(0, 1)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Padding(0, 1)

	var sb strings.Builder
	sb.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		Background(t.Surface).
		Width(hp.width).
		Padding(0, 1).
		Render(fmt.Sprintf("History (%d)", len(hp.entries))))
	sb.WriteString("\n")
	sb.WriteString(lipgloss.NewStyle().Foreground(t.Border).Render(strings.Repeat("─", max(hp.width-2, 1))))
	sb.WriteString("\n")

	if len(hp.entries) == 0 {
		sb.WriteString(dim.Render("Nothing visited yet."))
		return panel.Render(sb.String())
	}

	end := min(hp.offset+hp.visibleCount(), len(hp.entries))
	maxURL := max(hp.width-20, 10)
	now := hp.now()

	for i := hp.offset; i < end; i++ {
		e := hp.entries[i]
		url := string(e.Location)
		if len(url) > maxURL {
			url = url[:maxURL-3] + "..."
		}

		marker := "  "
		if i == hp.position {
			marker = "● "
		}
		line := fmt.Sprintf("%s%3d  %s  %s", marker, i+1, url, timeAgo(now, e.RecordedAt))

		style := row.Foreground(t.Text)
		switch {
		case i == hp.cursor:
			style = row.Foreground(t.TextBright).Background(t.Selection).Bold(true)
		case i == hp.position:
			style = row.Foreground(t.Link)
		case i > hp.position:
			style = row.Foreground(t.TextDim)
		}
		sb.WriteString(style.Render(line))
		sb.WriteString("\n")
	}

	if remaining := hp.height - 2 - (end - hp.offset); remaining > 1 {
		sb.WriteString(strings.Repeat("\n", remaining-1))
		sb.WriteString(dim.Italic(true).Render("j/k:move  Enter:open  Esc:close"))
	}
	return panel.Render(sb.String())
}

func timeAgo(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
