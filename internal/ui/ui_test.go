package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyasagar/navshell/internal/nav"
)

func entries(locs ...string) []nav.Entry {
	out := make([]nav.Entry, len(locs))
	for i, l := range locs {
		out[i] = nav.Entry{Location: nav.Location(l), RecordedAt: time.Unix(int64(i), 0)}
	}
	return out
}

func TestHistoryPanelCursor(t *testing.T) {
	hp := NewHistoryPanel()
	hp.SetSize(40, 20)
	hp.SetEntries(entries("https://a.test", "https://b.test", "https://c.test"), 1)

	hp.Show()
	assert.Equal(t, 1, hp.Cursor(), "opens on the displayed entry")

	hp.CursorDown()
	hp.CursorDown()
	assert.Equal(t, 2, hp.Cursor())

	assert.False(t, hp.HandleGKey())
	assert.True(t, hp.HandleGKey())
	assert.Equal(t, 0, hp.Cursor())

	sel, ok := hp.Selected()
	require.True(t, ok)
	assert.Equal(t, nav.Location("https://a.test"), sel.Location)

	hp.SetEntries(entries("https://d.test"), 0)
	assert.Equal(t, 0, hp.Cursor())
}

func TestHistoryPanelEmpty(t *testing.T) {
	hp := NewHistoryPanel()
	hp.Show()
	_, ok := hp.Selected()
	assert.False(t, ok)
	assert.Equal(t, 0, hp.Cursor())
}

func TestPageViewportWidthAndScroll(t *testing.T) {
	pv := NewPageViewport()
	assert.Equal(t, 0, pv.Width())
	assert.Empty(t, pv.ScrollInfo())

	pv.SetSize(60, 10)
	assert.Equal(t, 60, pv.Width())
	assert.Empty(t, pv.ScrollInfo(), "nothing to scroll before a page is shown")

	pv.SetContent("one line")
	assert.NotEmpty(t, pv.ScrollInfo())

	pv.SetSize(30, 10)
	assert.Equal(t, 30, pv.Width())
}

func TestCommandBarSubmit(t *testing.T) {
	c := NewCommandBar()
	c.Open(CommandFollow)
	require.True(t, c.IsActive())

	res := c.Submit()
	assert.Equal(t, CommandFollow, res.Type)
	assert.Empty(t, res.Value)
	assert.False(t, c.IsActive())
}
