package app

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/vidyasagar/navshell/internal/nav"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestIntentForKey(t *testing.T) {
	keys := DefaultKeyMap()
	const current = nav.Location("https://a.example/page")

	tests := []struct {
		name    string
		msg     tea.KeyMsg
		current nav.Location
		want    nav.Intent
		ok      bool
	}{
		{name: "H", msg: runes("H"), current: current, want: nav.GoBack(), ok: true},
		{name: "alt+left", msg: tea.KeyMsg{Type: tea.KeyLeft, Alt: true}, current: current, want: nav.GoBack(), ok: true},
		{name: "L", msg: runes("L"), current: current, want: nav.GoForward(), ok: true},
		{name: "alt+right", msg: tea.KeyMsg{Type: tea.KeyRight, Alt: true}, current: current, want: nav.GoForward(), ok: true},
		{name: "reload", msg: runes("r"), current: current, want: nav.LoadURL(string(current)), ok: true},
		{name: "reload with nothing shown", msg: runes("r")},
		{name: "plain left", msg: tea.KeyMsg{Type: tea.KeyLeft}, current: current},
		{name: "scroll", msg: runes("j"), current: current},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IntentForKey(tt.msg, keys, tt.current)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIntentForMouse(t *testing.T) {
	in, ok := IntentForMouse(tea.MouseMsg{Button: tea.MouseButtonBackward, Action: tea.MouseActionPress})
	assert.True(t, ok)
	assert.Equal(t, nav.GoBack(), in)

	in, ok = IntentForMouse(tea.MouseMsg{Button: tea.MouseButtonForward, Action: tea.MouseActionPress})
	assert.True(t, ok)
	assert.Equal(t, nav.GoForward(), in)

	_, ok = IntentForMouse(tea.MouseMsg{Button: tea.MouseButtonBackward, Action: tea.MouseActionRelease})
	assert.False(t, ok)
	_, ok = IntentForMouse(tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	assert.False(t, ok)
}

func TestNormalizeInput(t *testing.T) {
	tests := map[string]string{
		"":                       "",
		"  https://go.dev/doc  ": "https://go.dev/doc",
		"HTTP://example.com":     "HTTP://example.com",
		"golang.org":             "https://golang.org",
		"how to use goroutines":  searchURL + "how+to+use+goroutines",
		"localhost":              searchURL + "localhost",
		"example.com/a?q=1&b=2":  "https://example.com/a?q=1&b=2",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeInput(in), in)
	}
}

func TestExCommandIntent(t *testing.T) {
	const current = nav.Location("https://a.example")

	in, ok := parseExCommand("open go.dev").intent(current)
	assert.True(t, ok)
	assert.Equal(t, nav.LoadURL("https://go.dev"), in)

	in, ok = parseExCommand(" BACK ").intent(current)
	assert.True(t, ok)
	assert.Equal(t, nav.GoBack(), in)

	in, ok = parseExCommand("forward").intent(current)
	assert.True(t, ok)
	assert.Equal(t, nav.GoForward(), in)

	in, ok = parseExCommand("reload").intent(current)
	assert.True(t, ok)
	assert.Equal(t, nav.LoadURL(string(current)), in)

	_, ok = parseExCommand("reload").intent("")
	assert.False(t, ok)
	_, ok = parseExCommand("open").intent(current)
	assert.False(t, ok)
	_, ok = parseExCommand("theme nord").intent(current)
	assert.False(t, ok)
}
