package app

import (
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vidyasagar/navshell/internal/nav"
)

const searchURL = "https://html.duckduckgo.com/html/?q="

// IntentForKey maps a normal-mode key to the navigation intent it stands
// for. current is the displayed location, which reload needs; reload with
// nothing displayed is not an intent.
func IntentForKey(msg tea.KeyMsg, keys KeyMap, current nav.Location) (nav.Intent, bool) {
	switch {
	case key.Matches(msg, keys.Back):
		return nav.GoBack(), true
	case key.Matches(msg, keys.Forward):
		return nav.GoForward(), true
	case key.Matches(msg, keys.Reload):
		if current == "" {
			return nav.Intent{}, false
		}
		return nav.LoadURL(string(current)), true
	}
	return nav.Intent{}, false
}

// IntentForMouse maps the mouse back and forward buttons.
func IntentForMouse(msg tea.MouseMsg) (nav.Intent, bool) {
	if msg.Action != tea.MouseActionPress {
		return nav.Intent{}, false
	}
	switch msg.Button {
	case tea.MouseButtonBackward:
		return nav.GoBack(), true
	case tea.MouseButtonForward:
		return nav.GoForward(), true
	}
	return nav.Intent{}, false
}

// NormalizeInput turns what a person typed into the URL bar into a URL:
// scheme-qualified input is kept, bare domains get https, and anything else
// becomes a search.
func NormalizeInput(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	if strings.Contains(raw, ".") && !strings.Contains(raw, " ") {
		return "https://" + raw
	}
	return searchURL + url.QueryEscape(raw)
}

// exCommand is a parsed ":" command line.
type exCommand struct {
	name string
	arg  string
}

func parseExCommand(line string) exCommand {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	return exCommand{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}
}

// intent returns the navigation intent for commands that are one.
func (c exCommand) intent(current nav.Location) (nav.Intent, bool) {
	switch c.name {
	case "o", "open":
		if c.arg == "" {
			return nav.Intent{}, false
		}
		return nav.LoadURL(NormalizeInput(c.arg)), true
	case "b", "back":
		return nav.GoBack(), true
	case "f", "forward":
		return nav.GoForward(), true
	case "r", "reload":
		if current == "" {
			return nav.Intent{}, false
		}
		return nav.LoadURL(string(current)), true
	}
	return nav.Intent{}, false
}
