// Package theme holds the TUI color palettes.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme is a palette for the chrome around the page. Glamour names the
// standard glamour style pages are rendered with.
type Theme struct {
	Name    string
	Glamour string

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	Text       lipgloss.Color
	TextDim    lipgloss.Color
	TextBright lipgloss.Color

	Background  lipgloss.Color
	Surface     lipgloss.Color
	Selection   lipgloss.Color
	Border      lipgloss.Color
	BorderFocus lipgloss.Color

	Link    lipgloss.Color
	Error   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Info    lipgloss.Color
}

var Default = Theme{
	Name:        "default",
	Glamour:     "dark",
	Primary:     lipgloss.Color("#7C3AED"),
	Secondary:   lipgloss.Color("#06B6D4"),
	Accent:      lipgloss.Color("#F59E0B"),
	Text:        lipgloss.Color("#E2E8F0"),
	TextDim:     lipgloss.Color("#64748B"),
	TextBright:  lipgloss.Color("#F8FAFC"),
	Background:  lipgloss.Color("#0F172A"),
	Surface:     lipgloss.Color("#1E293B"),
	Selection:   lipgloss.Color("#4C1D95"),
	Border:      lipgloss.Color("#334155"),
	BorderFocus: lipgloss.Color("#7C3AED"),
	Link:        lipgloss.Color("#38BDF8"),
	Error:       lipgloss.Color("#EF4444"),
	Success:     lipgloss.Color("#22C55E"),
	Warning:     lipgloss.Color("#F59E0B"),
	Info:        lipgloss.Color("#3B82F6"),
}

var Gruvbox = Theme{
	Name:        "gruvbox",
	Glamour:     "dark",
	Primary:     lipgloss.Color("#D65D0E"),
	Secondary:   lipgloss.Color("#458588"),
	Accent:      lipgloss.Color("#D79921"),
	Text:        lipgloss.Color("#EBDBB2"),
	TextDim:     lipgloss.Color("#928374"),
	TextBright:  lipgloss.Color("#FBF1C7"),
	Background:  lipgloss.Color("#282828"),
	Surface:     lipgloss.Color("#3C3836"),
	Selection:   lipgloss.Color("#665C54"),
	Border:      lipgloss.Color("#504945"),
	BorderFocus: lipgloss.Color("#D65D0E"),
	Link:        lipgloss.Color("#83A598"),
	Error:       lipgloss.Color("#FB4934"),
	Success:     lipgloss.Color("#B8BB26"),
	Warning:     lipgloss.Color("#FABD2F"),
	Info:        lipgloss.Color("#83A598"),
}

var Nord = Theme{
	Name:        "nord",
	Glamour:     "dark",
	Primary:     lipgloss.Color("#88C0D0"),
	Secondary:   lipgloss.Color("#81A1C1"),
	Accent:      lipgloss.Color("#EBCB8B"),
	Text:        lipgloss.Color("#ECEFF4"),
	TextDim:     lipgloss.Color("#4C566A"),
	TextBright:  lipgloss.Color("#ECEFF4"),
	Background:  lipgloss.Color("#2E3440"),
	Surface:     lipgloss.Color("#3B4252"),
	Selection:   lipgloss.Color("#434C5E"),
	Border:      lipgloss.Color("#434C5E"),
	BorderFocus: lipgloss.Color("#88C0D0"),
	Link:        lipgloss.Color("#88C0D0"),
	Error:       lipgloss.Color("#BF616A"),
	Success:     lipgloss.Color("#A3BE8C"),
	Warning:     lipgloss.Color("#EBCB8B"),
	Info:        lipgloss.Color("#5E81AC"),
}

var SolarizedLight = Theme{
	Name:        "solarized-light",
	Glamour:     "light",
	Primary:     lipgloss.Color("#268BD2"),
	Secondary:   lipgloss.Color("#2AA198"),
	Accent:      lipgloss.Color("#B58900"),
	Text:        lipgloss.Color("#657B83"),
	TextDim:     lipgloss.Color("#93A1A1"),
	TextBright:  lipgloss.Color("#073642"),
	Background:  lipgloss.Color("#FDF6E3"),
	Surface:     lipgloss.Color("#EEE8D5"),
	Selection:   lipgloss.Color("#D3CBB7"),
	Border:      lipgloss.Color("#93A1A1"),
	BorderFocus: lipgloss.Color("#268BD2"),
	Link:        lipgloss.Color("#268BD2"),
	Error:       lipgloss.Color("#DC322F"),
	Success:     lipgloss.Color("#859900"),
	Warning:     lipgloss.Color("#B58900"),
	Info:        lipgloss.Color("#268BD2"),
}

// all is in cycling order.
var all = []Theme{Default, Gruvbox, Nord, SolarizedLight}

// Current is the active theme.
var Current = Default

// Lookup returns the theme called name.
func Lookup(name string) (Theme, bool) {
	for _, t := range all {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}

// Set changes the active theme by name.
func Set(name string) bool {
	t, ok := Lookup(name)
	if ok {
		Current = t
	}
	return ok
}

// Next switches to the theme after the current one and returns it.
func Next() Theme {
	for i, t := range all {
		if t.Name == Current.Name {
			Current = all[(i+1)%len(all)]
			return Current
		}
	}
	Current = all[0]
	return Current
}

// List returns all theme names in cycling order.
func List() []string {
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}
