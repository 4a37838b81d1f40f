package app

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/vidyasagar/navshell/internal/ui"
)

// KeyMap defines the normal-mode keybindings.
type KeyMap struct {
	// Scrolling
	ScrollDown   key.Binding
	ScrollUp     key.Binding
	HalfPageDown key.Binding
	HalfPageUp   key.Binding
	GotoTop      key.Binding
	GotoBottom   key.Binding

	// Navigation
	OpenURL    key.Binding
	Back       key.Binding
	Forward    key.Binding
	Reload     key.Binding
	FollowLink key.Binding

	// Window
	CommandMode   key.Binding
	HistoryToggle key.Binding
	CycleTheme    key.Binding
	Help          key.Binding
	Quit          key.Binding
}

// DefaultKeyMap returns the default vim-style keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		ScrollDown: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "scroll down"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "scroll up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "half page down"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "half page up"),
		),
		GotoTop: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("gg", "top of page"),
		),
		GotoBottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "bottom of page"),
		),
		OpenURL: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open URL"),
		),
		Back: key.NewBinding(
			key.WithKeys("H", "alt+left"),
			key.WithHelp("H/alt+left", "back"),
		),
		Forward: key.NewBinding(
			key.WithKeys("L", "alt+right"),
			key.WithHelp("L/alt+right", "forward"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		FollowLink: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow link"),
		),
		CommandMode: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command line"),
		),
		HistoryToggle: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("ctrl+h", "history"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "next theme"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HelpGroups arranges the bindings for the help overlay.
func (k KeyMap) HelpGroups() []ui.HelpGroup {
	return []ui.HelpGroup{
		{Name: "Navigate", Bindings: []key.Binding{k.OpenURL, k.Back, k.Forward, k.Reload, k.FollowLink}},
		{Name: "Scroll", Bindings: []key.Binding{k.ScrollDown, k.ScrollUp, k.HalfPageDown, k.HalfPageUp, k.GotoTop, k.GotoBottom}},
		{Name: "Window", Bindings: []key.Binding{k.CommandMode, k.HistoryToggle, k.CycleTheme, k.Help, k.Quit}},
	}
}
