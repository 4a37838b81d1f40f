package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vidyasagar/navshell/internal/theme"
)

// CommandType identifies what the command bar is collecting.
type CommandType int

const (
	CommandNone   CommandType = iota
	CommandEx                 // :commands
	CommandFollow             // f<number>
)

// CommandResult is produced when the bar is submitted.
type CommandResult struct {
	Type  CommandType
	Value string
}

// CommandBar reads ex commands and link numbers. Ex commands keep a recall
// history for the up and down keys.
type CommandBar struct {
	input      textinput.Model
	active     bool
	cmdType    CommandType
	width      int
	history    []string
	historyPos int
}

func NewCommandBar() CommandBar {
	ti := textinput.New()
	ti.CharLimit = 256
	return CommandBar{input: ti, historyPos: -1}
}

func (c *CommandBar) SetWidth(w int) {
	c.width = w
	c.input.Width = w - 4
}

// Open focuses the bar for ct.
func (c *CommandBar) Open(ct CommandType) tea.Cmd {
	c.active = true
	c.cmdType = ct
	c.input.Reset()
	c.historyPos = -1

	switch ct {
	case CommandEx:
		c.input.Placeholder = "open <url> | back | forward | reload | history | theme [name] | q"
		c.input.Prompt = ":"
	case CommandFollow:
		c.input.Placeholder = "link #"
		c.input.Prompt = "f"
	}
	return c.input.Focus()
}

func (c *CommandBar) Close() {
	c.active = false
	c.cmdType = CommandNone
	c.input.Blur()
	c.input.Reset()
}

func (c *CommandBar) IsActive() bool {
	return c.active
}

// Submit closes the bar and returns what was entered.
func (c *CommandBar) Submit() CommandResult {
	val := strings.TrimSpace(c.input.Value())
	res := CommandResult{Type: c.cmdType, Value: val}
	if val != "" && c.cmdType == CommandEx {
		c.history = append(c.history, val)
	}
	c.Close()
	return res
}

// Update handles editing keys. Enter is left to the caller, which calls
// Submit.
func (c *CommandBar) Update(msg tea.Msg) tea.Cmd {
	if !c.active {
		return nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc:
			c.Close()
			return nil
		case tea.KeyEnter:
			return nil
		case tea.KeyUp:
			if c.cmdType == CommandEx && len(c.history) > 0 {
				if c.historyPos < len(c.history)-1 {
					c.historyPos++
				}
				c.input.SetValue(c.history[len(c.history)-1-c.historyPos])
			}
			return nil
		case tea.KeyDown:
			switch {
			case c.cmdType == CommandEx && c.historyPos > 0:
				c.historyPos--
				c.input.SetValue(c.history[len(c.history)-1-c.historyPos])
			case c.historyPos == 0:
				c.historyPos = -1
				c.input.Reset()
			}
			return nil
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return cmd
}

func (c *CommandBar) View() string {
	if !c.active {
		return ""
	}
	t := theme.Current
	return lipgloss.NewStyle().
		Foreground(t.Text).
		Background(t.Surface).
		Width(c.width).
		Render(c.input.View())
}
