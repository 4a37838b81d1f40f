package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vidyasagar/navshell/internal/browser"
	"github.com/vidyasagar/navshell/internal/nav"
)

// sessionOpMsg carries a function to run against the session on the Update
// goroutine.
type sessionOpMsg struct {
	fn func(*nav.Session)
}

// loadResultMsg carries a surface result to the Update goroutine.
type loadResultMsg struct {
	browser.Result
}

// Bridge makes the bubbletea program the session owner: everything posted
// through it is delivered as a message and runs inside Model.Update.
type Bridge struct {
	mu      sync.RWMutex
	program *tea.Program
	stopped chan struct{}
	once    sync.Once
}

func NewBridge() *Bridge {
	return &Bridge{stopped: make(chan struct{})}
}

// Attach sets the program messages are sent to. Nothing is delivered before
// it is called.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

// Stop marks the owner as gone. Call it once the program has exited.
func (b *Bridge) Stop() {
	b.once.Do(func() { close(b.stopped) })
}

// Post implements nav.Owner.
func (b *Bridge) Post(fn func(*nav.Session)) bool {
	return b.send(sessionOpMsg{fn: fn})
}

// Sink returns the surface sink that feeds results into the program.
func (b *Bridge) Sink() browser.Sink {
	return func(r browser.Result) {
		b.send(loadResultMsg{Result: r})
	}
}

func (b *Bridge) send(msg tea.Msg) bool {
	select {
	case <-b.stopped:
		return false
	default:
	}
	b.mu.RLock()
	p := b.program
	b.mu.RUnlock()
	if p == nil {
		return false
	}
	p.Send(msg)
	return true
}
