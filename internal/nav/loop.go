package nav

import (
	"context"
	"errors"
)

// ErrLoopStopped is returned when work is posted to a Loop that has exited.
var ErrLoopStopped = errors.New("session loop stopped")

// Owner runs functions on the goroutine that owns a Session. Every caller
// other than that goroutine (input handlers, agent transports, surface
// callbacks) reaches the Session through an Owner.
type Owner interface {
	// Post schedules fn and returns without waiting for it. It reports
	// false if the owner has stopped and fn will never run.
	Post(fn func(*Session)) bool
}

// Do posts fn to o and waits until it has run or ctx is done.
func Do(ctx context.Context, o Owner, fn func(*Session)) error {
	done := make(chan struct{})
	if !o.Post(func(s *Session) {
		defer close(done)
		fn(s)
	}) {
		return ErrLoopStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loop owns a Session on a dedicated goroutine, for running without a TUI.
type Loop struct {
	session *Session
	ops     chan func(*Session)
	stopped chan struct{}
}

// NewLoop creates a loop for s. buffer is the number of posted functions
// that may queue before Post blocks.
func NewLoop(s *Session, buffer int) *Loop {
	if buffer < 0 {
		buffer = 0
	}
	return &Loop{
		session: s,
		ops:     make(chan func(*Session), buffer),
		stopped: make(chan struct{}),
	}
}

// Run executes posted functions in order until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.ops:
			fn(l.session)
		}
	}
}

// Post implements Owner. It blocks while the queue is full.
func (l *Loop) Post(fn func(*Session)) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.ops <- fn:
		return true
	case <-l.stopped:
		return false
	}
}

// Stopped is closed once Run has returned.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}
