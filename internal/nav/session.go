package nav

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the session's load state.
type State int

const (
	StateIdle State = iota
	StatePending
)

func (s State) String() string {
	if s == StatePending {
		return "pending"
	}
	return "idle"
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	SessionID    string
	Current      Location
	HasCurrent   bool
	CanGoBack    bool
	CanGoForward bool
	Pending      bool
	Position     int
	Entries      []Entry
}

// Outcome describes how an issued load settled. Err is nil or a *LoadError.
type Outcome struct {
	ID    LoadID
	Kind  IntentKind
	Err   error
	State Snapshot
}

// Observer receives session events, e.g. for metrics.
type Observer interface {
	IntentSubmitted(kind IntentKind, err error)
	LoadSettled(kind IntentKind, err error, elapsed time.Duration)
}

type inflight struct {
	req      LoadRequest
	issuedAt time.Time
	watchers []chan Outcome
}

// Session is the navigation controller of one window. It is the only writer
// of its History and the only caller of Surface.IssueLoad.
//
// A Session is not safe for concurrent use. Drive it from a single owner
// goroutine (see Loop and Owner).
type Session struct {
	id       string
	history  *History
	surface  Surface
	log      *zap.Logger
	observer Observer
	now      func() time.Time

	current *inflight
	lastID  LoadID
	settled Outcome
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observer = o
	}
}

// WithClock overrides the clock used for history timestamps and load timing.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates an idle session with empty history bound to surface.
func NewSession(surface Surface, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		history: NewHistory(),
		surface: surface,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history.now = s.now
	s.log = s.log.With(zap.String("session", s.id))
	return s
}

// ID returns the session identity.
func (s *Session) ID() string {
	return s.id
}

// Submit accepts or rejects a navigation intent. On acceptance the load is
// issued to the surface and its ID returned; Submit never waits for the load.
func (s *Session) Submit(in Intent) (LoadID, error) {
	id, err := s.submit(in)
	if s.observer != nil {
		s.observer.IntentSubmitted(in.Kind, err)
	}
	if err != nil {
		s.log.Debug("intent rejected", zap.Stringer("intent", in.Kind), zap.Error(err))
	}
	return id, err
}

func (s *Session) submit(in Intent) (LoadID, error) {
	if s.current != nil {
		return 0, ErrBusy
	}

	var target Location
	switch in.Kind {
	case IntentLoadURL:
		loc, err := ParseLocation(in.URL)
		if err != nil {
			return 0, err
		}
		target = loc
	case IntentGoBack:
		loc, ok := s.history.Peek(-1)
		if !ok {
			return 0, ErrAtHistoryBoundary
		}
		target = loc
	case IntentGoForward:
		loc, ok := s.history.Peek(1)
		if !ok {
			return 0, ErrAtHistoryBoundary
		}
		target = loc
	default:
		return 0, fmt.Errorf("unknown intent kind %d", in.Kind)
	}

	s.lastID++
	req := LoadRequest{ID: s.lastID, Location: target, Kind: in.Kind}
	s.current = &inflight{req: req, issuedAt: s.now()}

	s.log.Debug("load issued",
		zap.Uint64("load", uint64(req.ID)),
		zap.Stringer("intent", req.Kind),
		zap.String("location", string(req.Location)),
	)
	s.surface.IssueLoad(req)
	return req.ID, nil
}

// OnLoadFinished is called when the surface has displayed loc for load id.
// For a LoadURL, loc is recorded as given, so a redirect is recorded where it
// landed. An id of zero reports a navigation the surface started itself.
func (s *Session) OnLoadFinished(id LoadID, loc Location) {
	if id == 0 {
		s.surfaceNavigated(loc)
		return
	}
	if s.current == nil || s.current.req.ID != id {
		s.log.Warn("stale load finished", zap.Uint64("load", uint64(id)), zap.String("location", string(loc)))
		return
	}

	fl := s.current
	switch fl.req.Kind {
	case IntentLoadURL:
		s.history.Record(loc)
	case IntentGoBack:
		if _, err := s.history.StepBack(); err != nil {
			s.log.Error("history step back on finish", zap.Error(err))
		}
	case IntentGoForward:
		if _, err := s.history.StepForward(); err != nil {
			s.log.Error("history step forward on finish", zap.Error(err))
		}
	}
	s.settle(fl, nil)
}

// OnLoadFailed is called when the surface could not complete load id. History
// and cursor are left exactly as they were before the intent.
func (s *Session) OnLoadFailed(id LoadID, reason string) {
	if s.current == nil || s.current.req.ID != id {
		s.log.Warn("stale load failed", zap.Uint64("load", uint64(id)), zap.String("reason", reason))
		return
	}
	fl := s.current
	s.settle(fl, &LoadError{Location: fl.req.Location, Reason: reason})
}

func (s *Session) surfaceNavigated(loc Location) {
	if s.current != nil {
		s.log.Debug("surface navigation ignored while pending", zap.String("location", string(loc)))
		return
	}
	if cur, ok := s.history.Current(); ok && cur == loc {
		return
	}
	s.history.Record(loc)
	s.log.Info("surface navigated", zap.String("location", string(loc)))
}

func (s *Session) settle(fl *inflight, err error) {
	s.current = nil
	elapsed := s.now().Sub(fl.issuedAt)

	fields := []zap.Field{
		zap.Uint64("load", uint64(fl.req.ID)),
		zap.Stringer("intent", fl.req.Kind),
		zap.Duration("elapsed", elapsed),
	}
	var le *LoadError
	if errors.As(err, &le) {
		s.log.Info("load failed", append(fields, zap.String("reason", le.Reason))...)
	} else {
		s.log.Info("load finished", append(fields, zap.Int("position", s.history.Position()))...)
	}

	if s.observer != nil {
		s.observer.LoadSettled(fl.req.Kind, err, elapsed)
	}
	out := Outcome{ID: fl.req.ID, Kind: fl.req.Kind, Err: err, State: s.Snapshot()}
	s.settled = out
	for _, w := range fl.watchers {
		w <- out
		close(w)
	}
}

// Watch subscribes to the settlement of load id. A load that has already
// settled, e.g. synchronously inside IssueLoad, is delivered at once if it is
// the most recent one. Watch reports false for any other id.
func (s *Session) Watch(id LoadID) (<-chan Outcome, bool) {
	ch := make(chan Outcome, 1)
	switch {
	case s.current != nil && s.current.req.ID == id:
		s.current.watchers = append(s.current.watchers, ch)
	case id != 0 && s.settled.ID == id:
		ch <- s.settled
		close(ch)
	default:
		return nil, false
	}
	return ch, true
}

// CurrentLocation returns the displayed Location, if any.
func (s *Session) CurrentLocation() (Location, bool) {
	return s.history.Current()
}

// CanGoBack reports whether GoBack would be accepted when idle.
func (s *Session) CanGoBack() bool {
	return s.history.CanGoBack()
}

// CanGoForward reports whether GoForward would be accepted when idle.
func (s *Session) CanGoForward() bool {
	return s.history.CanGoForward()
}

// Pending reports whether a load is in flight.
func (s *Session) Pending() bool {
	return s.current != nil
}

// State returns the load state.
func (s *Session) State() State {
	if s.current != nil {
		return StatePending
	}
	return StateIdle
}

// InFlight returns the request currently being loaded.
func (s *Session) InFlight() (LoadRequest, bool) {
	if s.current == nil {
		return LoadRequest{}, false
	}
	return s.current.req, true
}

// Snapshot returns a copy of the observable session state.
func (s *Session) Snapshot() Snapshot {
	cur, ok := s.history.Current()
	return Snapshot{
		SessionID:    s.id,
		Current:      cur,
		HasCurrent:   ok,
		CanGoBack:    s.history.CanGoBack(),
		CanGoForward: s.history.CanGoForward(),
		Pending:      s.current != nil,
		Position:     s.history.Position(),
		Entries:      s.history.Entries(),
	}
}
