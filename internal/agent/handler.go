package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vidyasagar/navshell/internal/nav"
	"github.com/vidyasagar/navshell/internal/storage"
)

// Recorder persists handled commands.
type Recorder interface {
	Record(ctx context.Context, e storage.AuditEntry) error
}

// CommandObserver is told about every handled command.
type CommandObserver interface {
	AgentCommand(command, result string)
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// SettleTimeout bounds how long a command waits for its load.
	SettleTimeout time.Duration
	Recorder      Recorder
	Observer      CommandObserver
	Logger        *zap.Logger
}

// Handler applies agent commands to a session through its owner. Rejections
// are returned as they are; retrying is left to the agent.
type Handler struct {
	owner     nav.Owner
	settle    time.Duration
	rec       Recorder
	obs       CommandObserver
	log       *zap.Logger
	transport string
}

// NewHandler creates a handler for the session behind owner.
func NewHandler(owner nav.Owner, opts HandlerOptions) *Handler {
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handler{
		owner:  owner,
		settle: opts.SettleTimeout,
		rec:    opts.Recorder,
		obs:    opts.Observer,
		log:    opts.Logger.Named("agent"),
	}
}

// WithTransport returns a handler that labels its audit entries and logs
// with transport.
func (h *Handler) WithTransport(transport string) *Handler {
	c := *h
	c.transport = transport
	c.log = h.log.With(zap.String("transport", transport))
	return &c
}

// Handle executes cmd and returns its response. Navigation commands wait
// until the issued load settles, the settle timeout passes or ctx is done.
func (h *Handler) Handle(ctx context.Context, cmd Command) Response {
	start := time.Now()
	resp, sessionID := h.handle(ctx, cmd)
	h.finish(cmd, resp, sessionID, time.Since(start))
	return resp
}

// Reject answers a request that could not be decoded.
func (h *Handler) Reject(err error) Response {
	resp := ErrorResponse(ErrorCode(err))
	h.log.Debug("request rejected", zap.Error(err))
	if h.obs != nil {
		h.obs.AgentCommand("unknown", CodeMalformedRequest)
	}
	return resp
}

func (h *Handler) handle(ctx context.Context, cmd Command) (Response, string) {
	var (
		snap     nav.Snapshot
		err      error
		watch    <-chan nav.Outcome
		watching bool
	)
	intent, navigates := cmd.Intent()

	doErr := nav.Do(ctx, h.owner, func(s *nav.Session) {
		if navigates {
			var id nav.LoadID
			id, err = s.Submit(intent)
			if err == nil {
				watch, watching = s.Watch(id)
			}
		}
		snap = s.Snapshot()
	})
	if doErr != nil {
		return h.unreachable(doErr), ""
	}
	if err != nil {
		resp := ErrorResponse(ErrorCode(err))
		resp.setState(snap)
		return resp, snap.SessionID
	}
	if !navigates || !watching {
		return StateResponse(snap), snap.SessionID
	}

	timer := time.NewTimer(h.settle)
	defer timer.Stop()
	select {
	case out := <-watch:
		if out.Err != nil {
			resp := ErrorResponse(ErrorCode(out.Err))
			resp.setState(out.State)
			return resp, snap.SessionID
		}
		return StateResponse(out.State), snap.SessionID
	case <-timer.C:
		resp := ErrorResponse(CodeTimeout)
		resp.setState(snap)
		return resp, snap.SessionID
	case <-ctx.Done():
		return ErrorResponse(CodeTimeout), snap.SessionID
	}
}

func (h *Handler) unreachable(err error) Response {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorResponse(CodeTimeout)
	}
	return ErrorResponse(CodeUnavailable)
}

func (h *Handler) finish(cmd Command, resp Response, sessionID string, took time.Duration) {
	code := resp.Code()
	result := "ok"
	if code != "" {
		result, _, _ = strings.Cut(code, ":")
	}

	var loc string
	if resp.CurrentLocation != nil {
		loc = *resp.CurrentLocation
	}
	h.log.Info("agent command",
		zap.Stringer("command", cmd.Kind),
		zap.String("url", cmd.URL),
		zap.Bool("ok", resp.OK),
		zap.String("error", code),
		zap.String("location", loc),
		zap.Duration("took", took),
	)

	if h.obs != nil {
		h.obs.AgentCommand(cmd.Kind.String(), result)
	}
	if h.rec != nil {
		entry := storage.AuditEntry{
			SessionID: sessionID,
			Transport: h.transport,
			Command:   cmd.Kind.String(),
			Argument:  cmd.URL,
			OK:        resp.OK,
			Location:  loc,
			Error:     code,
			Duration:  took,
		}
		// The command's own context may already be gone.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.rec.Record(ctx, entry); err != nil {
			h.log.Warn("audit record failed", zap.Error(err))
		}
	}
}
