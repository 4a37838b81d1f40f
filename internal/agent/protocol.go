// Package agent lets an automated driver operate a navigation session. It
// defines the command protocol, a Handler that applies commands through the
// session owner, and a line-oriented stdio transport.
package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vidyasagar/navshell/internal/nav"
)

// Error codes carried in Response.Error.
const (
	CodeInvalidLocation   = "invalid_location"
	CodeBusy              = "busy"
	CodeAtHistoryBoundary = "at_history_boundary"
	CodeLoadFailed        = "load_failed"
	CodeMalformedRequest  = "malformed_request"
	CodeTimeout           = "timeout"
	CodeUnavailable       = "unavailable"
	CodeRateLimited       = "rate_limited"
)

// ErrMalformedRequest is returned for requests that do not name exactly one
// known command.
var ErrMalformedRequest = errors.New(CodeMalformedRequest)

// CommandKind identifies an agent command.
type CommandKind int

const (
	CommandNavigate CommandKind = iota + 1
	CommandBack
	CommandForward
	CommandGetState
)

func (k CommandKind) String() string {
	switch k {
	case CommandNavigate:
		return "navigate"
	case CommandBack:
		return "back"
	case CommandForward:
		return "forward"
	case CommandGetState:
		return "get_state"
	default:
		return "unknown"
	}
}

// Command is a decoded agent request.
type Command struct {
	Kind CommandKind
	URL  string
}

// Intent returns the navigation intent c asks for. GetState has none.
func (c Command) Intent() (nav.Intent, bool) {
	switch c.Kind {
	case CommandNavigate:
		return nav.LoadURL(c.URL), true
	case CommandBack:
		return nav.GoBack(), true
	case CommandForward:
		return nav.GoForward(), true
	default:
		return nav.Intent{}, false
	}
}

// NavigateArgs are the arguments of a Navigate request.
type NavigateArgs struct {
	URL string `json:"url"`
}

// Request is the JSON request envelope. Exactly one field must be set, e.g.
// {"Navigate":{"url":"https://example.com"}} or {"Back":{}}.
type Request struct {
	Navigate *NavigateArgs `json:"Navigate,omitempty"`
	Back     *struct{}     `json:"Back,omitempty"`
	Forward  *struct{}     `json:"Forward,omitempty"`
	GetState *struct{}     `json:"GetState,omitempty"`
}

// Command validates r and returns the command it names.
func (r Request) Command() (Command, error) {
	var (
		cmd Command
		n   int
	)
	if r.Navigate != nil {
		cmd = Command{Kind: CommandNavigate, URL: r.Navigate.URL}
		n++
	}
	if r.Back != nil {
		cmd = Command{Kind: CommandBack}
		n++
	}
	if r.Forward != nil {
		cmd = Command{Kind: CommandForward}
		n++
	}
	if r.GetState != nil {
		cmd = Command{Kind: CommandGetState}
		n++
	}
	if n != 1 {
		return Command{}, fmt.Errorf("%w: expected exactly one command, got %d", ErrMalformedRequest, n)
	}
	return cmd, nil
}

// DecodeRequest parses one JSON request. Unknown commands are rejected.
func DecodeRequest(data []byte) (Command, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var req Request
	if err := dec.Decode(&req); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return req.Command()
}

// ParseLine parses one line of the stdio transport. Lines starting with "{"
// are JSON requests; anything else is a text command: "back", "forward",
// "go <url>" or "state".
func ParseLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		return DecodeRequest([]byte(line))
	}

	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(verb) {
	case "back":
		return Command{Kind: CommandBack}, nil
	case "forward":
		return Command{Kind: CommandForward}, nil
	case "state":
		return Command{Kind: CommandGetState}, nil
	case "go":
		if arg == "" {
			return Command{}, fmt.Errorf("%w: go needs a url", ErrMalformedRequest)
		}
		return Command{Kind: CommandNavigate, URL: arg}, nil
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrMalformedRequest, verb)
	}
}

// Response answers one command. CurrentLocation and Error encode as null
// when absent.
type Response struct {
	OK              bool    `json:"ok"`
	CurrentLocation *string `json:"current_location"`
	Error           *string `json:"error"`
	CanGoBack       bool    `json:"can_go_back"`
	CanGoForward    bool    `json:"can_go_forward"`
	Pending         bool    `json:"pending"`
}

// StateResponse builds a successful response from a session snapshot.
func StateResponse(snap nav.Snapshot) Response {
	r := Response{OK: true}
	r.setState(snap)
	return r
}

// ErrorResponse builds a failed response carrying code.
func ErrorResponse(code string) Response {
	return Response{Error: &code}
}

func (r *Response) setState(snap nav.Snapshot) {
	r.CurrentLocation = nil
	if snap.HasCurrent {
		loc := string(snap.Current)
		r.CurrentLocation = &loc
	}
	r.CanGoBack = snap.CanGoBack
	r.CanGoForward = snap.CanGoForward
	r.Pending = snap.Pending
}

// Code returns the wire error code, or "" for a successful response.
func (r Response) Code() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// ErrorCode maps an error onto its wire code.
func ErrorCode(err error) string {
	var le *nav.LoadError
	switch {
	case errors.Is(err, nav.ErrInvalidLocation):
		return CodeInvalidLocation
	case errors.Is(err, nav.ErrBusy):
		return CodeBusy
	case errors.Is(err, nav.ErrAtHistoryBoundary):
		return CodeAtHistoryBoundary
	case errors.As(err, &le):
		return CodeLoadFailed + ": " + le.Reason
	case errors.Is(err, ErrMalformedRequest):
		return CodeMalformedRequest
	default:
		return CodeUnavailable
	}
}
