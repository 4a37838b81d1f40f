package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Prompt is written before each request when prompting is enabled.
const Prompt = "command> "

// StdioServer serves one request per input line and writes one JSON
// response per output line.
type StdioServer struct {
	handler *Handler
	prompt  bool
}

// NewStdioServer creates a line server. With prompt set, Prompt is written
// before every request.
func NewStdioServer(h *Handler, prompt bool) *StdioServer {
	return &StdioServer{handler: h.WithTransport("stdio"), prompt: prompt}
}

// Serve handles lines from r until r is exhausted or ctx is done. Requests
// are handled one at a time, in order.
func (s *StdioServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	enc := json.NewEncoder(w)
	for {
		if s.prompt {
			if _, err := io.WriteString(w, Prompt); err != nil {
				return fmt.Errorf("writing prompt: %w", err)
			}
		}

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-readErr:
				if err != nil {
					return fmt.Errorf("reading commands: %w", err)
				}
			default:
			}
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		var resp Response
		if cmd, err := ParseLine(line); err != nil {
			resp = s.handler.Reject(err)
		} else {
			resp = s.handler.Handle(ctx, cmd)
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
}
