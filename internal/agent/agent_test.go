package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vidyasagar/navshell/internal/nav"
	"github.com/vidyasagar/navshell/internal/storage"
)

// fakeSurface answers loads from its own goroutines, optionally holding
// them until released.
type fakeSurface struct {
	owner     nav.Owner
	hold      bool
	release   chan struct{}
	once      sync.Once
	failures  map[nav.Location]string
	redirects map[nav.Location]nav.Location
	wg        sync.WaitGroup
}

func (f *fakeSurface) IssueLoad(req nav.LoadRequest) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if f.hold {
			<-f.release
		}
		f.owner.Post(func(s *nav.Session) {
			if reason, ok := f.failures[req.Location]; ok {
				s.OnLoadFailed(req.ID, reason)
				return
			}
			final := req.Location
			if to, ok := f.redirects[req.Location]; ok && req.Kind == nav.IntentLoadURL {
				final = to
			}
			s.OnLoadFinished(req.ID, final)
		})
	}()
}

func (f *fakeSurface) Release() {
	f.once.Do(func() { close(f.release) })
}

type testEnv struct {
	loop    *nav.Loop
	surface *fakeSurface
	cancel  context.CancelFunc
	done    chan struct{}
}

func newEnv(t *testing.T, hold bool) *testEnv {
	t.Helper()
	surface := &fakeSurface{
		hold:      hold,
		release:   make(chan struct{}),
		failures:  map[nav.Location]string{},
		redirects: map[nav.Location]nav.Location{},
	}
	loop := nav.NewLoop(nav.NewSession(surface), 8)
	surface.owner = loop

	ctx, cancel := context.WithCancel(context.Background())
	e := &testEnv{loop: loop, surface: surface, cancel: cancel, done: make(chan struct{})}
	go func() {
		_ = loop.Run(ctx)
		close(e.done)
	}()
	return e
}

func (e *testEnv) stop() {
	e.surface.Release()
	e.cancel()
	<-e.done
	e.surface.wg.Wait()
}

func loc(r Response) string {
	if r.CurrentLocation == nil {
		return ""
	}
	return *r.CurrentLocation
}

func navigate(url string) Command { return Command{Kind: CommandNavigate, URL: url} }

func TestHandlerNavigateBackForward(t *testing.T) {
	defer goleak.VerifyNone(t)
	env := newEnv(t, false)
	defer env.stop()

	h := NewHandler(env.loop, HandlerOptions{SettleTimeout: time.Second})
	ctx := context.Background()

	resp := h.Handle(ctx, navigate("https://a.example"))
	require.True(t, resp.OK, resp.Code())
	assert.Equal(t, "https://a.example", loc(resp))
	assert.False(t, resp.CanGoBack)

	resp = h.Handle(ctx, navigate("https://b.example"))
	require.True(t, resp.OK)
	assert.True(t, resp.CanGoBack)

	resp = h.Handle(ctx, Command{Kind: CommandBack})
	require.True(t, resp.OK)
	assert.Equal(t, "https://a.example", loc(resp))
	assert.True(t, resp.CanGoForward)

	resp = h.Handle(ctx, Command{Kind: CommandBack})
	assert.False(t, resp.OK)
	assert.Equal(t, CodeAtHistoryBoundary, resp.Code())
	assert.Equal(t, "https://a.example", loc(resp))

	resp = h.Handle(ctx, Command{Kind: CommandForward})
	require.True(t, resp.OK)
	assert.Equal(t, "https://b.example", loc(resp))

	resp = h.Handle(ctx, Command{Kind: CommandGetState})
	require.True(t, resp.OK)
	assert.Equal(t, "https://b.example", loc(resp))
	assert.False(t, resp.Pending)
}

// syncSurface finishes every load from inside IssueLoad, on the owner
// goroutine.
type syncSurface struct {
	session *nav.Session
}

func (f *syncSurface) IssueLoad(req nav.LoadRequest) {
	f.session.OnLoadFinished(req.ID, req.Location)
}

func TestHandlerSynchronousSurface(t *testing.T) {
	defer goleak.VerifyNone(t)

	surface := &syncSurface{}
	session := nav.NewSession(surface)
	surface.session = session
	loop := nav.NewLoop(session, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = loop.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	h := NewHandler(loop, HandlerOptions{SettleTimeout: 5 * time.Second})
	start := time.Now()
	resp := h.Handle(context.Background(), navigate("https://example.com"))
	require.True(t, resp.OK, resp.Code())
	assert.Equal(t, "https://example.com", loc(resp))
	assert.False(t, resp.Pending)
	assert.Less(t, time.Since(start), time.Second, "answered without waiting for the settle timeout")
}

func TestHandlerRejections(t *testing.T) {
	defer goleak.VerifyNone(t)
	env := newEnv(t, false)
	defer env.stop()
	env.surface.failures["https://down.example"] = "connection refused"

	h := NewHandler(env.loop, HandlerOptions{SettleTimeout: time.Second})
	ctx := context.Background()

	resp := h.Handle(ctx, Command{Kind: CommandGetState})
	require.True(t, resp.OK)
	assert.Nil(t, resp.CurrentLocation)

	resp = h.Handle(ctx, navigate("not a url"))
	assert.Equal(t, CodeInvalidLocation, resp.Code())

	resp = h.Handle(ctx, navigate("https://down.example"))
	assert.False(t, resp.OK)
	assert.Equal(t, "load_failed: connection refused", resp.Code())
	assert.Nil(t, resp.CurrentLocation)
	assert.False(t, resp.Pending)
}

func TestHandlerReportsRedirectTarget(t *testing.T) {
	defer goleak.VerifyNone(t)
	env := newEnv(t, false)
	defer env.stop()
	env.surface.redirects["https://short.example/x"] = "https://long.example/landing"

	h := NewHandler(env.loop, HandlerOptions{})
	resp := h.Handle(context.Background(), navigate("https://short.example/x"))
	require.True(t, resp.OK)
	assert.Equal(t, "https://long.example/landing", loc(resp))
}

func TestHandlerBusyIsNotRetried(t *testing.T) {
	defer goleak.VerifyNone(t)
	env := newEnv(t, true)
	defer env.stop()

	h := NewHandler(env.loop, HandlerOptions{SettleTimeout: 5 * time.Second})
	ctx := context.Background()

	first := make(chan Response, 1)
	go func() { first <- h.Handle(ctx, navigate("https://a.example")) }()

	require.Eventually(t, func() bool {
		var pending bool
		_ = nav.Do(ctx, env.loop, func(s *nav.Session) { pending = s.Pending() })
		return pending
	}, time.Second, 5*time.Millisecond)

	resp := h.Handle(ctx, navigate("https://b.example"))
	assert.Equal(t, CodeBusy, resp.Code())
	assert.True(t, resp.Pending)

	resp = h.Handle(ctx, Command{Kind: CommandGetState})
	assert.True(t, resp.OK)
	assert.True(t, resp.Pending)

	env.surface.Release()
	got := <-first
	require.True(t, got.OK)
	assert.Equal(t, "https://a.example", loc(got))
}

func TestHandlerSettleTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	env := newEnv(t, true)
	defer env.stop()

	h := NewHandler(env.loop, HandlerOptions{SettleTimeout: 20 * time.Millisecond})
	resp := h.Handle(context.Background(), navigate("https://slow.example"))
	assert.Equal(t, CodeTimeout, resp.Code())
	assert.True(t, resp.Pending)
}

func TestHandlerUnavailableAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	env := newEnv(t, false)
	env.stop()

	h := NewHandler(env.loop, HandlerOptions{})
	resp := h.Handle(context.Background(), Command{Kind: CommandGetState})
	assert.Equal(t, CodeUnavailable, resp.Code())
}

type memRecorder struct {
	mu      sync.Mutex
	entries []storage.AuditEntry
}

func (m *memRecorder) Record(_ context.Context, e storage.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingObserver) AgentCommand(command, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[command+"/"+result]++
}

func TestHandlerAuditsAndObserves(t *testing.T) {
	defer goleak.VerifyNone(t)
	env := newEnv(t, false)
	defer env.stop()
	env.surface.failures["https://down.example"] = "dns"

	rec := &memRecorder{}
	obs := &countingObserver{counts: map[string]int{}}
	h := NewHandler(env.loop, HandlerOptions{Recorder: rec, Observer: obs}).WithTransport("http")
	ctx := context.Background()

	h.Handle(ctx, navigate("https://a.example"))
	h.Handle(ctx, navigate("https://down.example"))
	h.Reject(ErrMalformedRequest)

	require.Len(t, rec.entries, 2)
	assert.Equal(t, "http", rec.entries[0].Transport)
	assert.Equal(t, "navigate", rec.entries[0].Command)
	assert.True(t, rec.entries[0].OK)
	assert.Equal(t, "https://a.example", rec.entries[0].Location)
	assert.NotEmpty(t, rec.entries[0].SessionID)
	assert.Equal(t, "load_failed: dns", rec.entries[1].Error)

	assert.Equal(t, 1, obs.counts["navigate/ok"])
	assert.Equal(t, 1, obs.counts["navigate/load_failed"])
	assert.Equal(t, 1, obs.counts["unknown/malformed_request"])
}

func TestStdioServer(t *testing.T) {
	defer goleak.VerifyNone(t)
	env := newEnv(t, false)
	defer env.stop()

	input := strings.Join([]string{
		`{"Navigate":{"url":"https://a.example"}}`,
		`go https://b.example`,
		``,
		`back`,
		`state`,
		`reload`,
		`{"Back":{},"Forward":{}}`,
	}, "\n")
	var out bytes.Buffer

	srv := NewStdioServer(NewHandler(env.loop, HandlerOptions{}), false)
	require.NoError(t, srv.Serve(context.Background(), strings.NewReader(input), &out))

	var got []Response
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r Response
		require.NoError(t, dec.Decode(&r))
		got = append(got, r)
	}
	require.Len(t, got, 6)
	assert.Equal(t, "https://a.example", loc(got[0]))
	assert.Equal(t, "https://b.example", loc(got[1]))
	assert.Equal(t, "https://a.example", loc(got[2]))
	assert.True(t, got[3].OK)
	assert.True(t, got[3].CanGoForward)
	assert.Equal(t, CodeMalformedRequest, got[4].Code())
	assert.Equal(t, CodeMalformedRequest, got[5].Code())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStdioServerPromptAndCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	env := newEnv(t, false)
	defer env.stop()

	pr, pw := io.Pipe()
	defer pw.Close()

	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	srv := NewStdioServer(NewHandler(env.loop, HandlerOptions{}), true)
	go func() { errc <- srv.Serve(ctx, pr, &out) }()

	require.Eventually(t, func() bool { return out.String() == Prompt }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	pw.Close()
}
