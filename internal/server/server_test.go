package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyasagar/navshell/internal/agent"
	"github.com/vidyasagar/navshell/internal/metrics"
	"github.com/vidyasagar/navshell/internal/nav"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// echoSurface finishes every load at the requested location.
type echoSurface struct {
	owner nav.Owner
	wg    sync.WaitGroup
}

func (e *echoSurface) IssueLoad(req nav.LoadRequest) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.owner.Post(func(s *nav.Session) { s.OnLoadFinished(req.ID, req.Location) })
	}()
}

func newTestServer(t *testing.T, cfg Config) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	surface := &echoSurface{}
	loop := nav.NewLoop(nav.NewSession(surface, nav.WithObserver(collector)), 8)
	surface.owner = loop

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		surface.wg.Wait()
	})

	h := agent.NewHandler(loop, agent.HandlerOptions{SettleTimeout: time.Second, Observer: collector})
	return New(cfg, h, reg, nil), reg
}

func postCommand(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, agent.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp agent.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestCommandRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	h := s.Handler()

	w, resp := postCommand(t, h, `{"Navigate":{"url":"https://a.example"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.OK)
	assert.Equal(t, "https://a.example", *resp.CurrentLocation)

	w, resp = postCommand(t, h, `{"Forward":{}}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, agent.CodeAtHistoryBoundary, resp.Code())

	w, resp = postCommand(t, h, `{"Navigate":{"url":"a.example"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, agent.CodeInvalidLocation, resp.Code())

	w, resp = postCommand(t, h, `{"Navigate":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, agent.CodeMalformedRequest, resp.Code())

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"current_location":"https://a.example","error":null,"can_go_back":false,"can_go_forward":false,"pending":false}`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	postCommand(t, h, `{"Navigate":{"url":"https://a.example"}}`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `navshell_agent_commands_total{command="navigate",result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `navshell_loads_total{intent="load_url",result="ok"} 1`)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Config{RateLimitRPS: 1, RateLimitBurst: 2})
	h := s.Handler()

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.JSONEq(t, `{"ok":false,"current_location":null,"error":"rate_limited","can_go_back":false,"can_go_forward":false,"pending":false}`, rec.Body.String())
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestWebSocketRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"Navigate":{"url":"https://a.example"}}`)))
	var resp agent.Response
	require.NoError(t, conn.ReadJSON(&resp))
	require.True(t, resp.OK)
	assert.Equal(t, "https://a.example", *resp.CurrentLocation)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"Back":{},"GetState":{}}`)))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, agent.CodeMalformedRequest, resp.Code())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	s, _ := newTestServer(t, Config{AllowOrigins: []string{"https://agent.example"}})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	require.Error(t, err)
	if resp != nil {
		assert.NotEqual(t, http.StatusSwitchingProtocols, resp.StatusCode)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
