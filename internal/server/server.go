// Package server exposes the agent command interface over HTTP and
// WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vidyasagar/navshell/internal/agent"
)

const maxRequestBody = 64 * 1024

// Config configures the HTTP transport.
type Config struct {
	Addr           string
	RateLimitRPS   int
	RateLimitBurst int
	AllowOrigins   []string
	Development    bool
}

// Server serves agent commands.
type Server struct {
	cfg      Config
	router   *gin.Engine
	http     *agent.Handler
	ws       *agent.Handler
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// New builds the router. gatherer backs /metrics and may be nil.
func New(cfg Config, h *agent.Handler, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("server")

	if !cfg.Development && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:  cfg,
		http: h.WithTransport("http"),
		ws:   h.WithTransport("ws"),
		log:  log,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))
	router.Use(CORS(cfg.AllowOrigins))
	if cfg.RateLimitRPS > 0 {
		log.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimitRPS),
			zap.Int("burst", cfg.RateLimitBurst),
		)
		router.Use(GlobalRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	router.GET("/health", s.health)
	router.GET("/state", s.state)
	router.POST("/command", s.command)
	router.GET("/ws", s.stream)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.router = router
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("agent http transport listening", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serving agent http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down agent http: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("agent http transport stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) state(c *gin.Context) {
	resp := s.http.Handle(c.Request.Context(), agent.Command{Kind: agent.CommandGetState})
	c.JSON(statusFor(resp), resp)
}

func (s *Server) command(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, s.http.Reject(fmt.Errorf("%w: %v", agent.ErrMalformedRequest, err)))
		return
	}
	cmd, err := agent.DecodeRequest(body)
	if err != nil {
		resp := s.http.Reject(err)
		c.JSON(statusFor(resp), resp)
		return
	}
	resp := s.http.Handle(c.Request.Context(), cmd)
	c.JSON(statusFor(resp), resp)
}

// stream answers each WebSocket text message with one response message.
func (s *Server) stream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBody)

	ctx := c.Request.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read", zap.Error(err))
			}
			return
		}

		var resp agent.Response
		if cmd, err := agent.DecodeRequest(msg); err != nil {
			resp = s.ws.Reject(err)
		} else {
			resp = s.ws.Handle(ctx, cmd)
		}
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Debug("websocket write", zap.Error(err))
			return
		}
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.AllowOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// statusFor maps a response onto an HTTP status. The body always carries
// the response itself.
func statusFor(resp agent.Response) int {
	code, _, _ := strings.Cut(resp.Code(), ":")
	switch code {
	case "":
		return http.StatusOK
	case agent.CodeMalformedRequest, agent.CodeInvalidLocation:
		return http.StatusBadRequest
	case agent.CodeBusy, agent.CodeAtHistoryBoundary:
		return http.StatusConflict
	case agent.CodeLoadFailed:
		return http.StatusBadGateway
	case agent.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}
