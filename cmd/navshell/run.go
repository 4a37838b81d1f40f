package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vidyasagar/navshell/internal/agent"
	"github.com/vidyasagar/navshell/internal/app"
	"github.com/vidyasagar/navshell/internal/browser"
	"github.com/vidyasagar/navshell/internal/logging"
	"github.com/vidyasagar/navshell/internal/metrics"
	"github.com/vidyasagar/navshell/internal/nav"
	"github.com/vidyasagar/navshell/internal/server"
	"github.com/vidyasagar/navshell/internal/storage"
	"github.com/vidyasagar/navshell/internal/theme"
)

type runMode struct {
	tui      bool
	startURL string
}

// surface is what run needs from either rendering surface.
type surface interface {
	nav.Surface
	SetWidth(width int)
	Close() error
}

// deps are the pieces shared by both modes.
type deps struct {
	cfg       *storage.Config
	log       *zap.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
	recorder  agent.Recorder
}

func run(ctx context.Context, cfg *storage.Config, mode runMode) error {
	th, ok := theme.Lookup(cfg.Theme)
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %s)", cfg.Theme, strings.Join(theme.List(), ", "))
	}
	theme.Current = th

	logCfg := logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development, File: cfg.Log.File}
	if mode.tui && logCfg.File == "" {
		dir, err := storage.DataDir()
		if err != nil {
			return err
		}
		logCfg.File = filepath.Join(dir, "navshell.log")
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d := deps{cfg: cfg, log: log, registry: reg, collector: metrics.NewCollector(reg)}

	if cfg.Agent.Enabled() && cfg.Agent.Audit {
		dir, err := storage.DataDir()
		if err != nil {
			return err
		}
		db, err := storage.OpenDB(dir)
		if err != nil {
			return err
		}
		defer db.Close()
		d.recorder = storage.NewAuditLog(db)
	}

	log.Info("navshell starting",
		zap.String("version", version),
		zap.String("surface", cfg.Surface),
		zap.Bool("tui", mode.tui),
		zap.Bool("agent_stdio", cfg.Agent.Stdio),
		zap.String("agent_addr", cfg.Agent.Addr),
	)

	if mode.tui {
		return runTUI(ctx, d, mode.startURL)
	}
	return runHeadless(ctx, d, mode.startURL)
}

func newSurface(ctx context.Context, d deps, sink browser.Sink) (surface, error) {
	if d.cfg.Surface == "chrome" {
		s, err := browser.NewChromeSurface(ctx, sink, browser.ChromeOptions{
			ControlURL:      d.cfg.Chrome.ControlURL,
			Bin:             d.cfg.Chrome.Bin,
			Headless:        d.cfg.Chrome.Headless,
			TrackNavigation: d.cfg.Chrome.TrackNavigation,
			Timeout:         d.cfg.LoadTimeout(),
			Style:           theme.Current.Glamour,
			Logger:          d.log,
		})
		if err != nil {
			return nil, fmt.Errorf("starting chrome surface: %w", err)
		}
		return s, nil
	}

	s, err := browser.NewHTTPSurface(browser.NewFetcher(d.log), sink, browser.HTTPOptions{
		Timeout:   d.cfg.LoadTimeout(),
		CacheSize: d.cfg.PageCacheSize,
		Style:     theme.Current.Glamour,
		Logger:    d.log,
	})
	if err != nil {
		return nil, fmt.Errorf("starting http surface: %w", err)
	}
	return s, nil
}

func (d deps) handler(owner nav.Owner) *agent.Handler {
	return agent.NewHandler(owner, agent.HandlerOptions{
		SettleTimeout: d.cfg.Agent.SettleTimeout(),
		Recorder:      d.recorder,
		Observer:      d.collector,
		Logger:        d.log,
	})
}

// serveAgent starts the configured agent transports on g. Stdio ending
// (EOF on stdin) cancels the whole run through stop.
func (d deps) serveAgent(ctx context.Context, g *errgroup.Group, h *agent.Handler, stop context.CancelFunc) {
	if d.cfg.Agent.Addr != "" {
		srv := server.New(server.Config{
			Addr:           d.cfg.Agent.Addr,
			RateLimitRPS:   d.cfg.Agent.RateLimitRPS,
			RateLimitBurst: d.cfg.Agent.RateLimitBurst,
			AllowOrigins:   d.cfg.Agent.AllowOrigins,
			Development:    d.cfg.Log.Development,
		}, h, d.registry, d.log)
		g.Go(func() error { return srv.Run(ctx) })
	}
	if d.cfg.Agent.Stdio {
		g.Go(func() error {
			defer stop()
			err := agent.NewStdioServer(h, isTerminal(os.Stdin)).Serve(ctx, os.Stdin, os.Stdout)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
}

// runHeadless owns the session on a nav.Loop.
func runHeadless(ctx context.Context, d deps, start string) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var loop *nav.Loop
	surf, err := newSurface(ctx, d, func(r browser.Result) { loop.Post(r.Apply) })
	if err != nil {
		return err
	}
	session := nav.NewSession(surf, nav.WithLogger(d.log.Named("nav")), nav.WithObserver(d.collector))
	loop = nav.NewLoop(session, 64)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := loop.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if start != "" {
		target := app.NormalizeInput(start)
		err := nav.Do(gctx, loop, func(s *nav.Session) {
			if _, err := s.Submit(nav.LoadURL(target)); err != nil {
				d.log.Warn("start url rejected", zap.String("url", target), zap.Error(err))
			}
		})
		if err != nil {
			d.log.Warn("start url not submitted", zap.Error(err))
		}
	}

	d.serveAgent(gctx, g, d.handler(loop), stop)

	err = g.Wait()
	if cerr := surf.Close(); cerr != nil {
		d.log.Warn("closing surface", zap.Error(cerr))
	}
	d.log.Info("navshell stopped")
	return err
}

// runTUI makes the bubbletea program the session owner.
func runTUI(ctx context.Context, d deps, start string) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	bridge := app.NewBridge()
	surf, err := newSurface(ctx, d, bridge.Sink())
	if err != nil {
		return err
	}
	session := nav.NewSession(surf, nav.WithLogger(d.log.Named("nav")), nav.WithObserver(d.collector))

	model := app.New(session, app.Options{StartURL: start, Resizer: surf, Logger: d.log})
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	bridge.Attach(program)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		defer bridge.Stop()
		if _, err := program.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("running tui: %w", err)
		}
		return nil
	})

	d.serveAgent(gctx, g, d.handler(bridge), stop)

	err = g.Wait()
	if cerr := surf.Close(); cerr != nil {
		d.log.Warn("closing surface", zap.Error(cerr))
	}
	d.log.Info("navshell stopped")
	return err
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
