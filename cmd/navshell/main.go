package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vidyasagar/navshell/internal/storage"
)

var version = "0.1.0"

// options holds the root command's flags. Flags that were set override the
// config file and NAVSHELL_* environment.
type options struct {
	configPath string
	theme      string
	surface    string
	agentStdio bool
	agentAddr  string
	noTUI      bool
	logLevel   string
	chromeURL  string
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "navshell [url]",
		Short: "A terminal browser shell with one navigable history",
		Long: `navshell opens a single browsing window in the terminal and keeps one
back/forward history for it. A person drives it with the keyboard or mouse;
an agent can drive the same window over stdio, HTTP or WebSocket.

With no URL the configured homepage is opened. Bare domains get https://
and anything else becomes a search.`,
		Example: `  navshell                          # open the homepage
  navshell golang.org               # auto-adds https://
  navshell --agent-addr :7777       # TUI plus an agent HTTP/WebSocket endpoint
  navshell --agent-stdio            # headless, one agent command per stdin line`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			start := cfg.Homepage
			if len(args) > 0 {
				start = args[0]
			}
			return run(cmd.Context(), cfg, runMode{
				tui:      !opts.noTUI && !cfg.Agent.Stdio,
				startURL: start,
			})
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "config file (default: per-user config dir)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	f = cmd.Flags()
	f.StringVar(&opts.theme, "theme", "", "color theme (default, gruvbox, nord, solarized-light)")
	f.StringVar(&opts.surface, "surface", "", `rendering surface: "http" or "chrome"`)
	f.BoolVar(&opts.agentStdio, "agent-stdio", false, "accept agent commands on stdin (implies --no-tui)")
	f.StringVar(&opts.agentAddr, "agent-addr", "", "serve agent commands over HTTP/WebSocket on this address")
	f.BoolVar(&opts.noTUI, "no-tui", false, "run without the terminal UI")
	f.StringVar(&opts.chromeURL, "chrome-url", "", "DevTools URL of a running Chrome (chrome surface)")

	cmd.AddCommand(newAuditCmd(opts))
	return cmd
}

// config loads the configuration and applies the flags that were set.
func (o *options) config(cmd *cobra.Command) (*storage.Config, error) {
	var (
		cfg *storage.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = storage.LoadConfigFrom(o.configPath)
	} else {
		cfg, err = storage.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("theme") {
		cfg.Theme = o.theme
	}
	if changed("surface") {
		cfg.Surface = o.surface
	}
	if changed("agent-stdio") {
		cfg.Agent.Stdio = o.agentStdio
	}
	if changed("agent-addr") {
		cfg.Agent.Addr = o.agentAddr
	}
	if changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if changed("chrome-url") {
		cfg.Chrome.ControlURL = o.chromeURL
	}

	switch cfg.Surface {
	case "", "http", "chrome":
	default:
		return nil, fmt.Errorf("unknown surface %q", cfg.Surface)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(&options{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
