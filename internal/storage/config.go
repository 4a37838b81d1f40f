package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. NAVSHELL_AGENT_ADDR.
const EnvPrefix = "navshell"

// Config holds navshell user configuration.
type Config struct {
	Theme         string       `json:"theme" envconfig:"THEME"`
	Homepage      string       `json:"homepage" envconfig:"HOMEPAGE"`
	Surface       string       `json:"surface" envconfig:"SURFACE"` // "http" or "chrome"
	LoadTimeoutMs int          `json:"load_timeout_ms" envconfig:"LOAD_TIMEOUT_MS"`
	PageCacheSize int          `json:"page_cache_size" envconfig:"PAGE_CACHE_SIZE"`
	Agent         AgentConfig  `json:"agent" envconfig:"AGENT"`
	Chrome        ChromeConfig `json:"chrome" envconfig:"CHROME"`
	Log           LogConfig    `json:"log" envconfig:"LOG"`
	path          string
}

// AgentConfig configures the agent command channel. The channel exists only
// when Stdio is set or Addr is non-empty.
type AgentConfig struct {
	Stdio           bool     `json:"stdio" envconfig:"STDIO"`
	Addr            string   `json:"addr" envconfig:"ADDR"`
	SettleTimeoutMs int      `json:"settle_timeout_ms" envconfig:"SETTLE_TIMEOUT_MS"`
	RateLimitRPS    int      `json:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int      `json:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	AllowOrigins    []string `json:"allow_origins" envconfig:"ALLOW_ORIGINS"`
	Audit           bool     `json:"audit" envconfig:"AUDIT"`
}

// ChromeConfig configures the Chrome rendering surface.
type ChromeConfig struct {
	ControlURL      string `json:"control_url" envconfig:"CONTROL_URL"`
	Bin             string `json:"bin" envconfig:"BIN"`
	Headless        bool   `json:"headless" envconfig:"HEADLESS"`
	TrackNavigation bool   `json:"track_navigation" envconfig:"TRACK_NAVIGATION"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `json:"level" envconfig:"LEVEL"`
	Development bool   `json:"development" envconfig:"DEVELOPMENT"`
	File        string `json:"file" envconfig:"FILE"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Theme:         "default",
		Homepage:      "https://example.com",
		Surface:       "http",
		LoadTimeoutMs: 15000,
		PageCacheSize: 50,
		Agent: AgentConfig{
			SettleTimeoutMs: 30000,
			RateLimitRPS:    20,
			RateLimitBurst:  40,
			AllowOrigins:    []string{"*"},
			Audit:           true,
		},
		Chrome: ChromeConfig{
			Headless: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadTimeout returns the per-load timeout applied by rendering surfaces.
func (c *Config) LoadTimeout() time.Duration {
	if c.LoadTimeoutMs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.LoadTimeoutMs) * time.Millisecond
}

// SettleTimeout bounds how long an agent command waits for its load.
func (a AgentConfig) SettleTimeout() time.Duration {
	if a.SettleTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.SettleTimeoutMs) * time.Millisecond
}

// Enabled reports whether any agent transport is configured.
func (a AgentConfig) Enabled() bool {
	return a.Stdio || a.Addr != ""
}

// LoadConfig loads configuration from the standard config directory and
// applies environment overrides.
func LoadConfig() (*Config, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(filepath.Join(dir, "config.json"))
}

// LoadConfigFrom loads configuration from path, writing the defaults there
// if the file does not exist yet, then applies environment overrides.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Best-effort: a read-only config dir is not fatal.
		_ = cfg.Save()
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overlays NAVSHELL_* environment variables onto cfg. Unset
// variables leave the existing values alone.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	if c.path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(dir, "config.json")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(c.path, data, 0o644)
}

// DataDir returns the data directory for the audit database and log file.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "navshell"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "navshell"), nil
		}
		return filepath.Join(home, ".navshell"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "navshell"), nil
		}
		return filepath.Join(home, ".local", "share", "navshell"), nil
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "navshell"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "navshell"), nil
		}
		return filepath.Join(home, ".navshell"), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "navshell"), nil
		}
		return filepath.Join(home, ".config", "navshell"), nil
	}
}
