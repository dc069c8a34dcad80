// Package config holds the modgraph runtime configuration and the
// struct-tag machinery that fills defaults, checks required fields and
// renders sample files.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Storage backends
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRemote = "remote"
)

// Config is the top-level configuration of the modgraph binary.
type Config struct {
	LogLevel  string          `yaml:"log_level" json:"log_level" toml:"log_level" env:"LOG_LEVEL" default:"info" desc:"Log level: debug, info, warn or error"`
	History   HistoryConfig   `yaml:"history" json:"history" toml:"history"`
	Server    ServerConfig    `yaml:"server" json:"server" toml:"server"`
	Storage   StorageConfig   `yaml:"storage" json:"storage" toml:"storage"`
	Watch     WatchConfig     `yaml:"watch" json:"watch" toml:"watch"`
	Resync    ResyncConfig    `yaml:"resync" json:"resync" toml:"resync"`
	Surrogate SurrogateConfig `yaml:"surrogate" json:"surrogate" toml:"surrogate"`
}

// HistoryConfig bounds the undo stack.
type HistoryConfig struct {
	Limit int `yaml:"limit" json:"limit" toml:"limit" env:"HISTORY_LIMIT" default:"50" desc:"Maximum number of undo entries"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host" toml:"host" env:"SERVER_HOST" default:"127.0.0.1" desc:"Listen address"`
	Port            int           `yaml:"port" json:"port" toml:"port" env:"SERVER_PORT" default:"5000" required:"true" desc:"Listen port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"15s" desc:"HTTP read timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"15s" desc:"HTTP write timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s" desc:"HTTP idle timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" toml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s" desc:"Graceful shutdown timeout"`
	DisableMetrics  bool          `yaml:"disable_metrics" json:"disable_metrics" toml:"disable_metrics" env:"SERVER_DISABLE_METRICS" desc:"Do not expose Prometheus metrics on /metrics"`
}

// Address returns host:port.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects where modules are persisted.
type StorageConfig struct {
	Backend    string `yaml:"backend" json:"backend" toml:"backend" env:"STORAGE_BACKEND" default:"yaml" required:"true" desc:"yaml, sqlite, memory or remote"`
	ModulesDir string `yaml:"modules_dir" json:"modules_dir" toml:"modules_dir" env:"MODULES_DIR" default:"modules" desc:"Directory of <name>.yaml module files"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path" toml:"sqlite_path" env:"SQLITE_PATH" default:"modgraph.db" desc:"SQLite database file"`
	RemoteURL  string `yaml:"remote_url" json:"remote_url" toml:"remote_url" env:"REMOTE_URL" desc:"Base URL of a modgraph server"`
}

// WatchConfig configures reloading on module file changes.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled" toml:"enabled" env:"WATCH_ENABLED" desc:"Reload when module files change"`
	Debounce time.Duration `yaml:"debounce" json:"debounce" toml:"debounce" env:"WATCH_DEBOUNCE" default:"500ms" desc:"Quiet period before a reload"`
}

// ResyncConfig schedules periodic reloads from the backend.
type ResyncConfig struct {
	Schedule string `yaml:"schedule" json:"schedule" toml:"schedule" env:"RESYNC_SCHEDULE" desc:"Cron expression; empty disables resync"`
}

// SurrogateConfig configures the placeholder runners behind /api/run.
type SurrogateConfig struct {
	PromptLog      string `yaml:"prompt_log" json:"prompt_log" toml:"prompt_log" env:"SURROGATE_PROMPT_LOG" desc:"File the mock_llm surrogate appends prompts to; empty disables logging"`
	PromptTemplate string `yaml:"prompt_template" json:"prompt_template" toml:"prompt_template" env:"SURROGATE_PROMPT_TEMPLATE" default:"Process {inputs} and generate output" desc:"mock_llm prompt; {inputs} is replaced by the JSON inputs"`
}

// Validate checks values the struct tags cannot express.
func (c *Config) Validate() error {
	var problems []string

	if _, ok := parseLevel(c.LogLevel); !ok {
		problems = append(problems, fmt.Sprintf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.History.Limit <= 0 {
		problems = append(problems, "history.limit must be positive")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	backends := []string{BackendYAML, BackendSQLite, BackendMemory, BackendRemote}
	if !slices.Contains(backends, c.Storage.Backend) {
		problems = append(problems, fmt.Sprintf("storage.backend %q is not one of %s", c.Storage.Backend, strings.Join(backends, ", ")))
	}
	if c.Storage.Backend == BackendRemote && c.Storage.RemoteURL == "" {
		problems = append(problems, "storage.remote_url is required for the remote backend")
	}
	if c.Watch.Enabled && c.Storage.Backend != BackendYAML {
		problems = append(problems, "watch requires the yaml backend")
	}
	if c.Resync.Schedule != "" {
		if _, err := cron.ParseStandard(c.Resync.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("resync.schedule: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
