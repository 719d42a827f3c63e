// Package config provides configuration types and loading for StockDeck.
//
// Configuration is file based (stockdeck.yaml) with environment variable
// overrides. Everything has a working default; the client runs with no
// config file at all against a local backend.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level configuration for the StockDeck client.
type Config struct {
	// API configures the inventory backend connection.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Session configures where the signed-in session is persisted.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// MetricsAddr enables a Prometheus /metrics listener when set
	// (e.g. "127.0.0.1:9464"). Empty disables it.
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`

	// DevMode enables development features (verbose logging, etc).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// APIConfig configures the backend API connection.
type APIConfig struct {
	// BaseURL is the backend base URL (e.g. "http://localhost:3000").
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout is the per-request timeout (e.g. "15s").
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,duration"`
}

// SessionConfig configures session persistence.
type SessionConfig struct {
	// Path is the session file location.
	// Defaults to "~/.stockdeck/session.json".
	Path string `yaml:"path" mapstructure:"path"`
}

// Defaults.
const (
	DefaultBaseURL  = "http://localhost:3000"
	DefaultTimeout  = "15s"
	DefaultLogLevel = "info"
)

// DefaultSessionPath returns the default session file location,
// ~/.stockdeck/session.json. Falls back to a relative path when the
// home directory cannot be determined.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".stockdeck", "session.json")
	}
	return filepath.Join(home, ".stockdeck", "session.json")
}

// SetDefaults fills in default values for unset optional fields.
func (c *Config) SetDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == "" {
		c.API.Timeout = DefaultTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Session.Path == "" {
		c.Session.Path = DefaultSessionPath()
	}
}

// SetDevDefaults applies development-mode overrides. Call after any CLI
// flag overrides so --dev takes effect.
func (c *Config) SetDevDefaults() {
	if c.DevMode {
		c.LogLevel = "debug"
	}
}

// Default returns a fully defaulted configuration, used by
// `stockdeck config init` to write a starter file.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Timeout returns the parsed request timeout. Validation guarantees the
// string parses; a zero value falls back to the default.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}

// SlogLevel maps the configured log level to slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
