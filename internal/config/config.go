package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Config holds server configuration values.
type Config struct {
	// Endpoints lists the unix socket paths to serve; each gets its own namespace.
	Endpoints       []string      `mapstructure:"endpoints" yaml:"endpoints"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	MaxLineBytes    int           `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	History         HistoryConfig `mapstructure:"history" yaml:"history"`
	Status          StatusConfig  `mapstructure:"status" yaml:"status"`
}

// HistoryConfig selects where channel logs are kept.
type HistoryConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// StatusConfig configures the optional HTTP status server. Empty Addr disables it.
type StatusConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Endpoints:       []string{},
		LogLevel:        "info",
		MaxLineBytes:    64 * 1024,
		ShutdownTimeout: 5 * time.Second,
		History: HistoryConfig{
			Backend: store.BackendMemory,
		},
		Status: StatusConfig{
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if len(other.Endpoints) > 0 {
		c.Endpoints = slices.Clone(other.Endpoints)
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MaxLineBytes != 0 {
		c.MaxLineBytes = other.MaxLineBytes
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.History.Backend != "" {
		c.History.Backend = other.History.Backend
	}
	if other.Status.Addr != "" {
		c.Status.Addr = other.Status.Addr
	}
	if other.Status.ReadHeaderTimeout != 0 {
		c.Status.ReadHeaderTimeout = other.Status.ReadHeaderTimeout
	}
}

var (
	// ErrNoEndpoints is returned when no socket path is configured.
	ErrNoEndpoints = errors.New("no endpoints configured")
	// ErrInvalidEndpoint is returned for blank or duplicated socket paths.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)

// Validate checks values that cannot be fixed by falling back to defaults.
// Socket files are checked when the endpoints are opened.
func (c Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return ErrNoEndpoints
	}
	seen := make(map[string]struct{}, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		if strings.TrimSpace(ep) == "" {
			return fmt.Errorf("%w: blank path", ErrInvalidEndpoint)
		}
		if _, dup := seen[ep]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidEndpoint, ep)
		}
		seen[ep] = struct{}{}
	}

	switch c.History.Backend {
	case store.BackendMemory, store.BackendSQLite:
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}

	if c.MaxLineBytes <= 0 {
		return fmt.Errorf("max_line_bytes must be positive, got %d", c.MaxLineBytes)
	}
	return nil
}
