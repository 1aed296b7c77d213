package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Endpoints = []string{"a.sock", "b.sock"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no endpoints", mutate: func(c *Config) { c.Endpoints = nil }},
		{name: "blank endpoint", mutate: func(c *Config) { c.Endpoints = []string{"a.sock", "  "} }},
		{name: "duplicate endpoint", mutate: func(c *Config) { c.Endpoints = []string{"a.sock", "a.sock"} }},
		{name: "unknown backend", mutate: func(c *Config) { c.History.Backend = "redis" }},
		{name: "line cap", mutate: func(c *Config) { c.MaxLineBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			cfg.Endpoints = append([]string(nil), valid.Endpoints...)
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{
		Endpoints: []string{"x.sock"},
		History:   HistoryConfig{Backend: "sqlite"},
	})

	assert.Equal(t, []string{"x.sock"}, cfg.Endpoints)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoadWritesDefaultForExplicitPath(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "conf", "relay.yaml")

	cfg, resolved, err := Load(&logger, path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
	assert.Equal(t, Default().MaxLineBytes, cfg.MaxLineBytes)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")

	// The written file must load back to the same values.
	again, _, err := Load(&logger, path)
	require.NoError(t, err)
	assert.Equal(t, cfg.ShutdownTimeout, again.ShutdownTimeout)
	assert.Equal(t, cfg.Status.ReadHeaderTimeout, again.Status.ReadHeaderTimeout)
}

func TestLoadPrecedence(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	content := `
endpoints: [one.sock, two.sock]
log_level: debug
shutdown_timeout: 2s
history:
  backend: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("WIRECHAT_LOG_LEVEL", "warn")
	t.Setenv("WIRECHAT_STATUS_ADDR", "127.0.0.1:9090")

	cfg, _, err := Load(&logger, path)
	require.NoError(t, err)

	assert.Equal(t, []string{"one.sock", "two.sock"}, cfg.Endpoints)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, "127.0.0.1:9090", cfg.Status.Addr)
	assert.Equal(t, 64*1024, cfg.MaxLineBytes)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	logger := zerolog.Nop()
	t.Setenv(envConfigDefaultPath, t.TempDir())

	cfg, resolved, err := Load(&logger, "")
	require.NoError(t, err)
	assert.Equal(t, Default().History, cfg.History)

	_, err = os.Stat(resolved)
	assert.True(t, os.IsNotExist(err), "implicit config path must not be created")
}
