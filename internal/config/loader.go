package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "WIRECHAT"
	envConfigDefaultPath = "WIRECHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "wirechat-relay.yaml"
)

// Load builds configuration from defaults, optional config file and env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
// A missing file is only created when the caller asked for a specific path.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaultValues(cfg) {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
		if explicitPath != "" {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
		} else {
			logger.Debug().Str("path", configPath).Msg("no config file, using defaults")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

// defaultValues flattens cfg into viper keys. Env vars only bind to keys viper knows.
func defaultValues(cfg Config) map[string]any {
	return map[string]any{
		"endpoints":                  cfg.Endpoints,
		"log_level":                  cfg.LogLevel,
		"max_line_bytes":             cfg.MaxLineBytes,
		"shutdown_timeout":           cfg.ShutdownTimeout,
		"history.backend":            cfg.History.Backend,
		"status.addr":                cfg.Status.Addr,
		"status.read_header_timeout": cfg.Status.ReadHeaderTimeout,
	}
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		return filepath.Join(base, defaultConfigName)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

// writeDefaultConfig stores cfg with durations in their readable form ("5s").
func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	doc := map[string]any{
		"endpoints":        cfg.Endpoints,
		"log_level":        cfg.LogLevel,
		"max_line_bytes":   cfg.MaxLineBytes,
		"shutdown_timeout": cfg.ShutdownTimeout.String(),
		"history": map[string]any{
			"backend": cfg.History.Backend,
		},
		"status": map[string]any{
			"addr":                cfg.Status.Addr,
			"read_header_timeout": cfg.Status.ReadHeaderTimeout.String(),
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
