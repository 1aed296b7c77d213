package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-relay/internal/app"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	applog "github.com/vovakirdan/wirechat-relay/internal/log"
)

var (
	configPath string
	overrides  config.Config
)

// rootCmd runs the relay when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "wirechat-relay",
	Short: "Line-based chat relay over unix sockets",
	Long: `wirechat-relay serves a newline-delimited chat protocol on one or more
unix stream sockets. Every socket is an independent server with its own
nicks and channels.

If no socket path is configured, the names are read from stdin.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// serveCmd is the explicit form of the root command.
var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run the relay",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "configuration file (YAML)")
	flags.StringArrayVar(&overrides.Endpoints, "socket", nil, "unix socket path to serve (repeatable)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error, off")
	flags.StringVar(&overrides.Status.Addr, "status-addr", "", "listen address of the HTTP status server")
	flags.StringVar(&overrides.History.Backend, "history", "", "channel log backend: memory or sqlite")
	flags.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	bootLog := applog.New(overrides.LogLevel)

	cfg, resolvedPath, err := config.Load(bootLog, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(overrides)

	logger := applog.New(cfg.LogLevel)
	logger.Debug().Str("config", resolvedPath).Msg("configuration loaded")

	if len(cfg.Endpoints) == 0 {
		names, err := promptEndpoints(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("read socket names: %w", err)
		}
		cfg.Endpoints = names
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		return err
	}

	logger.Info().Strs("endpoints", cfg.Endpoints).Msg("starting wirechat relay")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("relay exited with error")
		return err
	}
	logger.Info().Msg("relay stopped")
	return nil
}
