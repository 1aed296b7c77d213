// Package app wires endpoints, hubs and the status server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/memory"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-relay/internal/transport/http"
	"github.com/vovakirdan/wirechat-relay/internal/transport/stream"
	"github.com/vovakirdan/wirechat-relay/internal/transport/unix"
)

// Endpoint is one socket path with its own independent hub.
type Endpoint struct {
	id       string
	hub      *core.Hub
	handler  *stream.Handler
	history  store.History
	listener *unix.Listener
}

// ID returns the endpoint's position in the configured list.
func (e *Endpoint) ID() string { return e.id }

// Path returns the absolute socket path.
func (e *Endpoint) Path() string { return e.listener.Path() }

// Snapshot reports the endpoint's registry state.
func (e *Endpoint) Snapshot(ctx context.Context) (core.Snapshot, error) {
	return e.hub.Snapshot(ctx)
}

// Serve attaches conn to the endpoint as if it had been accepted on the socket.
func (e *Endpoint) Serve(ctx context.Context, conn net.Conn) error {
	return e.handler.Serve(ctx, conn)
}

// App wires together core and transport layers.
type App struct {
	endpoints       []*Endpoint
	status          *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New opens every configured endpoint. Nothing is served until Run.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{shutdownTimeout: cfg.ShutdownTimeout, log: logger}

	for i, path := range cfg.Endpoints {
		ep, err := openEndpoint(strconv.Itoa(i), path, cfg, logger)
		if err != nil {
			a.closeEndpoints()
			return nil, err
		}
		a.endpoints = append(a.endpoints, ep)
		logger.Info().Str("endpoint", ep.Path()).Str("id", ep.id).Str("history", cfg.History.Backend).Msg("endpoint opened")
	}

	if cfg.Status.Addr != "" {
		views := make([]transporthttp.Endpoint, 0, len(a.endpoints))
		for _, ep := range a.endpoints {
			views = append(views, ep)
		}
		a.status = transporthttp.NewServer(views, cfg, logger)
	}

	return a, nil
}

func openEndpoint(id, path string, cfg config.Config, logger *zerolog.Logger) (*Endpoint, error) {
	history, err := openHistory(cfg.History.Backend)
	if err != nil {
		return nil, fmt.Errorf("init history for %s: %w", path, err)
	}

	epLog := logger.With().Str("endpoint_id", id).Logger()
	hub := core.NewHub(history, &epLog)
	handler := stream.NewHandler(hub, &epLog, stream.Options{MaxLineBytes: cfg.MaxLineBytes})

	ln, err := unix.Listen(path, handler, &epLog)
	if err != nil {
		_ = history.Close()
		return nil, err
	}

	return &Endpoint{id: id, hub: hub, handler: handler, history: history, listener: ln}, nil
}

func openHistory(backend string) (store.History, error) {
	switch backend {
	case store.BackendSQLite:
		h, err := sqlite.New()
		if err != nil {
			return nil, err
		}
		return h, nil
	case store.BackendMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", backend)
	}
}

// Endpoints returns the opened endpoints in configuration order.
func (a *App) Endpoints() []*Endpoint {
	return a.endpoints
}

// Run serves every endpoint and the status server until ctx is cancelled or
// one of them fails, then stops the rest and releases resources.
func (a *App) Run(ctx context.Context) error {
	defer a.closeHistories()

	g, ctx := errgroup.WithContext(ctx)

	for _, ep := range a.endpoints {
		g.Go(func() error {
			ep.hub.Run(ctx)
			return nil
		})
		g.Go(func() error {
			if err := ep.listener.Serve(ctx); err != nil {
				return fmt.Errorf("endpoint %s: %w", ep.Path(), err)
			}
			return nil
		})
	}

	if a.status != nil {
		g.Go(func() error {
			a.log.Info().Str("addr", a.status.Addr).Msg("status server started")
			if err := a.status.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
			defer cancel()

			a.log.Info().Msg("shutting down status server")
			if err := a.status.Shutdown(shutdownCtx); err != nil {
				_ = a.status.Close()
				return fmt.Errorf("status shutdown: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// closeEndpoints undoes a partially completed New.
func (a *App) closeEndpoints() {
	for _, ep := range a.endpoints {
		if err := ep.listener.Close(); err != nil {
			a.log.Warn().Err(err).Str("endpoint", ep.Path()).Msg("failed to close listener")
		}
	}
	a.closeHistories()
}

func (a *App) closeHistories() {
	for _, ep := range a.endpoints {
		if err := ep.history.Close(); err != nil {
			a.log.Warn().Err(err).Str("endpoint", ep.Path()).Msg("failed to close history")
		}
	}
}
