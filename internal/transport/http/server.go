// Package http serves the optional status API and the WebSocket bridge.
package http

import (
	"context"
	"net"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// Endpoint is the view of one relay endpoint the status server needs.
type Endpoint interface {
	ID() string
	Path() string
	Snapshot(ctx context.Context) (core.Snapshot, error)
	Serve(ctx context.Context, conn net.Conn) error
}

// NewServer builds the status HTTP server. Bridged WebSocket connections are
// closed when the server shuts down.
func NewServer(endpoints []Endpoint, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	shutdownCtx, cancel := context.WithCancel(context.Background())

	srv := &stdhttp.Server{
		Addr:              cfg.Status.Addr,
		Handler:           NewRouter(shutdownCtx, endpoints, cfg.MaxLineBytes, logger),
		ReadHeaderTimeout: cfg.Status.ReadHeaderTimeout,
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}

// NewRouter registers the status routes. WebSocket sessions end when base is
// cancelled and accept frames of up to maxLineBytes.
func NewRouter(base context.Context, endpoints []Endpoint, maxLineBytes int, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	h := NewEndpointHandlers(endpoints, logger)
	ws := NewWSHandler(base, maxLineBytes, logger)

	api := router.Group("/api/endpoints")
	{
		api.GET("", h.List)
		api.GET("/:id/channels", h.Channels)
		api.GET("/:id/ws", h.lookup, ws.Bridge)
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
