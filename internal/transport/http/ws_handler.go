package http

import (
	"context"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/transport/stream"
	"github.com/vovakirdan/wirechat-relay/internal/utils"
)

// WSHandler upgrades HTTP connections and hands them to an endpoint as a
// plain text stream. Each text frame carries protocol lines.
type WSHandler struct {
	base      context.Context
	readLimit int64
	log       *zerolog.Logger
}

// NewWSHandler builds a WebSocket bridge whose sessions end when base is
// cancelled. A frame may carry up to maxLineBytes, the same cap as a socket line.
func NewWSHandler(base context.Context, maxLineBytes int, logger *zerolog.Logger) *WSHandler {
	if maxLineBytes <= 0 {
		maxLineBytes = stream.DefaultMaxLineBytes
	}
	return &WSHandler{base: base, readLimit: int64(maxLineBytes), log: logger}
}

// Bridge serves one WebSocket session.
// GET /api/endpoints/:id/ws
func (h *WSHandler) Bridge(c *gin.Context) {
	ep := c.MustGet(contextKeyEndpoint).(Endpoint)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	conn.SetReadLimit(h.readLimit)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	logger := h.log.With().Str("session", utils.NewID()).Str("endpoint", ep.Path()).Logger()
	logger.Debug().Msg("ws session opened")

	// NetConn closes the socket with StatusNormalClosure once Serve returns.
	if err := ep.Serve(ctx, websocket.NetConn(ctx, conn, websocket.MessageText)); err != nil {
		logger.Warn().Err(err).Msg("ws session ended with error")
		return
	}
	logger.Debug().Msg("ws session closed")
}
