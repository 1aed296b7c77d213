package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

const contextKeyEndpoint = "endpoint"

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// EndpointResponse summarises one endpoint.
type EndpointResponse struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Clients    int    `json:"clients"`
	Identified int    `json:"identified"`
	Channels   int    `json:"channels"`
}

// ChannelsResponse lists the channels of one endpoint and who is in them.
type ChannelsResponse struct {
	Channels    []core.ChannelSnapshot `json:"channels"`
	Memberships map[string][]string    `json:"memberships"`
}

// EndpointHandlers serves read-only views of the endpoints.
type EndpointHandlers struct {
	endpoints []Endpoint
	byID      map[string]Endpoint
	log       *zerolog.Logger
}

// NewEndpointHandlers indexes endpoints by id.
func NewEndpointHandlers(endpoints []Endpoint, logger *zerolog.Logger) *EndpointHandlers {
	byID := make(map[string]Endpoint, len(endpoints))
	for _, ep := range endpoints {
		byID[ep.ID()] = ep
	}
	return &EndpointHandlers{endpoints: endpoints, byID: byID, log: logger}
}

// List returns every endpoint with its client and channel counts.
// GET /api/endpoints
func (h *EndpointHandlers) List(c *gin.Context) {
	resp := make([]EndpointResponse, 0, len(h.endpoints))
	for _, ep := range h.endpoints {
		snap, err := ep.Snapshot(c.Request.Context())
		if err != nil {
			h.log.Warn().Err(err).Str("endpoint", ep.Path()).Msg("snapshot failed")
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "endpoint unavailable"})
			return
		}
		resp = append(resp, EndpointResponse{
			ID:         ep.ID(),
			Path:       ep.Path(),
			Clients:    snap.Clients,
			Identified: snap.Identified,
			Channels:   len(snap.Channels),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Channels returns the channel snapshot of one endpoint.
// GET /api/endpoints/:id/channels
func (h *EndpointHandlers) Channels(c *gin.Context) {
	ep, ok := h.find(c)
	if !ok {
		return
	}

	snap, err := ep.Snapshot(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Str("endpoint", ep.Path()).Msg("snapshot failed")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "endpoint unavailable"})
		return
	}
	c.JSON(http.StatusOK, ChannelsResponse{Channels: snap.Channels, Memberships: snap.Memberships})
}

// lookup resolves :id and stores the endpoint for the next handler.
func (h *EndpointHandlers) lookup(c *gin.Context) {
	ep, ok := h.find(c)
	if !ok {
		c.Abort()
		return
	}
	c.Set(contextKeyEndpoint, ep)
	c.Next()
}

func (h *EndpointHandlers) find(c *gin.Context) (Endpoint, bool) {
	ep, ok := h.byID[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "endpoint not found"})
		return nil, false
	}
	return ep, true
}
