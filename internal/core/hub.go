package core

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Hub owns the Registry of one endpoint. Every state transition runs on the
// goroutine executing Run, so commands never interleave with each other.
type Hub struct {
	registry *Registry
	clock    clock.Clock
	log      *zerolog.Logger

	requests chan request
	inspect  chan inspection
	stopped  chan struct{}
}

type request struct {
	client *Client
	cmd    Command
	done   chan struct{}
}

type inspection struct {
	fn   func(context.Context, *Registry)
	done chan struct{}
}

// Option customises a Hub.
type Option func(*Hub)

// WithClock replaces the wall clock used for message timestamps.
func WithClock(c clock.Clock) Option {
	return func(h *Hub) { h.clock = c }
}

// NewHub creates a hub whose channel logs are kept in history.
func NewHub(history store.History, logger *zerolog.Logger, opts ...Option) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	h := &Hub{
		registry: NewRegistry(history, logger),
		clock:    clock.New(),
		log:      logger,
		requests: make(chan request),
		inspect:  make(chan inspection),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes requests until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-h.requests:
			h.handle(ctx, req.client, req.cmd)
			close(req.done)
		case in := <-h.inspect:
			in.fn(ctx, h.registry)
			close(in.done)
		}
	}
}

// Submit hands a command to the hub and returns once it has been applied.
// Replies and broadcasts are queued on the affected clients by then.
func (h *Hub) Submit(ctx context.Context, c *Client, cmd Command) error {
	req := request{client: c, cmd: cmd, done: make(chan struct{})}
	select {
	case h.requests <- req:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return h.wait(ctx, req.done)
}

// RegisterClient records a new connection in the registry.
func (h *Hub) RegisterClient(ctx context.Context, c *Client) error {
	return h.do(ctx, func(_ context.Context, r *Registry) {
		r.RegisterClient(c)
	})
}

// do runs fn on the hub goroutine and waits for it to finish.
func (h *Hub) do(ctx context.Context, fn func(context.Context, *Registry)) error {
	in := inspection{fn: fn, done: make(chan struct{})}
	select {
	case h.inspect <- in:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return h.wait(ctx, in.done)
}

func (h *Hub) wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-h.stopped:
		// Run may have finished the request right before stopping.
		select {
		case <-done:
			return nil
		default:
			return ErrHubStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) now() int64 {
	return h.clock.Now().Unix()
}
