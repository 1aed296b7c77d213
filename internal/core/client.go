package core

import (
	"maps"
	"slices"
	"sync"
)

// Client is one connection as seen by the hub.
// nick and channels belong to the hub goroutine. Lines for the connection
// collect in an unbounded pending buffer that the writer drains with Take,
// so a peer that stops reading never holds up the hub.
type Client struct {
	ID string

	nick     string
	channels map[string]*Channel

	mu      sync.Mutex
	pending []string
	closed  bool

	ready     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs an anonymous client.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		channels: make(map[string]*Channel),
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Ready receives a value after lines were queued. Call Take to collect them.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Take removes and returns every queued line in delivery order.
func (c *Client) Take() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := c.pending
	c.pending = nil
	return lines
}

// Done is closed once the connection has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close marks the connection as gone. Later deliveries are dropped; lines
// queued before Close can still be taken.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

// send queues a line without waiting. It reports false once the client is closed.
func (c *Client) send(line string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.pending = append(c.pending, line)
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
	return true
}

func (c *Client) reply(text string) {
	c.send(okLine(text))
}

func (c *Client) fail(err *CoreError) {
	c.send(err.Line())
}

func (c *Client) identified() bool {
	return c.nick != ""
}

// channelNames lists joined channels in a stable order.
func (c *Client) channelNames() []string {
	return slices.Sorted(maps.Keys(c.channels))
}
