package core

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store/memory"
)

const testEpoch = 1_700_000_000

func newTestHub(t *testing.T) (*Hub, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Unix(testEpoch, 0))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(memory.New(), nil, WithClock(mock))
	go hub.Run(ctx)
	return hub, mock
}

func newTestClient(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()

	c := NewClient(id)
	if err := hub.RegisterClient(context.Background(), c); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	t.Cleanup(c.Close)
	return c
}

// send submits one raw request line and waits until the hub has applied it.
func send(t *testing.T, hub *Hub, c *Client, line string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hub.Submit(ctx, c, ParseCommand(proto.Split(line))); err != nil {
		t.Fatalf("submit %q: %v", line, err)
	}
}

// popLine removes the oldest queued line of c.
func popLine(c *Client) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return "", false
	}
	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, true
}

func mustLine(t *testing.T, c *Client) string {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		if line, ok := popLine(c); ok {
			return line
		}
		select {
		case <-c.Ready():
		case <-timeout:
			t.Fatalf("expected a line for client %s", c.ID)
			return ""
		}
	}
}

func expectLine(t *testing.T, c *Client, want string) {
	t.Helper()

	if got := mustLine(t, c); got != want {
		t.Fatalf("client %s: got %q, want %q", c.ID, got, want)
	}
}

// expectSilence checks nothing is queued; Submit is synchronous so no wait is needed.
func expectSilence(t *testing.T, c *Client) {
	t.Helper()

	if line, ok := popLine(c); ok {
		t.Fatalf("client %s: unexpected line %q", c.ID, line)
	}
}

// identify connects a client and sets its nick.
func identify(t *testing.T, hub *Hub, id, nick string) *Client {
	t.Helper()

	c := newTestClient(t, hub, id)
	send(t, hub, c, "nick "+nick)
	expectLine(t, c, "ok "+TextNickSet)
	return c
}
