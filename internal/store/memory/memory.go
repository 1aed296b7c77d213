package memory

import (
	"context"
	"sync"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// History keeps channel logs in process memory. Logs grow without bound.
type History struct {
	mu   sync.RWMutex
	logs map[string][]store.Record
}

// New creates an empty in-memory history.
func New() *History {
	return &History{logs: make(map[string][]store.Record)}
}

// Append adds rec to the end of its channel log.
func (h *History) Append(_ context.Context, rec store.Record) error {
	h.mu.Lock()
	h.logs[rec.Channel] = append(h.logs[rec.Channel], rec)
	h.mu.Unlock()
	return nil
}

// Since returns the records of channel with Timestamp >= ts.
func (h *History) Since(_ context.Context, channel string, ts int64) ([]store.Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []store.Record
	for _, rec := range h.logs[channel] {
		if rec.Timestamp >= ts {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Len returns the size of a channel log.
func (h *History) Len(_ context.Context, channel string) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.logs[channel]), nil
}

// Close is a no-op.
func (h *History) Close() error {
	return nil
}
