package store

import "context"

// Record is one entry of a channel log.
type Record struct {
	Channel   string
	Timestamp int64 // unix seconds
	Author    string
	Text      string
}

// History is an append-only log of channel messages.
// Records are returned in the order they were appended and are never modified.
type History interface {
	// Append adds a record to the end of its channel log.
	Append(ctx context.Context, rec Record) error

	// Since returns every record of channel with Timestamp >= ts, in append order.
	Since(ctx context.Context, channel string, ts int64) ([]Record, error)

	// Len returns the number of records stored for channel.
	Len(ctx context.Context, channel string) (int, error)

	// Close releases resources held by the log.
	Close() error
}

// Backend names accepted by configuration.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)
