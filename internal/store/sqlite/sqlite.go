package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	channel   TEXT    NOT NULL,
	ts        INTEGER NOT NULL,
	author    TEXT    NOT NULL,
	body      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel, id);
`

// History implements store.History on top of an in-memory SQLite database.
// Nothing is written to disk; the log lives as long as the store is open.
type History struct {
	db *sql.DB
}

// New opens a private in-memory database and creates the schema.
func New() (*History, error) {
	return NewWithSetup(func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup opens a private in-memory database and runs setup on it.
func NewWithSetup(setup func(*sql.DB) error) (*History, error) {
	db, err := sql.Open("sqlite3", ":memory:?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// An in-memory database is bound to its connection, so keep exactly one alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the database connection and discards the log.
func (h *History) Close() error {
	return h.db.Close()
}

// Append inserts a record at the end of its channel log.
func (h *History) Append(ctx context.Context, rec store.Record) error {
	query := `
		INSERT INTO messages (channel, ts, author, body)
		VALUES (?, ?, ?, ?)
	`
	if _, err := h.db.ExecContext(ctx, query, rec.Channel, rec.Timestamp, rec.Author, rec.Text); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Since returns the records of channel with ts >= since, in insertion order.
func (h *History) Since(ctx context.Context, channel string, since int64) ([]store.Record, error) {
	query := `
		SELECT channel, ts, author, body
		FROM messages
		WHERE channel = ? AND ts >= ?
		ORDER BY id ASC
	`
	rows, err := h.db.QueryContext(ctx, query, channel, since)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var rec store.Record
		if err := rows.Scan(&rec.Channel, &rec.Timestamp, &rec.Author, &rec.Text); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return records, nil
}

// Len counts the records stored for channel.
func (h *History) Len(ctx context.Context, channel string) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE channel = ?`, channel).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
