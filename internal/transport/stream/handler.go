// Package stream drives one newline-delimited text connection against a core.Hub.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/utils"
)

// DefaultMaxLineBytes caps a request line, terminator included.
const DefaultMaxLineBytes = 64 * 1024

var (
	// ErrLineTooLong ends a connection that sends a line above the configured cap.
	ErrLineTooLong = errors.New("request line too long")
	// ErrInvalidUTF8 ends a connection that sends bytes which are not UTF-8.
	ErrInvalidUTF8 = errors.New("request line is not valid utf-8")
)

// Options tune per-connection limits.
type Options struct {
	MaxLineBytes int
}

// Handler bridges connections to a hub.
type Handler struct {
	hub  *core.Hub
	log  *zerolog.Logger
	opts Options
}

// NewHandler builds a connection handler for hub.
func NewHandler(hub *core.Hub, logger *zerolog.Logger, opts Options) *Handler {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = DefaultMaxLineBytes
	}
	return &Handler{hub: hub, log: logger, opts: opts}
}

// Serve runs the read and write loops of conn until the peer leaves, a
// transport error occurs or ctx is cancelled. conn is closed on return.
// A clean or truncated end of input is not an error.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	client := core.NewClient(utils.NewID())
	defer client.Close()
	logger := h.log.With().Str("conn_id", client.ID).Logger()

	if err := h.hub.RegisterClient(ctx, client); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("register client: %w", err)
	}
	logger.Debug().Msg("client connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A blocked read only returns once the connection is closed.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	writeErr := make(chan error, 1)
	go func() {
		err := h.writeLoop(conn, client)
		if err != nil {
			client.Close()
			cancel()
		}
		writeErr <- err
	}()

	err := h.readLoop(ctx, conn, client, &logger)
	// Let the writer flush replies that are already queued.
	client.Close()
	if wErr := <-writeErr; wErr != nil && (err == nil || isClosed(err)) {
		err = wErr
	}

	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
		isClosed(err), errors.Is(err, context.Canceled), errors.Is(err, core.ErrHubStopped):
		logger.Debug().Msg("client disconnected")
		return nil
	default:
		logger.Warn().Err(err).Msg("connection closed with error")
		return err
	}
}

func (h *Handler) readLoop(ctx context.Context, conn net.Conn, client *core.Client, logger *zerolog.Logger) error {
	reader := bufio.NewReader(conn)
	for {
		line, err := readLine(reader, h.opts.MaxLineBytes)
		if err != nil {
			return err
		}
		if !proto.ValidLine(line) {
			return ErrInvalidUTF8
		}

		logger.Debug().Str("line", line).Msg("request")

		if err := h.hub.Submit(ctx, client, core.ParseCommand(proto.Split(line))); err != nil {
			return err
		}
	}
}

// writeLoop writes queued lines in batches, flushing after each batch.
// Once the client is closed it writes what is left and returns.
func (h *Handler) writeLoop(conn net.Conn, client *core.Client) error {
	w := bufio.NewWriter(conn)

	for {
		select {
		case <-client.Ready():
			if err := writeBatch(w, client.Take()); err != nil {
				return err
			}
		case <-client.Done():
			return writeBatch(w, client.Take())
		}
	}
}

// readLine returns the next line without its '\n'. Input that ends before a
// terminator yields io.ErrUnexpectedEOF, or io.EOF when nothing was read.
func readLine(r *bufio.Reader, limit int) (string, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(buf)+len(chunk) > limit {
			return "", ErrLineTooLong
		}
		buf = append(buf, chunk...)

		switch {
		case err == nil:
			return string(bytes.TrimSuffix(buf, []byte{'\n'})), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(buf) == 0 {
				return "", io.EOF
			}
			return "", io.ErrUnexpectedEOF
		default:
			return "", err
		}
	}
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

func writeBatch(w *bufio.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}
