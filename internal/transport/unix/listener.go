// Package unix serves the relay protocol on a unix stream socket.
package unix

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrBlankPath is returned for an empty or whitespace-only socket path.
	ErrBlankPath = errors.New("socket path is blank")
	// ErrPathInUse is returned when something already exists at the socket path.
	ErrPathInUse = errors.New("socket path already exists")
)

// ConnHandler serves one accepted connection until it ends.
type ConnHandler interface {
	Serve(ctx context.Context, conn net.Conn) error
}

// Listener accepts connections on one socket path.
type Listener struct {
	path    string
	handler ConnHandler
	log     *zerolog.Logger
	ln      net.Listener
	wg      sync.WaitGroup
}

// CheckPath reports whether path can be used for a new socket.
func CheckPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrBlankPath
	}
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrPathInUse)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}

// Listen binds a new socket at path. An existing file is never replaced.
func Listen(path string, handler ConnHandler, logger *zerolog.Logger) (*Listener, error) {
	if err := CheckPath(path); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	ln, err := net.Listen("unix", absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on unix socket %s: %w", absPath, err)
	}

	l := logger.With().Str("endpoint", absPath).Logger()
	return &Listener{
		path:    absPath,
		handler: handler,
		log:     &l,
		ln:      ln,
	}, nil
}

// Path returns the absolute socket path.
func (l *Listener) Path() string {
	return l.path
}

// Serve accepts connections until ctx is cancelled, then waits for open
// connections to finish and removes the socket file.
func (l *Listener) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		if err := l.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			l.log.Error().Err(err).Msg("error closing socket listener")
		}
	})
	defer stop()

	l.log.Info().Msg("unix socket server started")

	var acceptErr error
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				l.log.Warn().Err(err).Msg("temporary accept error")
				time.Sleep(50 * time.Millisecond)
				continue
			}
			acceptErr = fmt.Errorf("accept: %w", err)
			break
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			_ = l.handler.Serve(ctx, conn)
		}()
	}

	cancel()
	_ = l.ln.Close()
	l.wg.Wait()
	l.cleanup()
	l.log.Info().Msg("unix socket server stopped")
	return acceptErr
}

// Close releases a listener whose Serve was never started.
func (l *Listener) Close() error {
	err := l.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	l.cleanup()
	return err
}

func (l *Listener) cleanup() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.log.Warn().Err(err).Msg("failed to remove socket file")
		return
	}
	l.log.Info().Msg("socket file removed")
}
