package app

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/transport/unix"
)

func testConfig(t *testing.T, backend string, names ...string) config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.History.Backend = backend
	cfg.ShutdownTimeout = time.Second
	for _, name := range names {
		cfg.Endpoints = append(cfg.Endpoints, filepath.Join(dir, name))
	}
	return cfg
}

func exchange(t *testing.T, path string, lines ...string) []string {
	t.Helper()

	conn, err := net.DialTimeout("unix", path, time.Second)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	reader := bufio.NewReader(conn)
	replies := make([]string, 0, len(lines))
	for _, line := range lines {
		_, err := conn.Write([]byte(line + "\n"))
		require.NoError(t, err)
		reply, err := reader.ReadString('\n')
		require.NoError(t, err)
		replies = append(replies, reply)
	}
	return replies
}

func TestRunServesEveryEndpoint(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			logger := zerolog.Nop()
			cfg := testConfig(t, backend, "a.sock", "b.sock")

			a, err := New(cfg, &logger)
			require.NoError(t, err)
			require.Len(t, a.Endpoints(), 2)
			assert.Equal(t, "0", a.Endpoints()[0].ID())

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- a.Run(ctx) }()

			for _, path := range cfg.Endpoints {
				replies := exchange(t, path, "nick alice", "join #general")
				assert.Equal(t, []string{
					"ok Your nick has been set.\n",
					"ok You have created and joined the channel.\n",
				}, replies)
			}

			snap, err := a.Endpoints()[1].Snapshot(ctx)
			require.NoError(t, err)
			require.Len(t, snap.Channels, 1)
			assert.Equal(t, 1, snap.Channels[0].Messages)

			cancel()
			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("app did not stop")
			}

			for _, path := range cfg.Endpoints {
				_, err := os.Stat(path)
				assert.True(t, os.IsNotExist(err), "socket %s should be removed", path)
			}
		})
	}
}

func TestNewRejectsUsedPathAndReleasesOthers(t *testing.T) {
	logger := zerolog.Nop()
	cfg := testConfig(t, "memory", "free.sock", "taken")
	require.NoError(t, os.WriteFile(cfg.Endpoints[1], nil, 0o600))

	_, err := New(cfg, &logger)
	require.ErrorIs(t, err, unix.ErrPathInUse)

	_, err = os.Stat(cfg.Endpoints[0])
	assert.True(t, os.IsNotExist(err), "already opened socket should be removed")
}

func TestNewValidatesConfig(t *testing.T) {
	logger := zerolog.Nop()
	_, err := New(config.Default(), &logger)
	assert.ErrorIs(t, err, config.ErrNoEndpoints)
}
