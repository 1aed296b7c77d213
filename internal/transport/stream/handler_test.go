package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/store/memory"
)

const testEpoch = 1_700_000_000

type testPeer struct {
	conn   net.Conn
	reader *bufio.Reader
	done   chan error
}

func startTestHandler(t *testing.T, opts Options) (*Handler, *core.Hub) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Unix(testEpoch, 0))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := zerolog.Nop()
	hub := core.NewHub(memory.New(), &logger, core.WithClock(mock))
	go hub.Run(ctx)

	return NewHandler(hub, &logger, opts), hub
}

func connect(t *testing.T, h *Handler) *testPeer {
	t.Helper()

	server, client := net.Pipe()
	p := &testPeer{conn: client, reader: bufio.NewReader(client), done: make(chan error, 1)}
	go func() { p.done <- h.Serve(context.Background(), server) }()
	t.Cleanup(func() { _ = client.Close() })
	return p
}

func (p *testPeer) send(t *testing.T, line string) {
	t.Helper()
	_ = p.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err := p.conn.Write([]byte(line))
	require.NoError(t, err)
}

func (p *testPeer) expect(t *testing.T, want string) {
	t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := p.reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, want+"\n", got)
}

func (p *testPeer) finished(t *testing.T) error {
	t.Helper()
	select {
	case err := <-p.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return")
		return nil
	}
}

func TestServeScenario(t *testing.T) {
	h, _ := startTestHandler(t, Options{})

	alice := connect(t, h)
	bob := connect(t, h)
	carol := connect(t, h)

	alice.send(t, "nick alice\n")
	alice.expect(t, "ok Your nick has been set.")

	bob.send(t, "nick alice\n")
	bob.expect(t, "error You cannot use this nick.")
	bob.send(t, "nick bob\n")
	bob.expect(t, "ok Your nick has been set.")

	alice.send(t, "join #general\n")
	alice.expect(t, "ok You have created and joined the channel.")
	bob.send(t, "join #general\n")
	bob.expect(t, "ok You have joined the channel.")
	alice.expect(t, fmt.Sprintf("message #general %d *server* bob has joined the channel", testEpoch))

	alice.send(t, "message #general hello world\n")
	alice.expect(t, fmt.Sprintf("message #general %d alice hello world", testEpoch))
	bob.expect(t, fmt.Sprintf("message #general %d alice hello world", testEpoch))

	alice.send(t, "replay #general 0\n")
	alice.expect(t, "ok Replay command is valid.")
	alice.expect(t, fmt.Sprintf("message #general %d *server* alice has joined the channel", testEpoch))
	alice.expect(t, fmt.Sprintf("message #general %d *server* bob has joined the channel", testEpoch))
	alice.expect(t, fmt.Sprintf("message #general %d alice hello world", testEpoch))

	carol.send(t, "join #general\n")
	carol.expect(t, "error First, you have to select your nick.")

	alice.send(t, "part #general\n")
	alice.expect(t, "ok You have left the channel.")
	alice.send(t, "message #general hi\n")
	alice.expect(t, "error You are no associated with this channel.")
}

func TestServeStalledReaderDoesNotBlockOthers(t *testing.T) {
	h, _ := startTestHandler(t, Options{})

	alice := connect(t, h)
	bob := connect(t, h)

	alice.send(t, "nick alice\n")
	alice.expect(t, "ok Your nick has been set.")
	bob.send(t, "nick bob\n")
	bob.expect(t, "ok Your nick has been set.")
	alice.send(t, "join #g\n")
	alice.expect(t, "ok You have created and joined the channel.")
	bob.send(t, "join #g\n")
	bob.expect(t, "ok You have joined the channel.")
	alice.expect(t, fmt.Sprintf("message #g %d *server* bob has joined the channel", testEpoch))

	// bob stops reading while alice keeps talking.
	const count = 200
	for i := range count {
		alice.send(t, fmt.Sprintf("message #g m%d\n", i))
		alice.expect(t, fmt.Sprintf("message #g %d alice m%d", testEpoch, i))
	}

	carol := connect(t, h)
	carol.send(t, "nick carol\n")
	carol.expect(t, "ok Your nick has been set.")

	// bob's backlog arrives intact once he reads again.
	for i := range count {
		bob.expect(t, fmt.Sprintf("message #g %d alice m%d", testEpoch, i))
	}
}

func TestServeSplitsPipelinedInput(t *testing.T) {
	h, _ := startTestHandler(t, Options{})
	p := connect(t, h)

	go func() {
		_, _ = p.conn.Write([]byte("nick alice\r\njoin #a\nbogus\n"))
	}()
	p.expect(t, "ok Your nick has been set.")
	p.expect(t, "ok You have created and joined the channel.")
	p.expect(t, "error Unknown command.")
}

func TestServeEndsOnTruncatedLine(t *testing.T) {
	h, hub := startTestHandler(t, Options{})
	p := connect(t, h)

	p.send(t, "nick alice\n")
	p.expect(t, "ok Your nick has been set.")
	p.send(t, "join #gen")
	require.NoError(t, p.conn.Close())

	require.NoError(t, p.finished(t))

	snap, err := hub.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Channels, "the unterminated line must not be processed")
	assert.Equal(t, 1, snap.Identified, "nick stays reserved after disconnect")
}

func TestServeRejectsInvalidUTF8(t *testing.T) {
	h, _ := startTestHandler(t, Options{})
	p := connect(t, h)

	go func() { _, _ = p.conn.Write([]byte{'n', 'i', 'c', 'k', ' ', 0xff, '\n'}) }()
	assert.ErrorIs(t, p.finished(t), ErrInvalidUTF8)
}

func TestServeRejectsLongLines(t *testing.T) {
	h, _ := startTestHandler(t, Options{MaxLineBytes: 32})
	p := connect(t, h)

	go func() { _, _ = p.conn.Write([]byte("message #general " + strings.Repeat("x", 64) + "\n")) }()
	assert.ErrorIs(t, p.finished(t), ErrLineTooLong)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	h, _ := startTestHandler(t, Options{})

	server, client := net.Pipe()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx, server) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not stop")
	}
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("one\n\ntwo words\nlast"), 16)

	line, err := readLine(r, 64)
	require.NoError(t, err)
	assert.Equal(t, "one", line)

	line, err = readLine(r, 64)
	require.NoError(t, err)
	assert.Equal(t, "", line)

	line, err = readLine(r, 64)
	require.NoError(t, err)
	assert.Equal(t, "two words", line)

	_, err = readLine(r, 64)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = readLine(r, 64)
	assert.ErrorIs(t, err, io.EOF)
}
