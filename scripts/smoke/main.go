package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

func main() {
	if err := run(); err != nil {
		log.Printf("smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	socket := flag.String("socket", "", "unix socket path of the relay")
	wsAddr := flag.String("ws", "", "WebSocket bridge address, e.g. ws://localhost:8080/api/endpoints/0/ws")
	nick := flag.String("nick", "tester", "nick to select")
	channel := flag.String("channel", "#smoke", "channel to join")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := dial(ctx, *socket, *wsAddr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	reader := bufio.NewReader(conn)
	steps := []struct {
		line    string
		replies int
	}{
		{line: "nick " + *nick, replies: 1},
		{line: "join " + *channel, replies: 1},
		{line: "message " + *channel + " " + *text, replies: 1},
		{line: "replay " + *channel + " 0", replies: 1},
	}

	for _, step := range steps {
		if _, err := fmt.Fprintf(conn, "%s\n", step.line); err != nil {
			return fmt.Errorf("send %q: %w", step.line, err)
		}
		fmt.Printf("> %s\n", step.line)
		for range step.replies {
			reply, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			reply = strings.TrimSuffix(reply, "\n")
			fmt.Printf("< %s\n", reply)
			if strings.HasPrefix(reply, "error ") {
				return fmt.Errorf("relay rejected %q: %s", step.line, reply)
			}
		}
	}

	// Print the replayed backlog until the relay goes quiet.
	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("< %s", line)
	}
}

func dial(ctx context.Context, socket, wsAddr string) (net.Conn, error) {
	switch {
	case socket != "" && wsAddr != "":
		return nil, errors.New("use either -socket or -ws")
	case socket != "":
		var d net.Dialer
		return d.DialContext(ctx, "unix", socket)
	case wsAddr != "":
		c, _, err := websocket.Dial(ctx, wsAddr, nil)
		if err != nil {
			return nil, err
		}
		return websocket.NetConn(context.Background(), c, websocket.MessageText), nil
	default:
		return nil, errors.New("one of -socket or -ws is required")
	}
}
