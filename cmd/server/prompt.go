package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/vovakirdan/wirechat-relay/internal/transport/unix"
)

const (
	promptText   = "Enter names of unix servers: "
	rejectedText = "Some of the names are already used."
)

// promptEndpoints asks for space separated socket paths until every one is free.
func promptEndpoints(in io.Reader, out io.Writer) ([]string, error) {
	scanner := bufio.NewScanner(in)
	for {
		if _, err := fmt.Fprint(out, promptText); err != nil {
			return nil, err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.ErrUnexpectedEOF
		}

		names := strings.Fields(scanner.Text())
		if usableNames(names) {
			return names, nil
		}
		if _, err := fmt.Fprintln(out, rejectedText); err != nil {
			return nil, err
		}
	}
}

// usableNames reports whether names is non-empty, free of duplicates and
// names nothing that already exists.
func usableNames(names []string) bool {
	if len(names) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return false
		}
		seen[name] = struct{}{}
		if unix.CheckPath(name) != nil {
			return false
		}
	}
	return true
}
