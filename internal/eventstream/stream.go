// Package eventstream reads a per-process strace log and dispatches each
// classified line to a handler.
package eventstream

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/mrzor/strace-tree/internal/tracelog"
)

// maxLineSize bounds a single log line. execve lines carrying the whole
// environment routinely exceed bufio's 64KiB default.
const maxLineSize = 16 << 20

// EventHandler is the interface for handling classified trace lines.
// It is called for every non-blank line, including KindNone events, so
// the handler sees every timestamp.
type EventHandler interface {
	HandleEvent(timestamp string, event tracelog.Event) error
}

// Stream reads lines from a log and dispatches them to a handler.
type Stream struct {
	reader  io.Reader
	handler EventHandler
}

// New creates a new Stream with the given log reader and event handler.
func New(reader io.Reader, handler EventHandler) *Stream {
	return &Stream{
		reader:  reader,
		handler: handler,
	}
}

// Run processes the whole log. It stops at the first handler error, when the
// context is cancelled, or at end of input. Returns the number of lines
// dispatched.
func (s *Stream) Run(ctx context.Context) (int, error) {
	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lines := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return lines, err
		}

		timestamp, rest, ok := tracelog.SplitTimestamp(scanner.Text())
		if !ok {
			continue
		}

		if err := s.handler.HandleEvent(timestamp, tracelog.Classify(rest)); err != nil {
			return lines, fmt.Errorf("handling line %d: %w", lines+1, err)
		}
		lines++
	}

	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("reading log: %w", err)
	}

	return lines, nil
}
