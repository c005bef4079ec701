package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mrzor/strace-tree/internal/eventstream"
	"github.com/mrzor/strace-tree/internal/execargs"
	"github.com/mrzor/strace-tree/internal/procmeta"
	"github.com/mrzor/strace-tree/internal/tracelog"

	"go.uber.org/multierr"
)

// ErrEmptyLog is returned for a log without a single non-blank line.
var ErrEmptyLog = errors.New("empty log")

// Result is the outcome of scanning one process log.
type Result struct {
	Record *procmeta.Record
	// Err aggregates per-line degradations (malformed execve payloads).
	// The record is still usable when Err is non-nil.
	Err error
}

// Processor accumulates the events of a single process.
type Processor struct {
	record *procmeta.Record
	errs   error
}

// NewProcessor creates a processor for the log of pid.
func NewProcessor(pid int) *Processor {
	return &Processor{
		record: &procmeta.Record{PID: pid, HasLog: true},
	}
}

// HandleEvent routes a classified line by kind.
func (p *Processor) HandleEvent(timestamp string, event tracelog.Event) error {
	if p.record.FirstSeen == "" {
		p.record.FirstSeen = timestamp
	}
	p.record.LastSeen = timestamp

	switch event.Kind {
	case tracelog.KindStdout:
		p.record.WroteStdout = true
	case tracelog.KindStderr:
		p.record.WroteStderr = true
	case tracelog.KindExec:
		p.handleExec(timestamp, event)
	case tracelog.KindExit:
		p.handleExit(event)
	case tracelog.KindSpawn:
		p.record.Children = append(p.record.Children, procmeta.Edge{
			Child:     event.Child,
			Call:      event.Call,
			Timestamp: timestamp,
		})
	default:
		// Not an event we track
	}

	return nil
}

// handleExec decodes the execve payload. A later successful execve replaces
// an earlier one; a malformed payload leaves the record untouched.
func (p *Processor) handleExec(timestamp string, event tracelog.Event) {
	exec, err := execargs.DecodeExec(event.Payload)
	if err != nil {
		p.record.UndecodedExecs++
		p.record.Issues = append(p.record.Issues, fmt.Sprintf("execve at %s not decoded: %v", timestamp, err))
		p.errs = multierr.Append(p.errs, fmt.Errorf("pid %d: execve at %s: %w", p.record.PID, timestamp, err))
		return
	}
	p.record.Exec = exec
}

func (p *Processor) handleExit(event tracelog.Event) {
	if event.Signal != "" {
		p.record.Signal = event.Signal
		return
	}
	status := event.Status
	p.record.ExitStatus = &status
}

// Result returns the scanned record and any accumulated degradations.
func (p *Processor) Result() *Result {
	return &Result{Record: p.record, Err: p.errs}
}

// ScanReader scans a complete process log.
// The returned error is only set for read failures and empty logs;
// per-line degradations are reported in Result.Err.
func ScanReader(ctx context.Context, pid int, r io.Reader) (*Result, error) {
	processor := NewProcessor(pid)

	lines, err := eventstream.New(r, processor).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning pid %d: %w", pid, err)
	}
	if lines == 0 {
		return nil, fmt.Errorf("scanning pid %d: %w", pid, ErrEmptyLog)
	}

	return processor.Result(), nil
}
