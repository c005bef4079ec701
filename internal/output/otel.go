package output

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/mrzor/strace-tree/internal/report"
	"github.com/mrzor/strace-tree/internal/timesync"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// ExportOptions tune span export.
type ExportOptions struct {
	// Parent, when valid, becomes the remote parent of the root span.
	Parent trace.SpanContext
	// RootAttributes are added to the root span only.
	RootAttributes []attribute.KeyValue
}

// OTELExporter turns report rows into spans, one per process, each a child
// of its parent process's span.
type OTELExporter struct {
	tracer    trace.Tracer
	converter *timesync.Converter
}

// NewOTELExporter creates an exporter. Timestamps are converted by converter.
func NewOTELExporter(tracer trace.Tracer, converter *timesync.Converter) *OTELExporter {
	return &OTELExporter{tracer: tracer, converter: converter}
}

// Export creates and ends one span per row. Rows must be in report order.
func (e *OTELExporter) Export(ctx context.Context, rows []report.Row, opts ExportOptions) (int, error) {
	if opts.Parent.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, opts.Parent)
	}

	spanCtx := make(map[int]context.Context, len(rows)) // PID -> context carrying its span
	exported := 0
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		row := &rows[i]

		parentCtx := ctx
		if row.PPID != nil {
			pc, ok := spanCtx[*row.PPID]
			if !ok {
				return exported, fmt.Errorf("span for pid %d exported before its parent %d", row.PID, *row.PPID)
			}
			parentCtx = pc
		}

		start, end := e.interval(row)
		childCtx, span := e.tracer.Start(parentCtx, spanName(row),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithTimestamp(start),
			trace.WithAttributes(processAttributes(row)...),
		)
		spanCtx[row.PID] = childCtx

		if row.PPID == nil && len(opts.RootAttributes) > 0 {
			span.SetAttributes(opts.RootAttributes...)
		}
		if len(row.Custom) > 0 {
			span.SetAttributes(row.Custom...)
		}
		for j, issue := range row.Issues {
			span.SetAttributes(attribute.String(fmt.Sprintf("_tracing_warning_%d", j), issue))
		}

		if row.Failed() {
			span.SetStatus(codes.Error, "exit "+row.ExitCell())
		} else if row.ExitStatus != nil {
			span.SetStatus(codes.Ok, "")
		}

		span.End(trace.WithTimestamp(end))
		exported++
	}

	return exported, nil
}

// interval converts the row's first/last timestamps. A process known only
// from its parent's clone line has none, and gets an empty span at the
// anchor.
func (e *OTELExporter) interval(row *report.Row) (time.Time, time.Time) {
	start, end, err := e.converter.Interval(row.FirstSeen, row.LastSeen)
	if err != nil {
		log.WithField("pid", row.PID).Debugf("no span timing: %v", err)
		anchor := e.converter.Anchor()
		return anchor, anchor
	}
	return start, end
}

func spanName(row *report.Row) string {
	if row.Placeholder || row.Pathname == "" {
		return "process"
	}
	return path.Base(row.Pathname)
}

func processAttributes(row *report.Row) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ProcessPID(row.PID),
		attribute.String("strace.log", row.Log),
		attribute.String("strace.call", row.CallCell()),
		attribute.Bool("strace.stdout", row.Stdout),
		attribute.Bool("strace.stderr", row.Stderr),
	}
	if row.PPID != nil {
		attrs = append(attrs, semconv.ProcessParentPID(*row.PPID))
	}
	if !row.Placeholder {
		attrs = append(attrs,
			semconv.ProcessExecutablePath(row.Pathname),
			semconv.ProcessCommandArgs(row.Argv...),
		)
	}
	if row.Inherited {
		attrs = append(attrs, attribute.Int("strace.inherited_from", row.ResolvedFrom))
	}
	if row.ExitStatus != nil {
		attrs = append(attrs, attribute.Int("process.exit.code", *row.ExitStatus))
	}
	if row.Signal != "" {
		attrs = append(attrs, attribute.String("process.exit.signal", row.Signal))
	}
	return attrs
}
