// strace-tree reconstructs the process tree recorded by strace -ff and prints
// one row per process.
//
// Usage:
//
//	strace -f -ff -tt -v -s 4096 -o output <command>
//	strace-tree -prefix output
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrzor/strace-tree/internal/attributes"
	"github.com/mrzor/strace-tree/internal/config"
	"github.com/mrzor/strace-tree/internal/logset"
	"github.com/mrzor/strace-tree/internal/otel"
	"github.com/mrzor/strace-tree/internal/output"
	"github.com/mrzor/strace-tree/internal/procmeta"
	"github.com/mrzor/strace-tree/internal/report"
	"github.com/mrzor/strace-tree/internal/timesync"
	"github.com/mrzor/strace-tree/internal/tree"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

// Version information injected at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	cfg, err := config.ParseArgs(os.Args, version)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		fmt.Printf("strace-tree %s (%s)\n", version, commit)
		return nil
	}

	setupLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return execute(ctx, cfg, afero.NewOsFs(), os.Stdout)
}

func setupLogging(cfg *config.Config) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    cfg.NoColor,
	})
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// execute runs the whole pipeline against fs, writing the report to stdout.
func execute(ctx context.Context, cfg *config.Config, fs afero.Fs, stdout io.Writer) error {
	// Compile expressions before any log is read.
	evaluator, err := attributes.NewEvaluator(cfg.CustomAttributes)
	if err != nil {
		return err
	}

	files, err := logset.Discover(fs, cfg.RootPath, cfg.Prefix)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"logs": len(files), "root": cfg.RootPath}).Debug("discovered logs")

	scan, err := logset.ScanAll(ctx, fs, files, cfg.Jobs)
	if err != nil {
		return err
	}
	if skipped := multierr.Errors(scan.Skipped); len(skipped) > 0 {
		log.Warnf("%d of %d logs skipped", len(skipped), len(files))
	}

	t, err := tree.Build(scan.Table)
	if err != nil {
		return err
	}
	switch {
	case t.RootExecUndecoded:
		log.WithField("pid", t.Root.PID).Warn("root execve could not be decoded; was strace run with -v?")
	case t.Attached:
		log.WithField("pid", t.Root.PID).Info("trace was attached to a running process")
	}

	rows, err := report.Assemble(t, report.Options{Prefix: cfg.Prefix, Evaluator: evaluator})
	if err != nil {
		return err
	}

	if err := newRenderer(cfg, stdout, evaluator.Names()).Render(rows); err != nil {
		return err
	}

	if cfg.EnvpDir != "" {
		if _, err := output.NewEnvDumper(fs, cfg.EnvpDir).Dump(t); err != nil {
			return err
		}
	}

	if cfg.OTEL {
		return exportSpans(ctx, cfg, t, rows, logset.LatestModTime(files))
	}
	return nil
}

func newRenderer(cfg *config.Config, w io.Writer, columns []string) output.Renderer {
	switch cfg.Format {
	case config.FormatTree:
		return output.NewTreeRenderer(w, cfg.NoColor)
	case config.FormatYAML:
		return output.NewYAMLRenderer(w, cfg.Prefix)
	default:
		return output.NewTableRenderer(w, cfg.NoColor, columns...)
	}
}

// rootMetadata is the expression view of the root process, used for the
// trace-id and parent-id expressions.
func rootMetadata(t *tree.Tree) *procmeta.ProcessMetadata {
	res, _ := t.Resolve(t.Root.PID)
	return procmeta.NewProcessMetadata(res.Pathname, res.Argv, t.Root.Record.Envp())
}

// setupTraceContext evaluates the trace-id and parent-id expressions against
// the root process.
func setupTraceContext(cfg *config.Config, t *tree.Tree) (trace.TraceID, output.ExportOptions, error) {
	var opts output.ExportOptions
	meta := rootMetadata(t)

	traceEval, err := attributes.NewTraceIDEvaluator(cfg.TraceID)
	if err != nil {
		return trace.TraceID{}, opts, err
	}
	traceID, traceWarnings, err := traceEval.EvaluateAndValidate(meta)
	if err != nil {
		return trace.TraceID{}, opts, err
	}

	parentEval, err := attributes.NewParentIDEvaluator(cfg.ParentID)
	if err != nil {
		return trace.TraceID{}, opts, err
	}
	parentID, parentWarnings, err := parentEval.EvaluateAndValidate(meta)
	if err != nil {
		return trace.TraceID{}, opts, err
	}

	opts.RootAttributes = append(append([]attribute.KeyValue{}, traceWarnings...), parentWarnings...)
	for _, kv := range opts.RootAttributes {
		log.WithField(string(kv.Key), kv.Value.Emit()).Debug("trace context warning")
	}

	if parentID.IsValid() {
		if !traceID.IsValid() {
			traceID = otel.RandomTraceID()
		}
		opts.Parent = trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     parentID,
			TraceFlags: trace.FlagsSampled,
			Remote:     true,
		})
	}

	return traceID, opts, nil
}

// exportSpans sends one span per row to the OTLP endpoint from the environment.
func exportSpans(ctx context.Context, cfg *config.Config, t *tree.Tree, rows []report.Row, anchor time.Time) error {
	traceID, opts, err := setupTraceContext(cfg, t)
	if err != nil {
		return err
	}

	otelCfg, err := config.ParseOTELConfig()
	if err != nil {
		return err
	}

	tp, err := otel.InitProvider(otelCfg, traceID)
	if err != nil {
		return fmt.Errorf("failed to initialize OTEL provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.ShutdownProvider(tp, shutdownCtx); err != nil {
			log.Errorf("Error shutting down OTEL provider: %v", err)
		}
	}()

	exporter := output.NewOTELExporter(tp.Tracer("strace-tree"), timesync.NewConverter(anchor))
	n, err := exporter.Export(ctx, rows, opts)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"spans": n, "endpoint": otelCfg.GetEndpoint()}).Info("exported process tree")
	return nil
}
