// Package report turns a reconstructed process tree into ordered rows for
// the renderers.
//
// Rows come out in depth-first pre-order with children in log order, so a
// parent row always precedes the rows of its descendants. All display
// markers (unknown values, inherited mark, attached placeholder) are
// applied here and nowhere else.
package report

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mrzor/strace-tree/internal/procmeta"
	"github.com/mrzor/strace-tree/internal/tree"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// Unknown is displayed for values the trace does not contain.
	Unknown = "?"
	// InheritedMark follows a pathname or argv taken from an ancestor.
	InheritedMark = "!"
	// AttachedPlaceholder stands in for the program of an attached root.
	AttachedPlaceholder = "(attached process)"
	// DefaultPrefix is the strace -o prefix of the log files.
	DefaultPrefix = "output"

	indentWidth = 4
)

// Headers are the fixed columns of a report, in order.
var Headers = []string{"Log", "Call", "First entry", "Last entry", "PPID", "Pathname", "Output", "Exit", "Argv"}

// AttributeEvaluator computes extra per-process columns.
type AttributeEvaluator interface {
	EvaluateCustomAttributes(metadata *procmeta.ProcessMetadata) ([]attribute.KeyValue, error)
}

// Options control report assembly.
type Options struct {
	// Prefix of the log file names; DefaultPrefix when empty.
	Prefix string
	// Evaluator is optional.
	Evaluator AttributeEvaluator
}

// Row is one process in the report.
type Row struct {
	PID int
	// Log is the synthetic log identifier, <prefix>.<pid>.
	Log string
	// Call is the creating syscall, empty for an attached root.
	Call      string
	FirstSeen string
	LastSeen  string
	// PPID is nil for the root.
	PPID *int

	Pathname    string
	Argv        []string
	Inherited   bool
	Placeholder bool
	// ResolvedFrom is the PID whose execve is displayed.
	ResolvedFrom int

	Stdout bool
	Stderr bool

	// ExitStatus is nil when no exit was traced.
	ExitStatus *int
	Signal     string

	// Depth is 0 for the root.
	Depth int
	// HasLog is false for processes known only from a parent's clone line.
	HasLog bool
	Issues []string
	Custom []attribute.KeyValue
}

// Assemble produces one row per process reachable from the root.
func Assemble(t *tree.Tree, opts Options) ([]Row, error) {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	rows := make([]Row, 0, len(t.Nodes))
	err := t.Walk(func(n *tree.Node, depth int) error {
		res, _ := t.Resolve(n.PID)
		rec := n.Record

		row := Row{
			PID:          n.PID,
			Log:          fmt.Sprintf("%s.%d", prefix, n.PID),
			Call:         n.Call,
			FirstSeen:    rec.FirstSeen,
			LastSeen:     rec.LastSeen,
			Pathname:     res.Pathname,
			Argv:         res.Argv,
			Inherited:    res.Inherited,
			Placeholder:  res.Placeholder,
			ResolvedFrom: res.From,
			Stdout:       rec.WroteStdout,
			Stderr:       rec.WroteStderr,
			ExitStatus:   rec.ExitStatus,
			Signal:       rec.Signal,
			Depth:        depth,
			HasLog:       rec.HasLog,
			Issues:       rec.Issues,
		}
		if n.Parent != nil {
			ppid := n.Parent.PID
			row.PPID = &ppid
		}

		if opts.Evaluator != nil {
			var envp []string
			if from, ok := t.Nodes[res.From]; ok {
				envp = from.Record.Envp()
			}
			custom, err := opts.Evaluator.EvaluateCustomAttributes(procmeta.NewProcessMetadata(res.Pathname, res.Argv, envp))
			if err != nil {
				return fmt.Errorf("evaluating attributes for pid %d: %w", n.PID, err)
			}
			row.Custom = custom
		}

		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Failed reports whether the process ended with a non-zero status or a signal.
func (r *Row) Failed() bool {
	return r.Signal != "" || (r.ExitStatus != nil && *r.ExitStatus != 0)
}

// CallCell is the display value of the creating call.
func (r *Row) CallCell() string {
	if r.Call == "" {
		return Unknown
	}
	return r.Call
}

// PPIDCell is the display value of the parent PID.
func (r *Row) PPIDCell() string {
	if r.PPID == nil {
		return Unknown
	}
	return strconv.Itoa(*r.PPID)
}

// PathnameCell is the display value of the pathname.
func (r *Row) PathnameCell() string {
	return r.mark(r.displayPathname())
}

// ArgvCell is the space-joined argv, without indentation.
func (r *Row) ArgvCell() string {
	if r.Placeholder {
		return r.mark(AttachedPlaceholder)
	}
	return r.mark(strings.Join(r.Argv, " "))
}

// IndentedArgvCell is ArgvCell indented by the row's depth.
func (r *Row) IndentedArgvCell() string {
	return strings.Repeat(" ", r.Depth*indentWidth) + r.ArgvCell()
}

// OutputCell shows "out" and "err" when the process wrote to stdout/stderr.
func (r *Row) OutputCell() string {
	out, errs := "   ", "   "
	if r.Stdout {
		out = "out"
	}
	if r.Stderr {
		errs = "err"
	}
	return out + " " + errs
}

// ExitCell is the exit status, the killing signal, or Unknown.
func (r *Row) ExitCell() string {
	switch {
	case r.Signal != "":
		return r.Signal
	case r.ExitStatus != nil:
		return strconv.Itoa(*r.ExitStatus)
	default:
		return Unknown
	}
}

// Cells returns the display values of the fixed columns followed by one
// value per custom column.
func (r *Row) Cells(customColumns []string) []string {
	cells := []string{
		r.Log,
		r.CallCell(),
		orUnknown(r.FirstSeen),
		orUnknown(r.LastSeen),
		r.PPIDCell(),
		r.PathnameCell(),
		r.OutputCell(),
		r.ExitCell(),
		r.IndentedArgvCell(),
	}
	for _, col := range customColumns {
		cells = append(cells, r.CustomValue(col))
	}
	return cells
}

// CustomValue returns the value of a custom attribute, "" when unset.
func (r *Row) CustomValue(key string) string {
	for _, kv := range r.Custom {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

// CustomColumns returns the custom attribute columns for rows. Declared
// names come first, in order, so a column whose expression failed everywhere
// still shows. A declared name whose values were expanded from a map is
// replaced by its name.key columns. Keys not covered by a declared name
// follow in order of first appearance.
func CustomColumns(rows []Row, declared ...string) []string {
	seen := make(map[string]bool)
	var cols []string
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			cols = append(cols, key)
		}
	}

	keys := rowKeys(rows)
	for _, name := range declared {
		var expanded []string
		for _, key := range keys {
			if strings.HasPrefix(key, name+".") {
				expanded = append(expanded, key)
			}
		}
		if len(expanded) == 0 || slices.Contains(keys, name) {
			add(name)
		}
		for _, key := range expanded {
			add(key)
		}
	}
	for _, key := range keys {
		add(key)
	}
	return cols
}

// rowKeys returns the distinct custom keys of rows in order of first
// appearance.
func rowKeys(rows []Row) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, row := range rows {
		for _, kv := range row.Custom {
			key := string(kv.Key)
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

func (r *Row) displayPathname() string {
	if r.Placeholder {
		return AttachedPlaceholder
	}
	return r.Pathname
}

func (r *Row) mark(s string) string {
	if r.Inherited {
		return s + " " + InheritedMark
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
