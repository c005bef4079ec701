package output

import (
	"fmt"
	"io"

	"github.com/mrzor/strace-tree/internal/report"

	"gopkg.in/yaml.v3"
)

// Document is the YAML report.
type Document struct {
	Prefix  string   `yaml:"prefix"`
	Process *Process `yaml:"process"`
}

// Process is one node of the YAML report.
type Process struct {
	PID       int    `yaml:"pid"`
	Log       string `yaml:"log"`
	Call      string `yaml:"call"`
	FirstSeen string `yaml:"first_seen,omitempty"`
	LastSeen  string `yaml:"last_seen,omitempty"`

	Pathname      string   `yaml:"pathname"`
	Argv          []string `yaml:"argv,flow"`
	InheritedFrom int      `yaml:"inherited_from,omitempty"`
	Attached      bool     `yaml:"attached,omitempty"`

	Stdout bool   `yaml:"stdout,omitempty"`
	Stderr bool   `yaml:"stderr,omitempty"`
	Exit   *int   `yaml:"exit,omitempty"`
	Signal string `yaml:"signal,omitempty"`

	NoLog      bool              `yaml:"no_log,omitempty"`
	Issues     []string          `yaml:"issues,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Children   []*Process        `yaml:"children,omitempty"`
}

// YAMLRenderer writes the report as a nested YAML document.
type YAMLRenderer struct {
	w      io.Writer
	prefix string
}

// NewYAMLRenderer creates a YAML renderer writing to w.
func NewYAMLRenderer(w io.Writer, prefix string) *YAMLRenderer {
	return &YAMLRenderer{w: w, prefix: prefix}
}

// Render implements Renderer.
func (r *YAMLRenderer) Render(rows []report.Row) error {
	root, err := nest(rows)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(&Document{Prefix: r.prefix, Process: root}); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// nest rebuilds the hierarchy from pre-ordered rows.
func nest(rows []report.Row) (*Process, error) {
	var root *Process
	var stack []*Process
	for i := range rows {
		row := &rows[i]
		p := newProcess(row)

		switch {
		case row.Depth == 0 && root == nil:
			root = p
		case row.Depth == 0 || row.Depth > len(stack):
			return nil, fmt.Errorf("row for pid %d at depth %d has no parent row", row.PID, row.Depth)
		default:
			parent := stack[row.Depth-1]
			parent.Children = append(parent.Children, p)
		}
		stack = append(stack[:row.Depth], p)
	}
	return root, nil
}

func newProcess(row *report.Row) *Process {
	p := &Process{
		PID:       row.PID,
		Log:       row.Log,
		Call:      row.CallCell(),
		FirstSeen: row.FirstSeen,
		LastSeen:  row.LastSeen,
		Pathname:  row.Pathname,
		Argv:      row.Argv,
		Attached:  row.Placeholder,
		Stdout:    row.Stdout,
		Stderr:    row.Stderr,
		Exit:      row.ExitStatus,
		Signal:    row.Signal,
		NoLog:     !row.HasLog,
		Issues:    row.Issues,
	}
	if row.Placeholder {
		p.Pathname = report.AttachedPlaceholder
	}
	if row.Inherited {
		p.InheritedFrom = row.ResolvedFrom
	}
	if len(row.Custom) > 0 {
		p.Attributes = make(map[string]string, len(row.Custom))
		for _, kv := range row.Custom {
			p.Attributes[string(kv.Key)] = kv.Value.Emit()
		}
	}
	return p
}

var _ Renderer = (*YAMLRenderer)(nil)
