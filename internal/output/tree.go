package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mrzor/strace-tree/internal/report"

	"github.com/charmbracelet/lipgloss/tree"
)

// TreeRenderer prints the process hierarchy, one node per process.
type TreeRenderer struct {
	w      io.Writer
	styles styles
}

// NewTreeRenderer creates a tree renderer writing to w.
func NewTreeRenderer(w io.Writer, noColor bool) *TreeRenderer {
	return &TreeRenderer{w: w, styles: newStyles(w, noColor)}
}

// Render implements Renderer. Rows must be in report order.
func (r *TreeRenderer) Render(rows []report.Row) error {
	if len(rows) == 0 {
		return nil
	}

	var root *tree.Tree
	var stack []*tree.Tree
	for i := range rows {
		row := &rows[i]
		node := tree.Root(r.label(row))

		switch {
		case row.Depth == 0 && root == nil:
			root = node
		case row.Depth == 0 || row.Depth > len(stack):
			return fmt.Errorf("row for pid %d at depth %d has no parent row", row.PID, row.Depth)
		default:
			stack[row.Depth-1].Child(node)
		}
		stack = append(stack[:row.Depth], node)
	}

	root.EnumeratorStyle(r.styles.border)

	if _, err := fmt.Fprintln(r.w, root.String()); err != nil {
		return fmt.Errorf("failed to write tree: %w", err)
	}
	return nil
}

// label renders "<pid> <argv> [<exit>]", then the creating call when it is
// not execve, the ancestor an inherited argv came from, and custom columns.
func (r *TreeRenderer) label(row *report.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", row.PID, row.ArgvCell())

	exit := row.ExitCell()
	if row.Failed() {
		exit = r.styles.failed.UnsetPadding().Render(exit)
	}
	fmt.Fprintf(&b, " [%s]", exit)

	if row.Call != "" && row.Call != "execve" {
		b.WriteString(r.styles.dim.Render(" " + row.Call))
	}
	if row.Inherited {
		b.WriteString(r.styles.inherits.Render(fmt.Sprintf(" (from %d)", row.ResolvedFrom)))
	}
	for _, kv := range row.Custom {
		b.WriteString(r.styles.dim.Render(fmt.Sprintf(" %s=%s", kv.Key, kv.Value.Emit())))
	}
	return b.String()
}

var (
	_ Renderer = (*TreeRenderer)(nil)
	_ Renderer = (*TableRenderer)(nil)
)
