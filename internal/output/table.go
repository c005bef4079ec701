package output

import (
	"fmt"
	"io"

	"github.com/mrzor/strace-tree/internal/report"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Renderer writes a report.
type Renderer interface {
	Render(rows []report.Row) error
}

// TableRenderer prints one table row per process. Rows of processes that
// failed are highlighted.
type TableRenderer struct {
	w        io.Writer
	styles   styles
	declared []string
}

// NewTableRenderer creates a table renderer writing to w. Declared custom
// attribute names get a column even when no row has a value for them.
func NewTableRenderer(w io.Writer, noColor bool, declared ...string) *TableRenderer {
	return &TableRenderer{w: w, styles: newStyles(w, noColor), declared: declared}
}

// Render implements Renderer.
func (r *TableRenderer) Render(rows []report.Row) error {
	columns := report.CustomColumns(rows, r.declared...)
	headers := append(append([]string{}, report.Headers...), columns...)

	cells := make([][]string, len(rows))
	for i := range rows {
		cells[i] = rows[i].Cells(columns)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.styles.border).
		Headers(headers...).
		Rows(cells...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return r.styles.header
			case row >= 0 && row < len(rows) && rows[row].Failed():
				return r.styles.failed
			default:
				return r.styles.cell
			}
		})

	if _, err := fmt.Fprintln(r.w, t.Render()); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}
