package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	red    = lipgloss.Color("9")
	gray   = lipgloss.Color("8")
	yellow = lipgloss.Color("11")
)

type styles struct {
	header   lipgloss.Style
	cell     lipgloss.Style
	failed   lipgloss.Style
	dim      lipgloss.Style
	border   lipgloss.Style
	inherits lipgloss.Style
}

// newStyles builds styles for w. Color support is detected from w, so
// a pipe or file gets plain text.
func newStyles(w io.Writer, noColor bool) styles {
	r := lipgloss.NewRenderer(w)
	s := styles{
		header:   r.NewStyle().Bold(true).Padding(0, 1),
		cell:     r.NewStyle().Padding(0, 1),
		failed:   r.NewStyle().Padding(0, 1),
		dim:      r.NewStyle(),
		border:   r.NewStyle(),
		inherits: r.NewStyle(),
	}
	if noColor {
		s.header = s.header.Bold(false)
		return s
	}

	s.failed = s.failed.Foreground(red)
	s.dim = s.dim.Foreground(gray)
	s.border = s.border.Foreground(gray)
	s.inherits = s.inherits.Foreground(yellow)
	return s
}
