package console

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors of the console output.
type Theme struct {
	Primary lipgloss.Color
	Label   lipgloss.Color
	Dim     lipgloss.Color
	Warn    lipgloss.Color
}

var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Label:   lipgloss.Color("#79c0ff"),
	Dim:     lipgloss.Color("#6e7681"),
	Warn:    lipgloss.Color("#ff7b72"),
}

type styles struct {
	accent lipgloss.Style
	label  lipgloss.Style
	dim    lipgloss.Style
	warn   lipgloss.Style
}

// newStyles derives the styles from t for the terminal behind w. Writers that
// are not terminals get plain text.
func newStyles(w io.Writer, t Theme) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		accent: r.NewStyle().Bold(true).Foreground(t.Primary),
		label:  r.NewStyle().Bold(true).Foreground(t.Label),
		dim:    r.NewStyle().Foreground(t.Dim),
		warn:   r.NewStyle().Bold(true).Foreground(t.Warn),
	}
}
