package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Theme names accepted by the theme command.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type palette struct {
	title  lipgloss.Style
	header lipgloss.Style
	id     lipgloss.Style
	muted  lipgloss.Style
	accent lipgloss.Style
	warn   lipgloss.Style
}

// newPalette builds styles for the writer; colors are dropped when w is not
// a terminal.
func newPalette(w io.Writer, theme string) palette {
	r := lipgloss.NewRenderer(w)
	title, accent, muted, warn := lipgloss.Color("25"), lipgloss.Color("28"), lipgloss.Color("245"), lipgloss.Color("160")
	if theme == ThemeDark {
		title, accent, muted, warn = lipgloss.Color("117"), lipgloss.Color("120"), lipgloss.Color("242"), lipgloss.Color("203")
	}
	return palette{
		title:  r.NewStyle().Bold(true).Foreground(title),
		header: r.NewStyle().Bold(true).Underline(true),
		id:     r.NewStyle().Foreground(muted),
		muted:  r.NewStyle().Foreground(muted),
		accent: r.NewStyle().Bold(true).Foreground(accent),
		warn:   r.NewStyle().Foreground(warn),
	}
}
