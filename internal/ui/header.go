package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderInfo contains information to display in the header.
type HeaderInfo struct {
	Version string // e.g. "v0.3.0"
	Tagline string
	Target  string // where the tool runs: "local" or an SSH host
}

// HeaderWidth is the default width of the header divider
const HeaderWidth = 44

// RenderHeader renders the title block: name and version, optional tagline
// and target, then a divider.
func RenderHeader(info HeaderInfo) string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Foreground(ColorNeonGreen).Bold(true).Render("gputweak"))
	if info.Version != "" {
		b.WriteString(" ")
		b.WriteString(lipgloss.NewStyle().Foreground(ColorNeonCyan).Render(info.Version))
	}
	b.WriteString("\n")

	if info.Tagline != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(ColorSecondary).Render(info.Tagline))
		b.WriteString("\n")
	}
	if info.Target != "" {
		b.WriteString(MutedStyle().Render("target: " + info.Target))
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Foreground(ColorGlassBorder).Render(strings.Repeat("━", HeaderWidth)))
	b.WriteString("\n")
	return b.String()
}
