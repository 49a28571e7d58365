package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{
			Title: c.Title,
			Width: c.Width,
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Non-interactive: the first row must not look selected.
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// FitColumns widens each column to its longest cell, capped at max.
func FitColumns(titles []string, rows [][]string, max int) []TableColumn {
	cols := make([]TableColumn, len(titles))
	for i, title := range titles {
		w := lipgloss.Width(title)
		for _, row := range rows {
			if i < len(row) {
				if cw := lipgloss.Width(row[i]); cw > w {
					w = cw
				}
			}
		}
		if max > 0 && w > max {
			w = max
		}
		cols[i] = TableColumn{Title: title, Width: w + 1}
	}
	return cols
}

// RenderSimpleTable renders a non-interactive table string.
// This is for CLI output (not TUI), producing a simple formatted table.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := NewTable(columns, tableRows)
	return t.View()
}

// KeyValue is one labelled line of a detail block.
type KeyValue struct {
	Key   string
	Value string
}

// RenderKeyValues renders a titled block of aligned "key  value" lines.
func RenderKeyValues(title string, pairs []KeyValue) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(BoldStyle().Render(title))
		b.WriteString("\n")
	}

	width := 0
	for _, p := range pairs {
		if w := lipgloss.Width(p.Key); w > width {
			width = w
		}
	}

	keyStyle := MutedStyle()
	for _, p := range pairs {
		b.WriteString("  ")
		b.WriteString(keyStyle.Render(padRight(p.Key, width)))
		b.WriteString("  ")
		b.WriteString(p.Value)
		b.WriteString("\n")
	}
	return b.String()
}

// DoctorCheckRow represents a row in the doctor diagnostic table.
type DoctorCheckRow struct {
	Status     string // "pass", "warn", "fail"
	Category   string // Check category
	Message    string // Check result message
	Suggestion string // Suggestion for fixing (if failed)
}

// RenderDoctorTable renders doctor check results grouped by category, in
// the order categories first appear.
func RenderDoctorTable(rows []DoctorCheckRow) string {
	if len(rows) == 0 {
		return "No checks to display"
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	var b strings.Builder

	categories := make(map[string][]DoctorCheckRow)
	var order []string
	for _, row := range rows {
		if _, exists := categories[row.Category]; !exists {
			order = append(order, row.Category)
		}
		categories[row.Category] = append(categories[row.Category], row)
	}

	for _, cat := range order {
		b.WriteString(headerStyle.Render(cat))
		b.WriteString("\n")

		for _, row := range categories[cat] {
			b.WriteString("  ")
			b.WriteString(StatusIcon(row.Status))
			b.WriteString(" ")
			b.WriteString(row.Message)
			b.WriteString("\n")

			if row.Suggestion != "" && row.Status != "pass" {
				b.WriteString("    ")
				b.WriteString(MutedStyle().Render(row.Suggestion))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// StatusIcon renders the symbol for "pass", "warn" or "fail".
func StatusIcon(status string) string {
	switch status {
	case "pass":
		return SuccessStyle().Render(SymbolComplete)
	case "warn":
		return WarningStyle().Render(SymbolComplete)
	case "fail":
		return ErrorStyle().Render(SymbolFail)
	default:
		return MutedStyle().Render(SymbolPending)
	}
}

// padRight pads a string to the specified width.
func padRight(s string, width int) string {
	// Account for ANSI codes when calculating visible length
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}
