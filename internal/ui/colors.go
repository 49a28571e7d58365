package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// Brand accents used by the header and the dashboard title.
const (
	ColorNeonGreen   lipgloss.Color = "#76B900"
	ColorNeonCyan    lipgloss.Color = "#05D9E8"
	ColorGlassBorder lipgloss.Color = "#3A3F58"
)

// DisableColors switches all lipgloss rendering to plain text.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ConfigureColors applies an output.color mode: "always", "never" or
// "auto". Auto keeps colors only when stdout is a terminal.
func ConfigureColors(mode string, isTTY bool) {
	switch mode {
	case "never":
		DisableColors()
	case "always":
		lipgloss.SetColorProfile(termenv.ANSI256)
	default:
		if !isTTY {
			DisableColors()
		}
	}
}

// PercentColor maps a utilization percentage to a status color.
//   - 0-60%: green (success)
//   - 60-80%: yellow/amber (warning)
//   - 80-100%: red (error)
func PercentColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 80:
		return ColorError
	case percent >= 60:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// TemperatureColor maps a core temperature in °C to a status color.
func TemperatureColor(celsius, warning, critical int) lipgloss.Color {
	switch {
	case celsius >= critical:
		return ColorError
	case celsius >= warning:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// PercentStyle colors a utilization percentage.
func PercentStyle(percent float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(PercentColor(percent))
}

// TemperatureStyle colors a temperature against the given limits.
func TemperatureStyle(celsius, warning, critical int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(TemperatureColor(celsius, warning, critical))
}

// SuccessStyle renders healthy values.
func SuccessStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorSuccess) }

// ErrorStyle renders failures.
func ErrorStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorError) }

// WarningStyle renders warnings.
func WarningStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorWarning) }

// MutedStyle renders secondary text.
func MutedStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorMuted) }

// BoldStyle renders labels.
func BoldStyle() lipgloss.Style { return lipgloss.NewStyle().Bold(true) }
