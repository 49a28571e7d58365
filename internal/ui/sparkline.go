package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
var sparklineBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws the newest width values scaled between lo and hi,
// colored with color. Values outside the range are clamped. An empty range
// draws every value at the middle level.
func RenderSparkline(data []float64, width int, lo, hi float64, color lipgloss.Color) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	levels := len(sparklineBlocks)
	span := hi - lo

	var sb strings.Builder
	for _, v := range data {
		level := levels / 2
		if span > 0 {
			level = int((v - lo) / span * float64(levels-1))
			if level < 0 {
				level = 0
			} else if level >= levels {
				level = levels - 1
			}
		}
		sb.WriteRune(sparklineBlocks[level])
	}

	return lipgloss.NewStyle().Foreground(color).Render(sb.String())
}

// RenderPercentSparkline scales values to 0..100 and colors by the newest
// value.
func RenderPercentSparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	return RenderSparkline(data, width, 0, 100, PercentColor(data[len(data)-1]))
}
