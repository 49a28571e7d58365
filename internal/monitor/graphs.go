package monitor

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gputweak/gputweak/internal/config"
	"github.com/gputweak/gputweak/internal/graph"
	"github.com/gputweak/gputweak/internal/history"
)

// Braille character rendering for high-resolution terminal graphs.
//
// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 (empty) and uses bit patterns:
// bit 0 = dot 1, bit 1 = dot 2, bit 2 = dot 3, bit 3 = dot 4,
// bit 4 = dot 5, bit 5 = dot 6, bit 6 = dot 7, bit 7 = dot 8

const brailleBase = '\u2800'

// Dots per character cell.
const (
	dotsWide = 2
	dotsHigh = 4
)

// gridlineSpacing is the horizontal distance in dots between gridline dots.
const gridlineSpacing = 4

// brailleDots maps row/column to the bit offset for braille pattern
// [row][col] where row is 0-3 (top to bottom) and col is 0-1 (left to right)
var brailleDots = [4][2]uint8{
	{0, 3}, // Row 0: dots 1 and 4
	{1, 4}, // Row 1: dots 2 and 5
	{2, 5}, // Row 2: dots 3 and 6
	{6, 7}, // Row 3: dots 7 and 8
}

type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellGrid
	cellLine
	cellLabel
)

type cell struct {
	r    rune
	kind cellKind
}

// canvas is a cols x rows grid of braille cells addressed in dots.
type canvas struct {
	cols, rows int
	cells      [][]cell
	// colMax is the highest plotted value per character column, for coloring.
	colMax []float64
	hasMax []bool
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{
		cols:   cols,
		rows:   rows,
		cells:  make([][]cell, rows),
		colMax: make([]float64, cols),
		hasMax: make([]bool, cols),
	}
	for i := range c.cells {
		c.cells[i] = make([]cell, cols)
		for j := range c.cells[i] {
			c.cells[i][j] = cell{r: brailleBase}
		}
	}
	return c
}

func (c *canvas) width() int  { return c.cols * dotsWide }
func (c *canvas) height() int { return c.rows * dotsHigh }

// set turns on the dot at (x, y). Dots outside the canvas are ignored.
func (c *canvas) set(x, y int, kind cellKind) {
	if x < 0 || y < 0 || x >= c.width() || y >= c.height() {
		return
	}
	cl := &c.cells[y/dotsHigh][x/dotsWide]
	if cl.kind == cellLabel {
		return
	}
	cl.r |= rune(1) << brailleDots[y%dotsHigh][x%dotsWide]
	if kind > cl.kind {
		cl.kind = kind
	}
}

func (c *canvas) track(x int, value float64) {
	col := x / dotsWide
	if col < 0 || col >= c.cols {
		return
	}
	if !c.hasMax[col] || value > c.colMax[col] {
		c.colMax[col] = value
		c.hasMax[col] = true
	}
}

// line draws a segment with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int, valueAt func(y int) float64) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.set(x0, y0, cellLine)
		c.track(x0, valueAt(y0))
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// text writes s into row starting at col, clipped to the canvas.
func (c *canvas) text(row, col int, s string) {
	if row < 0 || row >= c.rows {
		return
	}
	for _, r := range s {
		if col >= c.cols {
			return
		}
		if col >= 0 {
			c.cells[row][col] = cell{r: r, kind: cellLabel}
		}
		col++
	}
}

// GraphStyle colors a rendered graph.
type GraphStyle struct {
	// LineColor maps a plotted value to the color of its column.
	LineColor func(value float64) lipgloss.Color
	GridColor lipgloss.Color
	TextColor lipgloss.Color
	// Background fills every cell when set.
	Background lipgloss.Color
}

// RenderGeometry rasterizes g onto a cols x rows braille grid. The geometry
// must have been projected for a cols*2 by rows*4 rectangle, as
// SpecForMetric does; coordinates map one-to-one onto braille dots.
func RenderGeometry(g graph.Geometry, cols, rows int, style GraphStyle) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	c := newCanvas(cols, rows)
	maxX, maxY := c.width()-1, c.height()-1
	toDot := func(p graph.Point) (int, int) {
		return clampInt(int(math.Round(p.X)), maxX), clampInt(int(math.Round(p.Y)), maxY)
	}
	span := g.Max - g.Min
	valueAt := func(y int) float64 {
		return g.Max - float64(y)/float64(c.height())*span
	}

	for _, gl := range g.Gridlines {
		y := clampInt(int(math.Round(gl.Y)), maxY)
		for x := 0; x <= maxX; x += gridlineSpacing {
			c.set(x, y, cellGrid)
		}
	}

	for i := 1; i < len(g.Polyline); i++ {
		x0, y0 := toDot(g.Polyline[i-1])
		x1, y1 := toDot(g.Polyline[i])
		c.line(x0, y0, x1, y1, valueAt)
	}

	for _, l := range g.Labels {
		row := clampInt(int(l.Y)/dotsHigh, rows-1)
		col := int(l.X) / dotsWide
		if l.Kind == graph.LabelLatest {
			// Right-align so the value ends at the edge.
			if over := col + lipgloss.Width(l.Text) - cols; over > 0 {
				col -= over
			}
		}
		c.text(row, col, l.Text)
	}

	return c.render(style)
}

func (c *canvas) render(style GraphStyle) string {
	base := lipgloss.NewStyle()
	if style.Background != "" {
		base = base.Background(style.Background)
	}
	gridStyle := base.Foreground(style.GridColor)
	textStyle := base.Foreground(style.TextColor)

	lines := make([]string, c.rows)
	for i, row := range c.cells {
		var b strings.Builder
		for j, cl := range row {
			s := string(cl.r)
			switch cl.kind {
			case cellLine:
				color := ColorGraph
				if style.LineColor != nil && c.hasMax[j] {
					color = style.LineColor(c.colMax[j])
				}
				b.WriteString(base.Foreground(color).Render(s))
			case cellGrid:
				b.WriteString(gridStyle.Render(s))
			case cellLabel:
				b.WriteString(textStyle.Render(s))
			default:
				b.WriteString(base.Render(s))
			}
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

// SpecForMetric returns the stock projection spec for m, sized for a cols x
// rows braille graph covering window.
func SpecForMetric(m history.Metric, window time.Duration, cols, rows int) graph.Spec {
	w, h := float64(cols*dotsWide), float64(rows*dotsHigh)
	var spec graph.Spec
	switch {
	case m == history.CoreTemp:
		spec = graph.TemperatureSpec(w, h)
	case m.IsPercent():
		spec = graph.PercentSpec(w, h)
	default:
		spec = graph.ClockSpec(w, h)
	}
	if window > 0 {
		spec.Window = window
	}
	// One text row is one character cell tall.
	spec.TextLineHeight = dotsHigh
	spec.LabelLoneSample = true
	return spec
}

// MetricGraphStyle returns the coloring for m.
func MetricGraphStyle(m history.Metric, thresholds config.TemperatureThresholds) GraphStyle {
	style := GraphStyle{
		GridColor:  ColorBorder,
		TextColor:  ColorTextSecondary,
		Background: ColorSurfaceBg,
	}
	switch {
	case m == history.CoreTemp:
		style.LineColor = func(v float64) lipgloss.Color {
			return MetricColorWithThresholds(v, thresholds.Warning, thresholds.Critical)
		}
	case m.IsPercent():
		style.LineColor = MetricColor
	default:
		style.LineColor = func(float64) lipgloss.Color { return ColorGraph }
	}
	return style
}

// RenderMetricGraph projects series at now and rasterizes it.
func RenderMetricGraph(series history.Series, m history.Metric, window time.Duration, now time.Time, cols, rows int, thresholds config.TemperatureThresholds) string {
	spec := SpecForMetric(m, window, cols, rows)
	g := graph.Project(series, spec, now)
	return RenderGeometry(g, cols, rows, MetricGraphStyle(m, thresholds))
}

// clampInt clamps an integer to a range [0, maxVal].
func clampInt(val, maxVal int) int {
	if val < 0 {
		return 0
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
