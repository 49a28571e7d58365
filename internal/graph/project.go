package graph

import (
	"math"
	"strconv"
	"time"

	"github.com/gputweak/gputweak/internal/history"
)

// maxGridlines caps gridline output for specs whose LineEvery is tiny
// compared to the bounds.
const maxGridlines = 1000

// Point is a position in the target rectangle.
type Point struct {
	X, Y float64
}

// Gridline is a horizontal line at Value, drawn at offset Y from the top.
type Gridline struct {
	Value float64
	Y     float64
}

// LabelKind identifies a label.
type LabelKind int

const (
	LabelMax LabelKind = iota
	LabelMin
	LabelLatest
)

// Label is text anchored at its top-left corner.
type Label struct {
	Kind  LabelKind
	Text  string
	Value float64
	X, Y  float64
}

// Geometry is the result of a projection.
type Geometry struct {
	Min, Max    float64
	WindowStart time.Time
	WindowEnd   time.Time
	// Samples is how many samples fell inside the window.
	Samples int
	// Polyline runs oldest to newest. Empty with fewer than two samples.
	Polyline []Point
	// Gridlines are ordered top to bottom.
	Gridlines []Gridline
	Labels    []Label
}

// Label returns the label of the given kind.
func (g Geometry) Label(kind LabelKind) (Label, bool) {
	for _, l := range g.Labels {
		if l.Kind == kind {
			return l, true
		}
	}
	return Label{}, false
}

// Latest returns the newest sample's position, if any sample is in the window.
func (g Geometry) Latest() (Point, bool) {
	if len(g.Polyline) > 0 {
		return g.Polyline[len(g.Polyline)-1], true
	}
	return Point{}, false
}

// Project computes the geometry of series as seen at now. It has no side
// effects, so equal inputs always give equal output.
func Project(series history.Series, spec Spec, now time.Time) Geometry {
	window := spec.Window
	if window <= 0 {
		window = DefaultWindow
	}
	start := now.Add(-window)

	// Walk back from the newest sample while it is inside the window.
	minVal, maxVal := spec.DefaultMin, spec.DefaultMax
	touchedMax := false
	first := len(series)
	for i := len(series) - 1; i >= 0 && series[i].Time.After(start); i-- {
		v := series[i].Value
		if v < minVal {
			minVal = v
		}
		if v >= maxVal {
			maxVal = v
			touchedMax = true
		}
		first = i
	}
	visible := series[first:]

	if touchedMax && spec.AvoidBorder {
		maxVal++
	}
	if spec.RoundTo > 0 {
		maxVal = math.Ceil(maxVal/spec.RoundTo) * spec.RoundTo
		minVal = math.Floor(minVal/spec.RoundTo) * spec.RoundTo
	}
	if maxVal <= minVal {
		unit := spec.RoundTo
		if unit <= 0 {
			unit = 1
		}
		maxVal = minVal + unit
	}

	g := Geometry{
		Min:         minVal,
		Max:         maxVal,
		WindowStart: start,
		WindowEnd:   now,
		Samples:     len(visible),
	}

	span := maxVal - minVal
	toY := func(v float64) float64 {
		return spec.Height - (v-minVal)/span*spec.Height
	}
	toX := func(t time.Time) float64 {
		return float64(t.Sub(start)) / float64(window) * spec.Width
	}

	g.Gridlines = gridlines(minVal, maxVal, spec.LineEvery, toY)

	if len(visible) >= 2 {
		g.Polyline = make([]Point, len(visible))
		for i, s := range visible {
			g.Polyline[i] = Point{X: toX(s.Time), Y: toY(s.Value)}
		}
	}

	tlh := spec.TextLineHeight
	g.Labels = []Label{
		{Kind: LabelMax, Text: formatValue(maxVal), Value: maxVal, X: 0, Y: 0},
		{Kind: LabelMin, Text: formatValue(minVal), Value: minVal, X: 0, Y: spec.Height - tlh},
	}
	if len(visible) >= 2 || (len(visible) == 1 && spec.LabelLoneSample) {
		latest := visible[len(visible)-1]
		y := toY(latest.Value)
		if y > tlh {
			y -= tlh
		}
		g.Labels = append(g.Labels, Label{
			Kind:  LabelLatest,
			Text:  formatValue(latest.Value),
			Value: latest.Value,
			X:     spec.Width - tlh,
			Y:     y,
		})
	}

	return g
}

// gridlines returns the multiples of every strictly between lo and hi,
// highest first.
func gridlines(lo, hi, every float64, toY func(float64) float64) []Gridline {
	if every <= 0 {
		return nil
	}
	var lines []Gridline
	k := math.Ceil(hi/every) - 1
	// One spare round covers a first multiple that rounds up to hi.
	for i := 0; i <= maxGridlines && len(lines) < maxGridlines; i++ {
		v := k * every
		if v <= lo {
			break
		}
		if v < hi {
			lines = append(lines, Gridline{Value: v, Y: toY(v)})
		}
		// Past 2^53 the multiplier no longer decrements.
		if k-1 == k {
			break
		}
		k--
	}
	return lines
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
