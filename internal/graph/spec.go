// Package graph turns a history series into plot geometry: rounded value
// bounds, gridlines, a polyline and label anchors inside a width by height
// rectangle whose origin is the top-left corner.
package graph

import "time"

// Defaults shared by the stock specs.
const (
	DefaultWindow         = 60 * time.Second
	DefaultTextLineHeight = 26
)

// Spec configures one projection.
type Spec struct {
	// Window is how far back from now the graph reaches.
	Window time.Duration
	// DefaultMin and DefaultMax seed the bounds; samples only widen them.
	DefaultMin float64
	DefaultMax float64
	// RoundTo widens the bounds outward to a multiple of itself.
	// Zero or negative disables rounding.
	RoundTo float64
	// LineEvery places a gridline at each multiple strictly inside the
	// bounds. Zero or negative disables gridlines.
	LineEvery float64
	// AvoidBorder raises the max by one unit before rounding when a sample
	// reaches it, so the peak does not sit on the top edge.
	AvoidBorder bool
	Width       float64
	Height      float64
	// TextLineHeight is the height of one label, used to keep labels inside
	// the rectangle.
	TextLineHeight float64
	// LabelLoneSample emits the latest-value label when only one sample is
	// inside the window.
	LabelLoneSample bool
}

// TemperatureSpec is the stock spec for °C graphs.
func TemperatureSpec(width, height float64) Spec {
	return Spec{
		Window:         DefaultWindow,
		DefaultMin:     30,
		DefaultMax:     50,
		RoundTo:        10,
		LineEvery:      5,
		AvoidBorder:    true,
		Width:          width,
		Height:         height,
		TextLineHeight: DefaultTextLineHeight,
	}
}

// PercentSpec is the stock spec for 0..100 % graphs.
func PercentSpec(width, height float64) Spec {
	return Spec{
		Window:         DefaultWindow,
		DefaultMin:     0,
		DefaultMax:     100,
		RoundTo:        10,
		LineEvery:      20,
		Width:          width,
		Height:         height,
		TextLineHeight: DefaultTextLineHeight,
	}
}

// ClockSpec is a spec for MHz graphs, which have no useful fixed range.
func ClockSpec(width, height float64) Spec {
	return Spec{
		Window:         DefaultWindow,
		DefaultMin:     0,
		DefaultMax:     1000,
		RoundTo:        100,
		LineEvery:      500,
		Width:          width,
		Height:         height,
		TextLineHeight: DefaultTextLineHeight,
	}
}

// WithSize returns a copy of s sized to width by height.
func (s Spec) WithSize(width, height float64) Spec {
	s.Width = width
	s.Height = height
	return s
}
