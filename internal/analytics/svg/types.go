// Package svg renders dependency-free SVG charts of inventory series.
package svg

// Series is one named sequence of values aligned with the chart labels.
type Series struct {
	Name   string
	Values []float64
	Color  string
}

// Slice is one segment of a donut chart.
type Slice struct {
	Label string
	Value float64
	Color string
}

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	Fill        bool
	TickCount   int
}

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// DonutOpts customises the donut chart renderer.
type DonutOpts struct {
	Title       string
	Description string
	TextColor   string
	// Hole is the inner radius as a fraction of the outer radius.
	Hole float64
}

// Defaults for the inventory charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 28.0
	DefaultTicks   = 6
	DefaultHole    = 0.55
)

var palette = []string{"#2563eb", "#f97316", "#16a34a", "#dc2626", "#9333ea", "#0891b2", "#ca8a04", "#db2777"}

func seriesColor(s Series, i int) string {
	return fallback(s.Color, palette[i%len(palette)])
}
