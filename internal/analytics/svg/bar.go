package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bars renders a grouped bar chart with one bar per series in each label
// group. Negative values hang below the zero line.
func Bars(width, height int, labels []string, series []Series, opts BarOpts) (template.HTML, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("svg: at least one series required")
	}
	if len(labels) == 0 {
		return "", fmt.Errorf("svg: labels required")
	}
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return "", fmt.Errorf("svg: series %q has %d values for %d labels", s.Name, len(s.Values), len(labels))
		}
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5e1")

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	minVal, maxVal := seriesBounds(series)
	scale := chartHeight / (maxVal - minVal)
	zeroY := padding + chartHeight - (0-minVal)*scale
	chartBottom := padding + chartHeight

	groupWidth := chartWidth / float64(len(labels))
	// One gap of a bar's width is shared between the group edges.
	barWidth := groupWidth / float64(len(series)+1)

	titleID := makeID(opts.Title, "bar-title")
	descID := makeID(opts.Title, "bar-desc")

	var b strings.Builder
	header(&b, width, height, titleID, descID, fallback(opts.Title, "Bar chart"), fallback(opts.Description, "Grouped bar comparison"))
	grid(&b, padding, chartWidth, chartHeight, minVal, maxVal, tickCount, axisColor, gridColor)
	axes(&b, padding, chartWidth, chartHeight, zeroY, axisColor)

	for i, label := range labels {
		baseX := padding + float64(i)*groupWidth + barWidth/2
		for si, s := range series {
			y, h := barPosition(s.Values[i], scale, zeroY, padding, chartBottom)
			fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" aria-label=\"%s %s\"></rect>",
				baseX+float64(si)*barWidth, y, barWidth, h, seriesColor(s, si), template.HTMLEscapeString(s.Name), template.HTMLEscapeString(label))
		}
		center := padding + float64(i)*groupWidth + groupWidth/2
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", center, chartBottom+14, axisColor, template.HTMLEscapeString(label))
	}
	legend(&b, padding, series, axisColor)

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func barPosition(value, scale, zeroY, padding, bottom float64) (float64, float64) {
	if value >= 0 {
		height := value * scale
		y := zeroY - height
		if y < padding {
			height -= padding - y
			y = padding
		}
		if height < 0 {
			height = 0
		}
		return y, height
	}
	height := math.Abs(value * scale)
	y := zeroY
	if y+height > bottom {
		height = bottom - y
	}
	if height < 0 {
		height = 0
	}
	return y, height
}
