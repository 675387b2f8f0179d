package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Line renders an SVG line chart with one path per series. Every series must
// have one value per label.
func Line(width, height int, labels []string, series []Series, opts LineOpts) (template.HTML, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("svg: series required")
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

	step := 0.0
	if len(labels) > 1 {
		step = chartWidth / float64(len(labels)-1)
	}
	xAt := func(i int) float64 {
		if len(labels) == 1 {
			return padding + chartWidth/2
		}
		return padding + float64(i)*step
	}
	yAt := func(v float64) float64 {
		return padding + chartHeight - (v-minVal)*scale
	}

	titleID := makeID(opts.Title, "line-title")
	descID := makeID(opts.Title, "line-desc")

	var b strings.Builder
	header(&b, width, height, titleID, descID, fallback(opts.Title, "Line chart"), fallback(opts.Description, "Trend data"))
	grid(&b, padding, chartWidth, chartHeight, minVal, maxVal, tickCount, axisColor, gridColor)
	axes(&b, padding, chartWidth, chartHeight, yAt(0), axisColor)

	for si, s := range series {
		color := seriesColor(s, si)
		var path strings.Builder
		for i, value := range s.Values {
			cmd := "L"
			if i == 0 {
				cmd = "M"
			} else {
				path.WriteByte(' ')
			}
			fmt.Fprintf(&path, "%s%.2f %.2f", cmd, xAt(i), yAt(value))
		}
		if opts.Fill {
			base := yAt(0)
			area := fmt.Sprintf("%s L%.2f %.2f L%.2f %.2f Z", path.String(), xAt(len(s.Values)-1), base, xAt(0), base)
			fmt.Fprintf(&b, "<path d=\"%s\" fill=\"%s\" fill-opacity=\"0.12\" stroke=\"none\" aria-hidden=\"true\"></path>", area, color)
		}
		fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\" aria-label=\"%s\"></path>", path.String(), color, template.HTMLEscapeString(s.Name))
		if opts.ShowDots {
			for i, value := range s.Values {
				fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"3\" fill=\"%s\"><title>%s %s: %s</title></circle>", xAt(i), yAt(value), color,
					template.HTMLEscapeString(s.Name), template.HTMLEscapeString(labels[i]), template.HTMLEscapeString(formatTick(value)))
			}
		}
	}

	for i, label := range labels {
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", xAt(i), padding+chartHeight+14, axisColor, template.HTMLEscapeString(label))
	}
	legend(&b, padding, series, axisColor)

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func header(b *strings.Builder, width, height int, titleID, descID, title, desc string) {
	fmt.Fprintf(b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID)
	fmt.Fprintf(b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(title))
	fmt.Fprintf(b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(desc))
}

func grid(b *strings.Builder, padding, chartWidth, chartHeight, minVal, maxVal float64, ticks int, axisColor, gridColor string) {
	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / float64(ticks)
		y := padding + chartHeight - ratio*chartHeight
		value := minVal + (maxVal-minVal)*ratio
		fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", padding, y, padding+chartWidth, y, gridColor)
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", padding-6, y+4, axisColor, template.HTMLEscapeString(formatTick(value)))
	}
}

func axes(b *strings.Builder, padding, chartWidth, chartHeight, zeroY float64, axisColor string) {
	fmt.Fprintf(b, "<g stroke=\"%s\" aria-label=\"Axes\">", axisColor)
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding, padding, padding+chartHeight)
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, zeroY, padding+chartWidth, zeroY)
	b.WriteString("</g>")
}

func legend(b *strings.Builder, padding float64, series []Series, textColor string) {
	if len(series) < 2 {
		return
	}
	y := padding - 12
	if y < 12 {
		y = 12
	}
	x := padding
	for i, s := range series {
		fmt.Fprintf(b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", x, y-8, seriesColor(s, i))
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", x+14, y, textColor, template.HTMLEscapeString(s.Name))
		x += 24 + 6*float64(len(s.Name))
	}
}

// seriesBounds spans every value and always includes zero.
func seriesBounds(series []Series) (float64, float64) {
	minVal, maxVal := 0.0, 0.0
	for _, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		lo, hi := bounds(s.Values)
		minVal = math.Min(minVal, lo)
		maxVal = math.Max(maxVal, hi)
	}
	if almostEqual(maxVal, minVal) {
		maxVal = minVal + 1
	}
	return minVal, maxVal
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func bounds(series []float64) (float64, float64) {
	minVal := series[0]
	maxVal := series[0]
	for _, v := range series[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return fmt.Sprintf("%s-%s", cleaned, suffix)
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	default:
		if almostEqual(v, math.Round(v)) {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprintf("%.2f", v)
	}
}
