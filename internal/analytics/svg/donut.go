package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Donut renders slices as ring segments proportional to their value.
// Non-positive slices are skipped; at least one slice must be positive.
func Donut(width, height int, slices []Slice, opts DonutOpts) (template.HTML, error) {
	total := 0.0
	for _, s := range slices {
		if s.Value > 0 {
			total += s.Value
		}
	}
	if total <= 0 {
		return "", fmt.Errorf("svg: donut needs a positive slice")
	}
	if width <= 0 {
		width = DefaultHeight
	}
	if height <= 0 {
		height = DefaultHeight
	}
	hole := opts.Hole
	if hole <= 0 || hole >= 1 {
		hole = DefaultHole
	}
	textColor := fallback(opts.TextColor, "#475569")

	// The ring sits on the left square of the viewport; the legend takes the rest.
	size := math.Min(float64(width), float64(height))
	cx, cy := size/2, float64(height)/2
	outer := size/2 - 8
	inner := outer * hole
	if outer <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	titleID := makeID(opts.Title, "donut-title")
	descID := makeID(opts.Title, "donut-desc")

	var b strings.Builder
	header(&b, width, height, titleID, descID, fallback(opts.Title, "Donut chart"), fallback(opts.Description, "Share of total"))

	angle := -math.Pi / 2
	drawn := 0
	for i, s := range slices {
		if s.Value <= 0 {
			continue
		}
		color := fallback(s.Color, palette[i%len(palette)])
		share := s.Value / total
		label := template.HTMLEscapeString(fmt.Sprintf("%s %.1f%%", s.Label, share*100))
		if almostEqual(share, 1) {
			fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=\"none\" stroke=\"%s\" stroke-width=\"%.2f\"><title>%s</title></circle>", cx, cy, (outer+inner)/2, color, outer-inner, label)
		} else {
			end := angle + share*2*math.Pi
			large := 0
			if share > 0.5 {
				large = 1
			}
			fmt.Fprintf(&b, "<path d=\"M%.2f %.2f A%.2f %.2f 0 %d 1 %.2f %.2f L%.2f %.2f A%.2f %.2f 0 %d 0 %.2f %.2f Z\" fill=\"%s\"><title>%s</title></path>",
				cx+outer*math.Cos(angle), cy+outer*math.Sin(angle),
				outer, outer, large, cx+outer*math.Cos(end), cy+outer*math.Sin(end),
				cx+inner*math.Cos(end), cy+inner*math.Sin(end),
				inner, inner, large, cx+inner*math.Cos(angle), cy+inner*math.Sin(angle),
				color, label)
			angle = end
		}

		ly := 16 + float64(drawn)*16
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", size+8, ly-9, color)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", size+22, ly, textColor, label)
		drawn++
	}

	fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"12\" text-anchor=\"middle\">%s</text>", cx, cy+4, textColor, template.HTMLEscapeString(formatTick(total)))
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
