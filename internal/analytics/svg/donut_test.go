package svg

import (
	"strings"
	"testing"
)

func TestDonutSegments(t *testing.T) {
	html, err := Donut(360, 200, []Slice{
		{Label: "Beverage", Value: 75},
		{Label: "Dairy", Value: 25},
		{Label: "Returns", Value: -5},
	}, DonutOpts{Title: "Revenue share"})
	if err != nil {
		t.Fatalf("donut renderer error: %v", err)
	}
	output := string(html)
	if got := strings.Count(output, "<path"); got != 2 {
		t.Fatalf("expected 2 segments got %d", got)
	}
	if !strings.Contains(output, "Beverage 75.0%") || !strings.Contains(output, "Dairy 25.0%") {
		t.Fatalf("expected share labels, got %s", output)
	}
	if strings.Contains(output, "Returns") {
		t.Fatalf("negative slices must be skipped")
	}
}

func TestDonutFullRing(t *testing.T) {
	html, err := Donut(0, 0, []Slice{{Label: "unknown", Value: 3}}, DonutOpts{})
	if err != nil {
		t.Fatalf("donut renderer error: %v", err)
	}
	if !strings.Contains(string(html), "<circle") {
		t.Fatalf("single slice should render as a ring")
	}
}

func TestDonutRequiresPositiveValue(t *testing.T) {
	if _, err := Donut(200, 200, []Slice{{Label: "x", Value: 0}}, DonutOpts{}); err == nil {
		t.Fatalf("expected error for empty donut")
	}
}
