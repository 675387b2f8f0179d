package analytichttp

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/odyssey-erp/retail-insights/internal/analytics/svg"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

// emptyLabel keeps charts of empty views renderable.
const emptyLabel = "no data"

func (h *Handler) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse chart query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile trend chart", err)
		return
	}
	chart, err := trendChart(res.TrendFor(reconcile.FilterSales(res.Dataset.Sales, q.saleFilter())), res.Options.Granularity)
	if err != nil {
		h.respondError(w, "render trend chart", err)
		return
	}
	writeSVG(w, chart)
}

func (h *Handler) handleTopChart(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse chart query", err)
		return
	}
	metric, err := q.metric()
	if err != nil {
		h.respondError(w, "parse metric", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile top chart", err)
		return
	}
	rows, err := res.View.Filter(q.rowFilter()).TopBy(metric, res.Options.TopN)
	if err != nil {
		h.respondError(w, "top by metric", err)
		return
	}
	chart, err := topChart(rows, metric)
	if err != nil {
		h.respondError(w, "render top chart", err)
		return
	}
	writeSVG(w, chart)
}

func (h *Handler) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse chart query", err)
		return
	}
	metric, err := q.metric()
	if err != nil {
		h.respondError(w, "parse metric", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile category chart", err)
		return
	}
	categories, err := res.View.Filter(q.rowFilter()).GroupByCategory(metric)
	if err != nil {
		h.respondError(w, "group by category", err)
		return
	}
	chart, err := categoryChart(categories, metric)
	if err != nil {
		h.respondError(w, "render category chart", err)
		return
	}
	writeSVG(w, chart)
}

func (h *Handler) handleStockChart(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse chart query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile stock chart", err)
		return
	}
	rows, err := res.View.Filter(q.rowFilter()).LowStock(res.Options.LowStockThreshold)
	if err != nil {
		h.respondError(w, "low stock", err)
		return
	}
	chart, err := stockChart(rows, res.Options.LowStockThreshold)
	if err != nil {
		h.respondError(w, "render stock chart", err)
		return
	}
	writeSVG(w, chart)
}

func trendChart(points []reconcile.TrendPoint, g reconcile.Granularity) (template.HTML, error) {
	labels := make([]string, 0, len(points))
	revenue := make([]float64, 0, len(points))
	profit := make([]float64, 0, len(points))
	for _, p := range points {
		labels = append(labels, p.Period)
		revenue = append(revenue, p.Revenue.InexactFloat64())
		profit = append(profit, p.Profit.InexactFloat64())
	}
	if len(labels) == 0 {
		labels, revenue, profit = []string{emptyLabel}, []float64{0}, []float64{0}
	}
	return svg.Line(svg.DefaultWidth, svg.DefaultHeight, labels, []svg.Series{
		{Name: "Revenue", Values: revenue},
		{Name: "Profit", Values: profit},
	}, svg.LineOpts{
		Title:       "Sales trend",
		Description: fmt.Sprintf("Revenue and profit per %s", g),
		ShowDots:    true,
		Fill:        true,
	})
}

func topChart(rows []reconcile.Row, metric reconcile.Metric) (template.HTML, error) {
	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		v, err := row.Value(metric)
		if err != nil {
			return "", err
		}
		labels = append(labels, row.ProductID)
		values = append(values, v.InexactFloat64())
	}
	if len(labels) == 0 {
		labels, values = []string{emptyLabel}, []float64{0}
	}
	return svg.Bars(svg.DefaultWidth, svg.DefaultHeight, labels, []svg.Series{{Name: string(metric), Values: values}}, svg.BarOpts{
		Title:       fmt.Sprintf("Top products by %s", metric),
		Description: fmt.Sprintf("Highest %s per product", metric),
	})
}

func categoryChart(categories []reconcile.CategoryTotal, metric reconcile.Metric) (template.HTML, error) {
	slices := make([]svg.Slice, 0, len(categories))
	positive := false
	for _, c := range categories {
		v := c.Value.InexactFloat64()
		positive = positive || v > 0
		slices = append(slices, svg.Slice{Label: c.Category, Value: v})
	}
	opts := svg.DonutOpts{
		Title:       fmt.Sprintf("%s by category", metric),
		Description: fmt.Sprintf("Share of %s per category", metric),
	}
	if positive {
		return svg.Donut(svg.DefaultHeight+200, svg.DefaultHeight, slices, opts)
	}
	// A donut cannot show negative shares; fall back to bars.
	labels := make([]string, 0, len(categories))
	values := make([]float64, 0, len(categories))
	for _, s := range slices {
		labels = append(labels, s.Label)
		values = append(values, s.Value)
	}
	if len(labels) == 0 {
		labels, values = []string{emptyLabel}, []float64{0}
	}
	return svg.Bars(svg.DefaultWidth, svg.DefaultHeight, labels, []svg.Series{{Name: string(metric), Values: values}}, svg.BarOpts{
		Title:       opts.Title,
		Description: opts.Description,
	})
}

func stockChart(rows []reconcile.Row, threshold int64) (template.HTML, error) {
	labels := make([]string, 0, len(rows))
	live := make([]float64, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, row.ProductID)
		live = append(live, float64(row.LiveStock))
	}
	if len(labels) == 0 {
		labels, live = []string{emptyLabel}, []float64{0}
	}
	return svg.Bars(svg.DefaultWidth, svg.DefaultHeight, labels, []svg.Series{{Name: "Live stock", Values: live, Color: "#dc2626"}}, svg.BarOpts{
		Title:       "Low stock",
		Description: fmt.Sprintf("Products with live stock below %d", threshold),
	})
}

func writeSVG(w http.ResponseWriter, chart template.HTML) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(chart))
}
