package analytichttp

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/retail-insights/internal/analytics"
	"github.com/odyssey-erp/retail-insights/internal/analytics/export"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

// csvExport writes one dataset of a result.
type csvExport func(w io.Writer, res *reconcile.Result, q query, now time.Time) error

var csvExports = map[string]csvExport{
	"inventory": func(w io.Writer, res *reconcile.Result, q query, _ time.Time) error {
		return export.WriteInventoryCSV(w, res.View.Filter(q.rowFilter()).Rows())
	},
	"low-stock": func(w io.Writer, res *reconcile.Result, q query, _ time.Time) error {
		rows, err := res.View.Filter(q.rowFilter()).LowStock(res.Options.LowStockThreshold)
		if err != nil {
			return err
		}
		return export.WriteInventoryCSV(w, rows)
	},
	"kpi": func(w io.Writer, res *reconcile.Result, q query, now time.Time) error {
		summary, err := analytics.Summarize(res, q.asOf(now))
		if err != nil {
			return err
		}
		return export.WriteKPICSV(w, summary)
	},
	"alerts": func(w io.Writer, res *reconcile.Result, q query, now time.Time) error {
		report, err := analytics.BuildAlerts(res, q.asOf(now))
		if err != nil {
			return err
		}
		return export.WriteAlertsCSV(w, report)
	},
	"categories": func(w io.Writer, res *reconcile.Result, q query, _ time.Time) error {
		metric, err := q.metric()
		if err != nil {
			return err
		}
		totals, err := res.View.Filter(q.rowFilter()).GroupByCategory(metric)
		if err != nil {
			return err
		}
		return export.WriteCategoriesCSV(w, metric, totals)
	},
	"sales": func(w io.Writer, res *reconcile.Result, q query, _ time.Time) error {
		sales := reconcile.FilterSales(res.Dataset.Sales, q.saleFilter())
		return export.WriteSaleLinesCSV(w, reconcile.SaleLines(sales, res.View))
	},
	"sales-trend": func(w io.Writer, res *reconcile.Result, q query, _ time.Time) error {
		return export.WriteTrendCSV(w, res.TrendFor(reconcile.FilterSales(res.Dataset.Sales, q.saleFilter())))
	},
	"purchases": func(w io.Writer, res *reconcile.Result, q query, _ time.Time) error {
		return export.WritePurchasesCSV(w, reconcile.FilterPurchases(res.Dataset.Purchases, q.purchaseFilter()))
	},
	"purchase-trend": func(w io.Writer, res *reconcile.Result, q query, _ time.Time) error {
		purchases := reconcile.FilterPurchases(res.Dataset.Purchases, q.purchaseFilter())
		return export.WritePurchaseTrendCSV(w, reconcile.PurchaseTrend(purchases, res.Options.Granularity))
	},
}

func (h *Handler) handleCSV(name string) http.HandlerFunc {
	write, ok := csvExports[name]
	if !ok {
		panic(fmt.Sprintf("analytichttp: unknown csv export %q", name))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			h.respondError(w, "parse export query", err)
			return
		}
		ctx, cancel := h.withTimeout(r)
		defer cancel()

		res, err := h.run(ctx, q)
		if err != nil {
			h.respondError(w, "reconcile export", err)
			return
		}

		buf := h.csvPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer func() {
			buf.Reset()
			h.csvPool.Put(buf)
		}()

		now := h.service.Now()
		if err := write(buf, res, q, now); err != nil {
			h.respondError(w, "write "+name+" csv", err)
			return
		}

		filename := fmt.Sprintf("%s-%s.csv", name, now.Format("20060102"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
		if _, err := w.Write(buf.Bytes()); err != nil {
			h.logError("stream csv", err)
		}
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.respondError(w, "pdf exporter", export.ErrExporterDisabled)
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse export query", err)
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
		h.respondError(w, "reconcile report", err)
		return
	}
	now := h.service.Now()
	payload, err := buildReport(res, q, metric, q.asOf(now))
	if err != nil {
		h.respondError(w, "build report", err)
		return
	}
	payload.Generated = now

	pdfBytes, err := h.pdf.RenderReport(ctx, payload)
	if err != nil {
		h.respondError(w, "render pdf", err)
		return
	}

	requestID := uuid.NewString()
	filename := fmt.Sprintf("inventory-report-%s.pdf", now.Format("20060102"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("X-Export-ID", requestID)
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

// buildReport assembles the PDF payload; the sections and charts are
// independent reads of one result and are built concurrently.
func buildReport(res *reconcile.Result, q query, metric reconcile.Metric, asOf time.Time) (export.ReportPayload, error) {
	view := res.View.Filter(q.rowFilter())
	payload := export.ReportPayload{TopMetric: metric}
	charts := make([]template.HTML, 3)

	var g errgroup.Group
	g.Go(func() error {
		summary, err := analytics.Summarize(res, asOf)
		payload.Summary = summary
		return err
	})
	g.Go(func() error {
		top, err := view.TopBy(metric, res.Options.TopN)
		if err != nil {
			return err
		}
		payload.Top = top
		charts[1], err = topChart(top, metric)
		return err
	})
	g.Go(func() error {
		low, err := view.LowStock(res.Options.LowStockThreshold)
		payload.LowStock = low
		return err
	})
	g.Go(func() error {
		categories, err := view.GroupByCategory(metric)
		if err != nil {
			return err
		}
		payload.Categories = categories
		charts[2], err = categoryChart(categories, metric)
		return err
	})
	g.Go(func() error {
		trend := res.Trend()
		payload.Trend = trend
		var err error
		charts[0], err = trendChart(trend, res.Options.Granularity)
		return err
	})
	g.Go(func() error {
		payload.Overdue = reconcile.PaymentAlerts(res.Dataset.Purchases, asOf).Overdue
		return nil
	})
	if err := g.Wait(); err != nil {
		return export.ReportPayload{}, err
	}
	payload.Charts = charts
	return payload, nil
}
