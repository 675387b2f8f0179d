// Package cli implements the retailctl subcommands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/odyssey-erp/retail-insights/internal/analytics"
	"github.com/odyssey-erp/retail-insights/internal/analytics/export"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
	"github.com/odyssey-erp/retail-insights/internal/store/csvfile"
)

// ExitAlerts is returned by ReportCommand when FailOnAlerts is set and the
// report has open alerts.
const ExitAlerts = 10

// ReportOptions defines the flags of the report command.
type ReportOptions struct {
	Dir          string
	Threshold    int64
	Top          int
	Granularity  string
	Metric       string
	Locale       string
	AsOf         string
	JSONOutput   bool
	FailOnAlerts bool
	Stdout       io.Writer
	Stderr       io.Writer
	Now          func() time.Time
}

// ReportSummary is the JSON document printed by report --json.
type ReportSummary struct {
	KPI        analytics.KPISummary        `json:"kpi"`
	Metric     reconcile.Metric            `json:"metric"`
	Top        []reconcile.Row             `json:"top"`
	LowStock   []reconcile.Row             `json:"low_stock"`
	Categories []reconcile.CategoryTotal   `json:"categories"`
	Trend      []reconcile.TrendPoint      `json:"trend"`
	Overdue    []reconcile.Purchase        `json:"overdue"`
	Issues     map[reconcile.IssueKind]int `json:"issues"`
}

// ReportCommand reconciles a directory of CSV exports and prints the report.
func ReportCommand(ctx context.Context, opts ReportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if strings.TrimSpace(opts.Dir) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "report: --dir is required")
		return 1
	}
	runOpts, metric, asOf, err := opts.resolve()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}

	snap, err := csvfile.New(opts.Dir).Snapshot(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: read %s: %v\n", opts.Dir, err)
		return 1
	}
	if snap.Empty() {
		_, _ = fmt.Fprintf(opts.Stderr, "report: no rows found in %s\n", opts.Dir)
	}
	res, err := reconcile.Run(snap, runOpts)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}
	summary, err := buildSummary(res, metric, asOf)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "report: encode json: %v\n", err)
			return 1
		}
	} else {
		renderReportHuman(opts.Stdout, export.NewFormatter(export.ParseLocale(opts.Locale)), summary)
	}
	if opts.FailOnAlerts && (summary.KPI.LowStock > 0 || summary.KPI.OverduePayments > 0) {
		return ExitAlerts
	}
	return 0
}

func (opts ReportOptions) resolve() (reconcile.Options, reconcile.Metric, time.Time, error) {
	runOpts := reconcile.DefaultOptions()
	runOpts.LowStockThreshold = opts.Threshold
	if opts.Top != 0 {
		runOpts.TopN = opts.Top
	}
	g, err := reconcile.ParseGranularity(opts.Granularity)
	if err != nil {
		return reconcile.Options{}, "", time.Time{}, err
	}
	runOpts.Granularity = g
	if err := runOpts.Validate(); err != nil {
		return reconcile.Options{}, "", time.Time{}, err
	}

	metric := reconcile.MetricRevenue
	if opts.Metric != "" {
		if metric, err = reconcile.ParseMetric(opts.Metric); err != nil {
			return reconcile.Options{}, "", time.Time{}, err
		}
	}

	asOf := time.Now().UTC()
	if opts.Now != nil {
		asOf = opts.Now()
	}
	if opts.AsOf != "" {
		if asOf, err = time.Parse("2006-01-02", opts.AsOf); err != nil {
			return reconcile.Options{}, "", time.Time{}, fmt.Errorf("invalid as-of %q (expected YYYY-MM-DD)", opts.AsOf)
		}
	}
	return runOpts, metric, asOf, nil
}

func buildSummary(res *reconcile.Result, metric reconcile.Metric, asOf time.Time) (ReportSummary, error) {
	kpi, err := analytics.Summarize(res, asOf)
	if err != nil {
		return ReportSummary{}, err
	}
	top, err := res.View.TopBy(metric, res.Options.TopN)
	if err != nil {
		return ReportSummary{}, err
	}
	low, err := res.LowStock()
	if err != nil {
		return ReportSummary{}, err
	}
	categories, err := res.View.GroupByCategory(metric)
	if err != nil {
		return ReportSummary{}, err
	}
	return ReportSummary{
		KPI:        kpi,
		Metric:     metric,
		Top:        top,
		LowStock:   low,
		Categories: categories,
		Trend:      res.Trend(),
		Overdue:    reconcile.PaymentAlerts(res.Dataset.Purchases, asOf).Overdue,
		Issues:     res.IssueCounts(),
	}, nil
}

func renderReportHuman(w io.Writer, f export.Formatter, s ReportSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintf(tw, "Inventory report as of %s\n\n", f.Date(s.KPI.AsOf))
	_, _ = fmt.Fprintf(tw, "Products\t%s\n", f.Int(int64(s.KPI.Products)))
	_, _ = fmt.Fprintf(tw, "Live stock\t%s\n", f.Int(s.KPI.LiveStock))
	_, _ = fmt.Fprintf(tw, "Revenue\t%s\n", f.Money(s.KPI.Revenue))
	_, _ = fmt.Fprintf(tw, "Profit\t%s\n", f.Money(s.KPI.Profit))
	_, _ = fmt.Fprintf(tw, "Stock value\t%s\n", f.Money(s.KPI.StockValue))
	_, _ = fmt.Fprintf(tw, "Low stock (< %d)\t%d\n", s.KPI.Threshold, s.KPI.LowStock)
	_, _ = fmt.Fprintf(tw, "Overdue payments\t%d\n", s.KPI.OverduePayments)
	_, _ = fmt.Fprintf(tw, "Data issues\t%d\n", s.KPI.Issues)

	_, _ = fmt.Fprintf(tw, "\nTop %d by %s\n", len(s.Top), s.Metric)
	_, _ = fmt.Fprintln(tw, "PRODUCT\tNAME\tCATEGORY\tVALUE")
	for _, row := range s.Top {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.ProductID, row.Name, row.Category, formatMetric(f, row, s.Metric))
	}

	if len(s.LowStock) > 0 {
		_, _ = fmt.Fprintln(tw, "\nLow stock")
		_, _ = fmt.Fprintln(tw, "PRODUCT\tNAME\tLIVE STOCK")
		for _, row := range s.LowStock {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", row.ProductID, row.Name, f.Int(row.LiveStock))
		}
	}

	if len(s.Overdue) > 0 {
		_, _ = fmt.Fprintln(tw, "\nOverdue payments")
		_, _ = fmt.Fprintln(tw, "PURCHASE\tVENDOR\tDUE\tAMOUNT")
		for _, p := range s.Overdue {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.PurchaseID, p.Vendor, f.Date(p.DueDate), f.Money(p.Spend()))
		}
	}

	if len(s.Issues) > 0 {
		_, _ = fmt.Fprintln(tw, "\nData issues")
		for _, kind := range []reconcile.IssueKind{reconcile.IssueMalformedRecord, reconcile.IssueUnparseableDate, reconcile.IssueDuplicateKey} {
			if n := s.Issues[kind]; n > 0 {
				_, _ = fmt.Fprintf(tw, "%s\t%d\n", kind, n)
			}
		}
	}
}

// formatMetric prints unit counts as integers and money columns with decimals.
func formatMetric(f export.Formatter, row reconcile.Row, m reconcile.Metric) string {
	v, _ := row.Value(m)
	switch m {
	case reconcile.MetricQuantitySold, reconcile.MetricQuantityPurchased,
		reconcile.MetricLiveStock, reconcile.MetricInitialStock:
		return f.Int(v.IntPart())
	default:
		return f.Money(v)
	}
}
