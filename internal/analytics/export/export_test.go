package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/retail-insights/internal/analytics"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

func sampleResult(t *testing.T) *reconcile.Result {
	t.Helper()
	res, err := reconcile.Run(reconcile.Snapshot{
		Products: []reconcile.RawProduct{
			{ProductID: "A1", Name: "Kopi, Arabica", Category: "Beverage", Stock: "12"},
			{ProductID: "B2", Name: "Teh", Category: "Beverage", Stock: "1"},
		},
		Purchases: []reconcile.RawPurchase{
			{PurchaseID: "PO-9", ProductID: "A1", Vendor: "Mitra", Quantity: "4", CostPrice: "1500", DueDate: "2025-01-01", PaymentStatus: "Pending"},
		},
		Sales: []reconcile.RawSale{
			{SaleID: "S1", ProductID: "A1", Quantity: "2", SellingPrice: "2500", SaleDate: "2025-01-15"},
			{SaleID: "S2", ProductID: "B2", Quantity: "3", SellingPrice: "1000", SaleDate: "2025-02-02"},
		},
	}, reconcile.DefaultOptions())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	return records
}

func TestWriteInventoryCSV(t *testing.T) {
	res := sampleResult(t)
	buf := &bytes.Buffer{}
	if err := WriteInventoryCSV(buf, res.View.Rows()); err != nil {
		t.Fatalf("inventory csv error: %v", err)
	}
	records := readCSV(t, buf)
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if len(records[0]) != len(records[1]) {
		t.Fatalf("row width %d does not match header %d", len(records[1]), len(records[0]))
	}
	row := records[1]
	if row[1] != "Kopi, Arabica" {
		t.Fatalf("expected quoted name to round-trip, got %q", row[1])
	}
	if row[10] != "14" {
		t.Fatalf("expected live stock 14, got %s", row[10])
	}
	if row[12] != "5000.00" {
		t.Fatalf("expected revenue 5000.00, got %s", row[12])
	}
}

func TestWriteKPICSV(t *testing.T) {
	summary, err := analytics.Summarize(sampleResult(t), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	buf := &bytes.Buffer{}
	if err := WriteKPICSV(buf, summary); err != nil {
		t.Fatalf("kpi csv error: %v", err)
	}
	records := readCSV(t, buf)
	values := map[string]string{}
	for _, r := range records[1:] {
		values[r[0]] = r[1]
	}
	if values["revenue"] != "8000.00" {
		t.Fatalf("expected revenue 8000.00 got %q", values["revenue"])
	}
	if values["overdue_payments"] != "1" || values["as_of"] != "2025-03-01" {
		t.Fatalf("unexpected kpi values %v", values)
	}
}

func TestWriteAlertsCSV(t *testing.T) {
	report, err := analytics.BuildAlerts(sampleResult(t), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	buf := &bytes.Buffer{}
	if err := WriteAlertsCSV(buf, report); err != nil {
		t.Fatalf("alerts csv error: %v", err)
	}
	records := readCSV(t, buf)
	// B2 is short of stock (1 - 3 = -2) and PO-9 is overdue.
	if len(records) != 3 {
		t.Fatalf("expected 2 alerts, got %v", records)
	}
	if records[1][0] != "negative_stock" || records[2][0] != "overdue_payment" {
		t.Fatalf("unexpected alert kinds %v", records)
	}
	if records[2][5] != "6000.00" {
		t.Fatalf("expected overdue amount 6000.00 got %s", records[2][5])
	}
}

func TestWriteTrendCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteTrendCSV(buf, sampleResult(t).Trend()); err != nil {
		t.Fatalf("trend csv error: %v", err)
	}
	records := readCSV(t, buf)
	if len(records) != 3 || records[1][0] != "2025-01" || records[2][0] != "2025-02" {
		t.Fatalf("unexpected trend %v", records)
	}
}

func TestFormatterGroupsDigits(t *testing.T) {
	en := NewFormatter(language.English)
	if got := en.Money(decimal.RequireFromString("1234567.5")); got != "1,234,567.50" {
		t.Fatalf("unexpected english money %q", got)
	}
	if got := en.Percent(decimal.RequireFromString("0.375")); got != "37.5%" {
		t.Fatalf("unexpected percent %q", got)
	}
	id := NewFormatter(ParseLocale("id"))
	if got := id.Int(1234567); got != "1.234.567" {
		t.Fatalf("unexpected indonesian grouping %q", got)
	}
	if ParseLocale("not a tag") != language.English {
		t.Fatalf("expected english fallback")
	}
}

func TestPDFExporterRender(t *testing.T) {
	var html string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("unexpected parse error: %v", err)
		}
		file, _, err := r.FormFile("files")
		if err != nil {
			t.Errorf("missing html file: %v", err)
		} else {
			data := new(bytes.Buffer)
			_, _ = data.ReadFrom(file)
			html = data.String()
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("PDF"))
	}))
	defer srv.Close()

	res := sampleResult(t)
	top, _ := res.Top(reconcile.MetricRevenue)
	exporter := NewPDFExporter(srv.URL+"/", NewFormatter(language.English))
	data, err := exporter.RenderReport(context.Background(), ReportPayload{
		Summary:   analytics.KPISummary{Totals: res.View.Totals()},
		Top:       top,
		TopMetric: reconcile.MetricRevenue,
	})
	if err != nil {
		t.Fatalf("pdf render error: %v", err)
	}
	if string(data) != "PDF" {
		t.Fatalf("unexpected payload %q", string(data))
	}
	if !strings.Contains(html, "Top products by revenue") || !strings.Contains(html, "8,000.00") {
		t.Fatalf("unexpected html %s", html)
	}
}

func TestPDFExporterErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "chromium crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	exporter := NewPDFExporter(srv.URL, Formatter{})
	if err := exporter.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping failure")
	}
	_, err := exporter.RenderReport(context.Background(), ReportPayload{})
	if err == nil || !strings.Contains(err.Error(), "chromium crashed") {
		t.Fatalf("expected gotenberg error body, got %v", err)
	}

	var disabled *PDFExporter
	if _, err := disabled.RenderReport(context.Background(), ReportPayload{}); !errors.Is(err, ErrExporterDisabled) {
		t.Fatalf("expected ErrExporterDisabled, got %v", err)
	}
}
