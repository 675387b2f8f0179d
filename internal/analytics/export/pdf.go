package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/retail-insights/internal/analytics"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

// ErrExporterDisabled is returned when no Gotenberg endpoint is configured.
var ErrExporterDisabled = errors.New("export: pdf exporter not configured")

// ReportPayload aggregates inventory data destined for PDF rendering.
type ReportPayload struct {
	Title      string
	Summary    analytics.KPISummary
	Top        []reconcile.Row
	TopMetric  reconcile.Metric
	LowStock   []reconcile.Row
	Categories []reconcile.CategoryTotal
	Trend      []reconcile.TrendPoint
	Overdue    []reconcile.Purchase
	Charts     []template.HTML
	Generated  time.Time
}

// PDFExporter wraps Gotenberg interactions for report exports.
type PDFExporter struct {
	Endpoint  string
	Client    *http.Client
	Formatter Formatter
}

// NewPDFExporter constructs an exporter with a bounded HTTP client.
func NewPDFExporter(endpoint string, formatter Formatter) *PDFExporter {
	return &PDFExporter{
		Endpoint:  strings.TrimRight(endpoint, "/"),
		Client:    &http.Client{Timeout: 30 * time.Second},
		Formatter: formatter,
	}
}

// Enabled reports whether an endpoint is configured.
func (p *PDFExporter) Enabled() bool {
	return p != nil && strings.TrimSpace(p.Endpoint) != ""
}

// Ping checks that Gotenberg answers its health probe.
func (p *PDFExporter) Ping(ctx context.Context) error {
	if !p.Enabled() {
		return ErrExporterDisabled
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.Endpoint, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return fmt.Errorf("export: gotenberg health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("export: gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderReport sends the report HTML to Gotenberg and returns the PDF bytes.
func (p *PDFExporter) RenderReport(ctx context.Context, payload ReportPayload) ([]byte, error) {
	if !p.Enabled() {
		return nil, ErrExporterDisabled
	}
	html, err := p.HTML(payload)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	if err := writer.WriteField("waitDelay", "500ms"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(p.Endpoint, "/") + "/forms/chromium/convert/html"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("export: gotenberg convert: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("export: gotenberg response %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return io.ReadAll(resp.Body)
}

// HTML renders the report document Gotenberg converts.
func (p *PDFExporter) HTML(payload ReportPayload) (string, error) {
	f := Formatter{}
	if p != nil {
		f = p.Formatter
	}
	if payload.Title == "" {
		payload.Title = "Inventory Report"
	}
	if payload.Generated.IsZero() {
		payload.Generated = time.Now().UTC()
	}
	var b strings.Builder
	if err := reportTemplate.Execute(&b, reportView{ReportPayload: payload, F: f}); err != nil {
		return "", fmt.Errorf("export: render html: %w", err)
	}
	return b.String(), nil
}

func (p *PDFExporter) client() *http.Client {
	if p.Client == nil {
		return http.DefaultClient
	}
	return p.Client
}

type reportView struct {
	ReportPayload
	F Formatter
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"int64": func(n int) int64 { return int64(n) },
}).Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title><style>
body{font-family:sans-serif;margin:24px;color:#0f172a}h1{font-size:20px}h2{font-size:15px;margin-top:24px}
table{width:100%;border-collapse:collapse;margin-bottom:16px}th,td{border:1px solid #e2e8f0;padding:5px;text-align:right;font-size:11px}
th{text-align:left;background:#f1f5f9}td.label{text-align:left}.neg{color:#b91c1c}.charts svg{width:48%;display:inline-block}
</style></head><body>
<h1>{{.Title}}</h1>
<p>As of {{.F.Date .Summary.AsOf}} &middot; generated {{.Generated.Format "2006-01-02 15:04 MST"}}</p>
<h2>Summary</h2>
<table><tbody>
<tr><td class="label">Products</td><td>{{.F.Int (int64 .Summary.Products)}}</td></tr>
<tr><td class="label">Live stock</td><td>{{.F.Int .Summary.LiveStock}}</td></tr>
<tr><td class="label">Units sold</td><td>{{.F.Int .Summary.UnitsSold}}</td></tr>
<tr><td class="label">Revenue</td><td>{{.F.Money .Summary.Revenue}}</td></tr>
<tr><td class="label">Profit</td><td>{{.F.Money .Summary.Profit}}</td></tr>
<tr><td class="label">Stock value</td><td>{{.F.Money .Summary.StockValue}}</td></tr>
<tr><td class="label">Potential revenue</td><td>{{.F.Money .Summary.PotentialRevenue}}</td></tr>
<tr><td class="label">Purchase spend</td><td>{{.F.Money .Summary.Purchases.TotalSpend}}</td></tr>
<tr><td class="label">Low stock (below {{.Summary.Threshold}})</td><td>{{.Summary.LowStock}}</td></tr>
<tr><td class="label">Overdue payments</td><td>{{.Summary.OverduePayments}}</td></tr>
</tbody></table>
{{if .Charts}}<div class="charts">{{range .Charts}}{{.}}{{end}}</div>{{end}}
{{if .Top}}<h2>Top products by {{.TopMetric}}</h2>
<table><thead><tr><th>Product</th><th>Category</th><th>Sold</th><th>Revenue</th><th>Profit</th><th>Margin</th></tr></thead><tbody>
{{range .Top}}<tr><td class="label">{{.ProductID}} {{.Name}}</td><td class="label">{{.Category}}</td><td>{{$.F.Int .QuantitySoldTotal}}</td><td>{{$.F.Money .Revenue}}</td><td>{{$.F.Money .Profit}}</td><td>{{$.F.Percent .ProfitMargin}}</td></tr>
{{end}}</tbody></table>{{end}}
{{if .LowStock}}<h2>Low stock</h2>
<table><thead><tr><th>Product</th><th>Live stock</th><th>Stock value</th></tr></thead><tbody>
{{range .LowStock}}<tr><td class="label">{{.ProductID}} {{.Name}}</td><td{{if lt .LiveStock 0}} class="neg"{{end}}>{{$.F.Int .LiveStock}}</td><td>{{$.F.Money .StockValue}}</td></tr>
{{end}}</tbody></table>{{end}}
{{if .Categories}}<h2>Categories</h2>
<table><thead><tr><th>Category</th><th>Products</th><th>Value</th></tr></thead><tbody>
{{range .Categories}}<tr><td class="label">{{.Category}}</td><td>{{.Products}}</td><td>{{$.F.Money .Value}}</td></tr>
{{end}}</tbody></table>{{end}}
{{if .Trend}}<h2>Sales trend</h2>
<table><thead><tr><th>Period</th><th>Units</th><th>Revenue</th><th>Profit</th></tr></thead><tbody>
{{range .Trend}}<tr><td class="label">{{.Period}}</td><td>{{$.F.Int .QuantitySold}}</td><td>{{$.F.Money .Revenue}}</td><td>{{$.F.Money .Profit}}</td></tr>
{{end}}</tbody></table>{{end}}
{{if .Overdue}}<h2>Overdue payments</h2>
<table><thead><tr><th>Purchase</th><th>Vendor</th><th>Due</th><th>Amount</th></tr></thead><tbody>
{{range .Overdue}}<tr><td class="label">{{.PurchaseID}} {{.ProductID}}</td><td class="label">{{.Vendor}}</td><td>{{$.F.Date .DueDate}}</td><td>{{$.F.Money .Spend}}</td></tr>
{{end}}</tbody></table>{{end}}
</body></html>`))
