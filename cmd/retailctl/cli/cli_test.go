package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/retail-insights/internal/reconcile"
	"github.com/odyssey-erp/retail-insights/jobs"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"products.csv": "product_id,product_name,category,stock\n" +
			"P1,Kopi Arabica,Beverage,20\n" +
			"P2,Teh Hijau,Beverage,2\n" +
			"P3,Gula Aren,Pantry,abc\n",
		"purchases.csv": "purchase_id,product_id,vendor_name,quantity_purchased,cost_price,order_date,payment_due_date,payment_status\n" +
			"PO-1,P1,Sumber Jaya,10,8,2025-01-02,2025-01-20,Pending\n" +
			"PO-2,P2,Mitra,1,3,2025-01-05,2025-03-01,Paid\n",
		"sales.csv": "sale_id,product_id,quantity_sold,selling_price,sales_date\n" +
			"S1,P1,4,12,2025-01-10\n" +
			"S2,P2,1,5,2025-02-03\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func fixedNow() time.Time { return time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC) }

func TestReportCommandJSON(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := ReportCommand(context.Background(), ReportOptions{
		Dir:        writeFixture(t),
		Threshold:  10,
		Top:        2,
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     stderr,
		Now:        fixedNow,
	})
	require.Zero(t, exitCode, stderr.String())
	require.Empty(t, stderr.String())

	var summary ReportSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.Equal(t, 3, summary.KPI.Products)
	require.Equal(t, reconcile.MetricRevenue, summary.Metric)
	require.Len(t, summary.Top, 2)
	require.Equal(t, "P1", summary.Top[0].ProductID)
	require.Equal(t, "48", summary.Top[0].Revenue.String())

	// P2 has 2 live units and P3 falls back to 0.
	require.Len(t, summary.LowStock, 2)
	require.Len(t, summary.Overdue, 1)
	require.Equal(t, "PO-1", summary.Overdue[0].PurchaseID)
	require.Equal(t, 1, summary.Issues[reconcile.IssueMalformedRecord])
	require.Len(t, summary.Trend, 2)
}

func TestReportCommandHuman(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := ReportCommand(context.Background(), ReportOptions{
		Dir:       writeFixture(t),
		Threshold: 10,
		Metric:    "quantity_sold",
		Stdout:    stdout,
		Stderr:    stderr,
		Now:       fixedNow,
	})
	require.Zero(t, exitCode, stderr.String())

	out := stdout.String()
	require.Contains(t, out, "Inventory report as of 2025-02-15")
	require.Contains(t, out, "by quantity_sold_total")
	require.Contains(t, out, "Overdue payments")
	require.Contains(t, out, "malformed_record")
}

func TestReportCommandFailOnAlerts(t *testing.T) {
	exitCode := ReportCommand(context.Background(), ReportOptions{
		Dir:          writeFixture(t),
		Threshold:    10,
		FailOnAlerts: true,
		Stdout:       new(bytes.Buffer),
		Stderr:       new(bytes.Buffer),
		Now:          fixedNow,
	})
	require.Equal(t, ExitAlerts, exitCode)
}

func TestReportCommandRejectsInput(t *testing.T) {
	dir := writeFixture(t)
	cases := []struct {
		name string
		opts ReportOptions
		want string
	}{
		{name: "missing dir", opts: ReportOptions{}, want: "--dir is required"},
		{name: "unknown metric", opts: ReportOptions{Dir: dir, Threshold: 10, Metric: "margin"}, want: "unknown metric"},
		{name: "negative threshold", opts: ReportOptions{Dir: dir, Threshold: -1}, want: "invalid argument"},
		{name: "bad granularity", opts: ReportOptions{Dir: dir, Threshold: 10, Granularity: "day"}, want: "granularity"},
		{name: "bad as of", opts: ReportOptions{Dir: dir, Threshold: 10, AsOf: "15/02/2025"}, want: "invalid as-of"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stderr := new(bytes.Buffer)
			tc.opts.Stdout = new(bytes.Buffer)
			tc.opts.Stderr = stderr
			require.Equal(t, 1, ReportCommand(context.Background(), tc.opts))
			require.Contains(t, stderr.String(), tc.want)
		})
	}
}

func TestReportCommandMissingColumn(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales.csv"), []byte("sale_id,sales_date\nS1,2025-01-01\n"), 0o600))
	stderr := new(bytes.Buffer)
	exitCode := ReportCommand(context.Background(), ReportOptions{Dir: dir, Threshold: 10, Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "sales")
}

func TestJobsTrigger(t *testing.T) {
	mr := miniredis.RunT(t)
	jobsCLI := NewJobsCLI(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer func() { _ = jobsCLI.Close() }()

	info, err := jobsCLI.Trigger(context.Background(), jobs.TaskInventoryWarmup)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskInventoryWarmup, info.Type)
	require.Equal(t, jobs.QueueDefault, info.Queue)

	_, err = jobsCLI.Trigger(context.Background(), "mail:send")
	require.Error(t, err)
}

func TestPrintStats(t *testing.T) {
	buf := new(bytes.Buffer)
	PrintStats(buf, QueueStats{Queue: "default", Pending: 2, Retry: 1})
	require.Equal(t, "queue=default pending=2 active=0 scheduled=0 retry=1 archived=0\n", buf.String())
}

func TestReportHumanPrintsCountsAsIntegers(t *testing.T) {
	stdout := new(bytes.Buffer)
	exitCode := ReportCommand(context.Background(), ReportOptions{
		Dir:       writeFixture(t),
		Threshold: 10,
		Metric:    "live_stock",
		Stdout:    stdout,
		Stderr:    new(bytes.Buffer),
		Now:       fixedNow,
	})
	require.Zero(t, exitCode)
	require.Regexp(t, `P1\s+Kopi Arabica\s+Beverage\s+26\n`, stdout.String())
	require.NotContains(t, stdout.String(), "26.00")
}

func TestReportWarnsOnEmptyDirectory(t *testing.T) {
	stderr := new(bytes.Buffer)
	exitCode := ReportCommand(context.Background(), ReportOptions{
		Dir:        t.TempDir(),
		Threshold:  10,
		JSONOutput: true,
		Stdout:     new(bytes.Buffer),
		Stderr:     stderr,
		Now:        fixedNow,
	})
	require.Zero(t, exitCode)
	require.Contains(t, stderr.String(), "no rows found")
}
