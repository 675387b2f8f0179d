package jobmetrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T, registry *prometheus.Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Body.String()
}

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if err := metrics.Track("warmup").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := metrics.Track("warmup").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error passthrough, got %v", err)
	}

	body := scrape(t, registry)
	for _, want := range []string{
		`retailops_jobs_total{job="warmup",status="success"} 1`,
		`retailops_jobs_total{job="warmup",status="failure"} 1`,
		`retailops_jobs_failures_total{job="warmup"} 1`,
		`retailops_job_duration_seconds_count{job="warmup"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}
}

func TestSetAlertsIsALevel(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.SetAlerts("low_stock", 4)
	metrics.SetAlerts("low_stock", 2)
	metrics.SetAlerts("overdue", -3)

	body := scrape(t, registry)
	if !strings.Contains(body, `retailops_inventory_alerts{kind="low_stock"} 2`) {
		t.Fatalf("expected low stock level 2, got: %s", body)
	}
	if !strings.Contains(body, `retailops_inventory_alerts{kind="overdue"} 0`) {
		t.Fatalf("expected clamped overdue level, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.SetAlerts("low_stock", 1)
	if err := metrics.Track("warmup").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
