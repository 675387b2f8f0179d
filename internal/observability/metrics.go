// Package observability wires Prometheus metrics for the HTTP surface and the
// reconciliation runs behind it.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

// Metrics collects the application's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reconcileRuns   prometheus.Counter
	reconcileRows   prometheus.Gauge
	reconcileTime   prometheus.Histogram
	issues          *prometheus.CounterVec
}

// NewMetrics initialises the registry with the HTTP and reconcile collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retailops_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "retailops_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retailops_reconcile_runs_total",
		Help: "Completed reconciliation runs.",
	})
	rows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "retailops_reconcile_rows",
		Help: "Rows in the most recent inventory view.",
	})
	elapsed := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "retailops_reconcile_duration_seconds",
		Help:    "Duration of a reconciliation run including the snapshot load.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})
	issues := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retailops_reconcile_issues_total",
		Help: "Data quality issues reported by reconciliation runs.",
	}, []string{"kind"})
	registry.MustRegister(requests, duration, runs, rows, elapsed, issues)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		reconcileRuns:   runs,
		reconcileRows:   rows,
		reconcileTime:   elapsed,
		issues:          issues,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveReconcile records one reconciliation run.
func (m *Metrics) ObserveReconcile(rows int, issues map[reconcile.IssueKind]int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reconcileRuns.Inc()
	m.reconcileRows.Set(float64(rows))
	m.reconcileTime.Observe(elapsed.Seconds())
	for kind, count := range issues {
		if count > 0 {
			m.issues.WithLabelValues(string(kind)).Add(float64(count))
		}
	}
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
