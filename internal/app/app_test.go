package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/retail-insights/internal/observability"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, cfg.StoreDriver)
	require.False(t, cfg.IsProduction())

	opts, err := cfg.ReportOptions()
	require.NoError(t, err)
	require.Equal(t, reconcile.DefaultOptions(), opts)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "CSV")
	t.Setenv("CSV_DIR", "/srv/exports")
	t.Setenv("LOW_STOCK_THRESHOLD", "25")
	t.Setenv("TOP_N", "5")
	t.Setenv("TREND_GRANULARITY", "week")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, DriverCSV, cfg.StoreDriver)

	opts, err := cfg.ReportOptions()
	require.NoError(t, err)
	require.Equal(t, reconcile.Options{LowStockThreshold: 25, TopN: 5, Granularity: reconcile.GranularityWeek}, opts)
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":      {"STORE_DRIVER": "sqlite"},
		"mysql without dsn":   {"STORE_DRIVER": "mysql", "MYSQL_DSN": ""},
		"negative threshold":  {"LOW_STOCK_THRESHOLD": "-1"},
		"zero top":            {"TOP_N": "0"},
		"bad granularity":     {"TREND_GRANULARITY": "day"},
		"non numeric top":     {"TOP_N": "ten"},
		"non positive limits": {"RATE_LIMIT_PER_MINUTE": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn"}).Info("dropped")
	require.Zero(t, buf.Len())

	newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn"}).Warn("kept")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "kept", entry["msg"])

	buf.Reset()
	newLogger(&buf, nil).Info("text line")
	require.Contains(t, buf.String(), "msg=\"text line\"")
}

func TestRouterHealthAndMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{Config: &Config{RateLimit: 100}, Metrics: metrics})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	if !strings.Contains(rr.Body.String(), `retailops_http_requests_total{code="200",route="/healthz"} 1`) {
		t.Fatalf("expected healthz request in metrics, got: %s", rr.Body.String())
	}
}

func TestRouterReadiness(t *testing.T) {
	router := NewRouter(RouterParams{Readiness: map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
		"cache": func(context.Context) error { return errors.New("connection refused") },
	}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.JSONEq(t, `{"store":"ok","cache":"unavailable"}`, rr.Body.String())
}

func TestRouterRateLimit(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{RateLimit: 2}})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "198.51.100.7:5000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestOpenInventoryOverCSV(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products.csv"), []byte("product_id,product_name,category,stock\nP1,Kopi,Beverage,4\n"), 0o600))

	cfg := &Config{
		StoreDriver:       DriverCSV,
		CSVDir:            dir,
		RedisAddr:         mr.Addr(),
		CacheTTL:          time.Minute,
		LowStockThreshold: 10,
		TopN:              10,
		TrendGranularity:  "month",
	}
	inv, err := OpenInventory(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer inv.Close()

	require.NotNil(t, inv.Redis)
	require.Contains(t, inv.Readiness, "cache")
	require.NotContains(t, inv.Readiness, "store")

	res, err := inv.Service.Reconcile(context.Background(), inv.Service.Options())
	require.NoError(t, err)
	low, err := res.LowStock()
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.True(t, mr.Exists("inventory:snapshot:v1"))
}

func TestOpenInventoryWithoutRedis(t *testing.T) {
	cfg := &Config{
		StoreDriver:       DriverCSV,
		CSVDir:            t.TempDir(),
		RedisAddr:         "127.0.0.1:1",
		LowStockThreshold: 10,
		TopN:              10,
		TrendGranularity:  "month",
	}
	inv, err := OpenInventory(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer inv.Close()

	require.Nil(t, inv.Redis)
	require.NotContains(t, inv.Readiness, "cache")
	ver, err := inv.Service.Invalidate(context.Background())
	require.NoError(t, err)
	require.Zero(t, ver)
}
