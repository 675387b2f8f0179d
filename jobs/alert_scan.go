package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/retail-insights/internal/analytics"
	jobmetrics "github.com/odyssey-erp/retail-insights/internal/jobs"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

// Alert kinds published by the scan.
const (
	AlertLowStock      = "low_stock"
	AlertNegativeStock = "negative_stock"
	AlertPending       = "pending_payment"
	AlertOverdue       = "overdue_payment"
)

// InventoryReconciler reconciles the current snapshot.
type InventoryReconciler interface {
	Options() reconcile.Options
	Now() time.Time
	Reconcile(ctx context.Context, opts reconcile.Options) (*reconcile.Result, error)
}

// AlertScanJob reconciles the snapshot and reports stock and payment alerts.
type AlertScanJob struct {
	Service InventoryReconciler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAlertScanJob initialises the alert scan handler.
func NewAlertScanJob(service InventoryReconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *AlertScanJob {
	return &AlertScanJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle executes the alert scan.
func (j *AlertScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("alert scan: handler not configured")
	}
	var payload AlertScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	opts := j.Service.Options()
	if payload.LowStockThreshold != nil {
		opts.LowStockThreshold = *payload.LowStockThreshold
	}
	if err := opts.Validate(); err != nil {
		return errors.Join(err, asynq.SkipRetry)
	}
	asOf := j.Service.Now()
	if payload.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			return errors.Join(err, asynq.SkipRetry)
		}
		asOf = parsed
	}

	tracker := j.metrics().Track(TaskInventoryAlertScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("run_id", uuid.NewString()),
		slog.Int64("low_stock_threshold", opts.LowStockThreshold),
		slog.String("as_of", asOf.Format("2006-01-02")),
	)
	logger.Info("starting alert scan")
	start := time.Now()

	report, err := j.scan(ctx, opts, asOf)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	for _, row := range report.NegativeStock {
		logger.Warn("negative live stock",
			slog.String("product_id", row.ProductID),
			slog.Int64("live_stock", row.LiveStock),
		)
	}
	for _, p := range report.Overdue {
		logger.Warn("overdue purchase payment",
			slog.String("purchase_id", p.PurchaseID),
			slog.String("product_id", p.ProductID),
			slog.String("vendor", p.Vendor),
			slog.Time("due", p.DueDate),
		)
	}

	m := j.metrics()
	m.SetAlerts(AlertLowStock, len(report.LowStock))
	m.SetAlerts(AlertNegativeStock, len(report.NegativeStock))
	m.SetAlerts(AlertPending, len(report.Pending))
	m.SetAlerts(AlertOverdue, len(report.Overdue))

	logger.Info("completed alert scan",
		slog.Int("low_stock", len(report.LowStock)),
		slog.Int("negative_stock", len(report.NegativeStock)),
		slog.Int("pending", len(report.Pending)),
		slog.Int("overdue", len(report.Overdue)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *AlertScanJob) scan(ctx context.Context, opts reconcile.Options, asOf time.Time) (analytics.AlertReport, error) {
	res, err := j.Service.Reconcile(ctx, opts)
	if err != nil {
		return analytics.AlertReport{}, err
	}
	return analytics.BuildAlerts(res, asOf)
}

func (j *AlertScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInventoryAlertScan))
	}
	return slog.Default().With(slog.String("job", TaskInventoryAlertScan))
}

func (j *AlertScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
