package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/retail-insights/internal/jobs"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// warmupTimeout bounds one reload of the source tables.
const warmupTimeout = 2 * time.Minute

// SnapshotRefresher reloads the source tables into the snapshot cache.
type SnapshotRefresher interface {
	Refresh(ctx context.Context) (reconcile.Snapshot, error)
}

// InventoryWarmupJob pre-populates the snapshot cache.
type InventoryWarmupJob struct {
	Service SnapshotRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewInventoryWarmupJob wires dependencies for the warmup handler.
func NewInventoryWarmupJob(service SnapshotRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *InventoryWarmupJob {
	return &InventoryWarmupJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes warmup tasks.
func (j *InventoryWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("inventory warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Reason == "" {
		payload.Reason = "scheduled"
	}

	tracker := j.metrics().Track(TaskInventoryWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("run_id", uuid.NewString()),
		slog.String("reason", payload.Reason),
	)
	logger.Info("starting inventory warmup")
	start := j.now()

	runCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()
	snap, err := j.Service.Refresh(runCtx)
	if err != nil {
		resultErr = err
		logger.Error("refresh snapshot", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed inventory warmup",
		slog.Int("products", len(snap.Products)),
		slog.Int("purchases", len(snap.Purchases)),
		slog.Int("sales", len(snap.Sales)),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return resultErr
}

func (j *InventoryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInventoryWarmup))
	}
	return slog.Default().With(slog.String("job", TaskInventoryWarmup))
}

func (j *InventoryWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *InventoryWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
