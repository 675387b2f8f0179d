package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/retail-insights/internal/app"
	jobmetrics "github.com/odyssey-erp/retail-insights/internal/jobs"
	"github.com/odyssey-erp/retail-insights/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	inv, err := app.OpenInventory(ctx, cfg, logger)
	if err != nil {
		logger.Error("open inventory", slog.Any("error", err))
		os.Exit(1)
	}
	defer inv.Close()

	metrics := jobmetrics.NewMetrics(nil)
	warmupJob := jobs.NewInventoryWarmupJob(inv.Service, logger, metrics)
	alertJob := jobs.NewAlertScanJob(inv.Service, logger, metrics)

	warmupTask, err := jobs.NewInventoryWarmupTask("scheduled")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	alertTask, err := jobs.NewAlertScanTask(jobs.AlertScanPayload{})
	if err != nil {
		logger.Error("build alert scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInventoryWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskInventoryAlertScan, Handler: alertJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.AlertScanCron, Task: alertTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("store", cfg.StoreDriver), slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
