package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/retail-insights/internal/analytics/export"
	analytichttp "github.com/odyssey-erp/retail-insights/internal/analytics/http"
	"github.com/odyssey-erp/retail-insights/internal/app"
	"github.com/odyssey-erp/retail-insights/internal/observability"
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
	metrics := observability.NewMetrics()

	inv, err := app.OpenInventory(ctx, cfg, logger)
	if err != nil {
		logger.Error("open inventory", slog.Any("error", err))
		os.Exit(1)
	}
	defer inv.Close()
	inv.Service.WithRecorder(metrics)

	if err := inv.Cache.ListenForInvalidation(ctx, "", func(ver int64) {
		logger.Info("inventory cache version updated", slog.Int64("version", ver))
	}); err != nil {
		logger.Warn("listen for cache invalidation", slog.Any("error", err))
	}

	var pdf analytichttp.PDFService
	exporter := export.NewPDFExporter(cfg.GotenbergURL, export.NewFormatter(export.ParseLocale(cfg.ReportLocale)))
	if exporter.Enabled() {
		pdf = exporter
		inv.Readiness["gotenberg"] = exporter.Ping
	} else {
		logger.Info("pdf export disabled")
	}

	analyticsHandler := analytichttp.NewHandler(logger, inv.Service, pdf).WithTimeout(cfg.AppRequestTimeout)

	var jobHandler *jobs.Handler
	if inv.Redis != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("asynq inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AnalyticsHandler: analyticsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
		Readiness:        inv.Readiness,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
