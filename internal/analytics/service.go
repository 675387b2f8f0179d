// Package analytics fetches inventory snapshots from a store, caches them in
// Redis, and runs the reconciliation over them for the HTTP, job, and CLI
// surfaces.
package analytics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

// Repository reads the three raw tables of a snapshot.
type Repository interface {
	ListProducts(ctx context.Context) ([]reconcile.RawProduct, error)
	ListPurchases(ctx context.Context) ([]reconcile.RawPurchase, error)
	ListSales(ctx context.Context) ([]reconcile.RawSale, error)
}

// SnapshotReader is implemented by repositories that can read all tables
// consistently in one unit. The service prefers it over three separate reads.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (reconcile.Snapshot, error)
}

// Recorder observes reconciliation passes.
type Recorder interface {
	ObserveReconcile(rows int, issues map[reconcile.IssueKind]int, elapsed time.Duration)
}

// Service coordinates snapshot loading with the cache layer.
type Service struct {
	repo     Repository
	cache    *Cache
	opts     reconcile.Options
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// NewService wires a Repository with a Cache helper and default options.
func NewService(repo Repository, cache *Cache, opts reconcile.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, cache: cache, opts: opts, logger: logger, now: time.Now}
}

// WithRecorder attaches a metrics recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// WithNow overrides the clock used for payment alerts.
func (s *Service) WithNow(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Options returns the configured defaults.
func (s *Service) Options() reconcile.Options {
	return s.opts
}

// Now returns the service clock in UTC.
func (s *Service) Now() time.Time {
	return s.now().UTC()
}

// Snapshot returns the current snapshot, served from cache when possible.
func (s *Service) Snapshot(ctx context.Context) (reconcile.Snapshot, error) {
	key, err := s.cache.BuildKey(ctx, keySnapshot()...)
	if err != nil {
		return reconcile.Snapshot{}, fmt.Errorf("analytics: cache key: %w", err)
	}
	var snap reconcile.Snapshot
	err = s.cache.FetchJSON(ctx, key, &snap, func(ctx context.Context) (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return reconcile.Snapshot{}, err
	}
	return snap, nil
}

func (s *Service) load(ctx context.Context) (reconcile.Snapshot, error) {
	if s.repo == nil {
		return reconcile.Snapshot{}, fmt.Errorf("analytics: repository not configured")
	}
	if reader, ok := s.repo.(SnapshotReader); ok {
		snap, err := reader.Snapshot(ctx)
		if err != nil {
			return reconcile.Snapshot{}, fmt.Errorf("analytics: read snapshot: %w", err)
		}
		return snap, nil
	}

	var snap reconcile.Snapshot
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		rows, err := s.repo.ListProducts(gctx)
		if err != nil {
			return fmt.Errorf("analytics: list products: %w", err)
		}
		snap.Products = rows
		return nil
	})
	group.Go(func() error {
		rows, err := s.repo.ListPurchases(gctx)
		if err != nil {
			return fmt.Errorf("analytics: list purchases: %w", err)
		}
		snap.Purchases = rows
		return nil
	})
	group.Go(func() error {
		rows, err := s.repo.ListSales(gctx)
		if err != nil {
			return fmt.Errorf("analytics: list sales: %w", err)
		}
		snap.Sales = rows
		return nil
	})
	if err := group.Wait(); err != nil {
		return reconcile.Snapshot{}, err
	}
	return snap, nil
}

// Reconcile runs one pass over the current snapshot with opts.
func (s *Service) Reconcile(ctx context.Context, opts reconcile.Options) (*reconcile.Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := reconcile.Run(snap, opts)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	counts := res.IssueCounts()
	s.observe(res.View.Len(), len(res.Issues), counts, elapsed)
	return res, nil
}

func (s *Service) observe(rows, issues int, counts map[reconcile.IssueKind]int, elapsed time.Duration) {
	if s.recorder != nil {
		s.recorder.ObserveReconcile(rows, counts, elapsed)
	}
	attrs := []any{
		slog.Int("rows", rows),
		slog.Int("issues", issues),
		slog.Duration("elapsed", elapsed),
	}
	if issues == 0 {
		s.logger.Debug("inventory reconciled", attrs...)
		return
	}
	for kind, n := range counts {
		attrs = append(attrs, slog.Int(string(kind), n))
	}
	s.logger.Warn("inventory reconciled with data issues", attrs...)
}

// Invalidate drops every cached snapshot.
func (s *Service) Invalidate(ctx context.Context) (int64, error) {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return ver, fmt.Errorf("analytics: bump cache: %w", err)
	}
	s.logger.Info("inventory cache invalidated", slog.Int64("version", ver))
	return ver, nil
}

// Refresh invalidates the cache and loads a fresh snapshot into it.
func (s *Service) Refresh(ctx context.Context) (reconcile.Snapshot, error) {
	if _, err := s.Invalidate(ctx); err != nil {
		return reconcile.Snapshot{}, err
	}
	return s.Snapshot(ctx)
}

// KPI reconciles the snapshot and summarizes it as of the service clock.
func (s *Service) KPI(ctx context.Context, opts reconcile.Options) (KPISummary, error) {
	res, err := s.Reconcile(ctx, opts)
	if err != nil {
		return KPISummary{}, err
	}
	return Summarize(res, s.Now())
}

// Alerts reconciles the snapshot and collects stock and payment alerts.
func (s *Service) Alerts(ctx context.Context, opts reconcile.Options) (AlertReport, error) {
	res, err := s.Reconcile(ctx, opts)
	if err != nil {
		return AlertReport{}, err
	}
	return BuildAlerts(res, s.Now())
}
