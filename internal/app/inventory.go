package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/retail-insights/internal/analytics"
	"github.com/odyssey-erp/retail-insights/internal/platform/cache"
	"github.com/odyssey-erp/retail-insights/internal/platform/db"
	"github.com/odyssey-erp/retail-insights/internal/store/csvfile"
	mysqlstore "github.com/odyssey-erp/retail-insights/internal/store/mysql"
	pgstore "github.com/odyssey-erp/retail-insights/internal/store/postgres"
)

const applicationName = "retailops"

// Inventory bundles the reconciliation service with the handles behind it.
type Inventory struct {
	Service   *analytics.Service
	Cache     *analytics.Cache
	Redis     *redis.Client
	Readiness map[string]ReadinessCheck
	closers   []func()
}

// OpenInventory connects the configured store and the Redis cache. A cache
// that cannot be reached degrades to uncached reads.
func OpenInventory(ctx context.Context, cfg *Config, logger *slog.Logger) (*Inventory, error) {
	inv := &Inventory{Readiness: make(map[string]ReadinessCheck)}
	repo, err := inv.openStore(ctx, cfg, logger)
	if err != nil {
		inv.Close()
		return nil, err
	}

	client, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, snapshot cache disabled", slog.Any("error", err))
		client = nil
	} else {
		inv.Redis = client
		inv.Readiness["cache"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		inv.closers = append(inv.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		})
	}

	opts, err := cfg.ReportOptions()
	if err != nil {
		inv.Close()
		return nil, err
	}
	inv.Cache = analytics.NewCache(client, cfg.CacheTTL)
	inv.Service = analytics.NewService(repo, inv.Cache, opts, logger)
	return inv, nil
}

func (inv *Inventory) openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (analytics.Repository, error) {
	switch cfg.StoreDriver {
	case DriverPostgres:
		pool, err := db.NewPostgres(ctx, cfg.PGDSN, applicationName)
		if err != nil {
			return nil, err
		}
		inv.closers = append(inv.closers, pool.Close)
		inv.Readiness["store"] = pool.Ping
		return pgstore.New(pool), nil
	case DriverMySQL:
		handle, err := db.OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		inv.closers = append(inv.closers, func() {
			if err := handle.Close(); err != nil {
				logger.Warn("mysql close", slog.Any("error", err))
			}
		})
		inv.Readiness["store"] = handle.PingContext
		return mysqlstore.New(handle, logger), nil
	case DriverCSV:
		return csvfile.New(cfg.CSVDir), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// Close releases every handle in reverse order of opening.
func (inv *Inventory) Close() {
	if inv == nil {
		return
	}
	for i := len(inv.closers) - 1; i >= 0; i-- {
		inv.closers[i]()
	}
	inv.closers = nil
}
