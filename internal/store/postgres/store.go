// Package postgres reads inventory snapshots from PostgreSQL tables.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/retail-insights/internal/platform/db"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

// Columns are read as text so the normalizer sees the same raw values a CSV
// export would carry.
const (
	productsSQL = `SELECT
	COALESCE(product_id::text, ''),
	COALESCE(product_name::text, ''),
	COALESCE(category::text, ''),
	COALESCE(variation::text, ''),
	COALESCE(stock::text, '')
FROM product
ORDER BY product_id`

	purchasesSQL = `SELECT
	COALESCE(purchase_id::text, ''),
	COALESCE(product_id::text, ''),
	COALESCE(product_name::text, ''),
	COALESCE(category::text, ''),
	COALESCE(vendor_name::text, ''),
	COALESCE(order_date::text, ''),
	COALESCE(quantity_purchased::text, ''),
	COALESCE(cost_price::text, ''),
	COALESCE(payment_due_date::text, ''),
	COALESCE(payment_status::text, '')
FROM purchases
ORDER BY purchase_id, product_id`

	salesSQL = `SELECT
	COALESCE(sale_id::text, ''),
	COALESCE(product_id::text, ''),
	COALESCE(selling_price::text, ''),
	COALESCE(quantity_sold::text, ''),
	COALESCE(sales_date::text, ''),
	COALESCE(shipped_status::text, ''),
	COALESCE(payment_status::text, '')
FROM sales
ORDER BY sale_id`
)

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Pool is a Querier that can also open the snapshot transaction.
type Pool interface {
	Querier
	db.TxBeginner
}

// Store reads the product, purchases, and sales tables.
type Store struct {
	pool Pool
}

// New constructs a Store over pool. *pgxpool.Pool satisfies Pool.
func New(pool Pool) *Store {
	return &Store{pool: pool}
}

// ListProducts reads every product row.
func (s *Store) ListProducts(ctx context.Context) ([]reconcile.RawProduct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return listProducts(ctx, s.pool)
}

// ListPurchases reads every purchase line.
func (s *Store) ListPurchases(ctx context.Context) ([]reconcile.RawPurchase, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return listPurchases(ctx, s.pool)
}

// ListSales reads every sales line.
func (s *Store) ListSales(ctx context.Context) ([]reconcile.RawSale, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return listSales(ctx, s.pool)
}

// Snapshot reads the three tables inside one read-only transaction so the
// result is consistent even while writers are active.
func (s *Store) Snapshot(ctx context.Context) (reconcile.Snapshot, error) {
	if err := s.ready(); err != nil {
		return reconcile.Snapshot{}, err
	}
	var snap reconcile.Snapshot
	err := db.WithSnapshotTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		if snap.Products, err = listProducts(ctx, tx); err != nil {
			return err
		}
		if snap.Purchases, err = listPurchases(ctx, tx); err != nil {
			return err
		}
		snap.Sales, err = listSales(ctx, tx)
		return err
	})
	if err != nil {
		return reconcile.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) ready() error {
	if s == nil || s.pool == nil {
		return errors.New("store/postgres: not configured")
	}
	return nil
}

func listProducts(ctx context.Context, q Querier) ([]reconcile.RawProduct, error) {
	return collect[reconcile.RawProduct](ctx, q, "product", productsSQL)
}

func listPurchases(ctx context.Context, q Querier) ([]reconcile.RawPurchase, error) {
	return collect[reconcile.RawPurchase](ctx, q, "purchases", purchasesSQL)
}

func listSales(ctx context.Context, q Querier) ([]reconcile.RawSale, error) {
	return collect[reconcile.RawSale](ctx, q, "sales", salesSQL)
}

func collect[T any](ctx context.Context, q Querier, table, sql string) ([]T, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: query %s: %w", table, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[T])
	if err != nil {
		return nil, fmt.Errorf("store/postgres: scan %s: %w", table, err)
	}
	return out, nil
}
