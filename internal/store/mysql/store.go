// Package mysql reads inventory snapshots from a MySQL schema.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

const (
	productsSQL = `SELECT
	COALESCE(CAST(product_id AS CHAR), ''),
	COALESCE(CAST(product_name AS CHAR), ''),
	COALESCE(CAST(category AS CHAR), ''),
	COALESCE(CAST(variation AS CHAR), ''),
	COALESCE(CAST(stock AS CHAR), '')
FROM product
ORDER BY product_id`

	purchasesSQL = `SELECT
	COALESCE(CAST(purchase_id AS CHAR), ''),
	COALESCE(CAST(product_id AS CHAR), ''),
	COALESCE(CAST(product_name AS CHAR), ''),
	COALESCE(CAST(category AS CHAR), ''),
	COALESCE(CAST(vendor_name AS CHAR), ''),
	COALESCE(CAST(order_date AS CHAR), ''),
	COALESCE(CAST(quantity_purchased AS CHAR), ''),
	COALESCE(CAST(cost_price AS CHAR), ''),
	COALESCE(CAST(payment_due_date AS CHAR), ''),
	COALESCE(CAST(payment_status AS CHAR), '')
FROM purchases
ORDER BY purchase_id, product_id`

	salesSQL = `SELECT
	COALESCE(CAST(sale_id AS CHAR), ''),
	COALESCE(CAST(product_id AS CHAR), ''),
	COALESCE(CAST(selling_price AS CHAR), ''),
	COALESCE(CAST(quantity_sold AS CHAR), ''),
	COALESCE(CAST(sales_date AS CHAR), ''),
	COALESCE(CAST(shipped_status AS CHAR), ''),
	COALESCE(CAST(payment_status AS CHAR), '')
FROM sales
ORDER BY sale_id`
)

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// Store reads snapshot tables over database/sql.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	backoff time.Duration
}

// New constructs a Store. A nil logger discards retry logs.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{db: db, logger: logger, backoff: retryBackoff}
}

// ListProducts reads every product row.
func (s *Store) ListProducts(ctx context.Context) ([]reconcile.RawProduct, error) {
	var out []reconcile.RawProduct
	err := s.query(ctx, "product", productsSQL, func(rows *sql.Rows) error {
		var p reconcile.RawProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Category, &p.Variation, &p.Stock); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}, func() { out = out[:0] })
	return out, err
}

// ListPurchases reads every purchase line.
func (s *Store) ListPurchases(ctx context.Context) ([]reconcile.RawPurchase, error) {
	var out []reconcile.RawPurchase
	err := s.query(ctx, "purchases", purchasesSQL, func(rows *sql.Rows) error {
		var p reconcile.RawPurchase
		if err := rows.Scan(&p.PurchaseID, &p.ProductID, &p.ProductName, &p.Category, &p.Vendor,
			&p.OrderDate, &p.Quantity, &p.CostPrice, &p.DueDate, &p.PaymentStatus); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}, func() { out = out[:0] })
	return out, err
}

// ListSales reads every sales line.
func (s *Store) ListSales(ctx context.Context) ([]reconcile.RawSale, error) {
	var out []reconcile.RawSale
	err := s.query(ctx, "sales", salesSQL, func(rows *sql.Rows) error {
		var sale reconcile.RawSale
		if err := rows.Scan(&sale.SaleID, &sale.ProductID, &sale.SellingPrice, &sale.Quantity,
			&sale.SaleDate, &sale.ShippedStatus, &sale.PaymentStatus); err != nil {
			return err
		}
		out = append(out, sale)
		return nil
	}, func() { out = out[:0] })
	return out, err
}

// query runs sql, retrying transient server errors. reset clears partial
// results before each retry.
func (s *Store) query(ctx context.Context, table, query string, scan func(*sql.Rows) error, reset func()) error {
	if s == nil || s.db == nil {
		return errors.New("store/mysql: not configured")
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reset()
		err = s.queryOnce(ctx, query, scan)
		if err == nil {
			return nil
		}
		if !isTransientError(err) || attempt == maxAttempts {
			break
		}
		s.logger.Warn("mysql query failed, retrying",
			slog.String("table", table),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("store/mysql: read %s: %w", table, err)
}

func (s *Store) queryOnce(ctx context.Context, query string, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// isTransientError reports whether err is a MySQL error worth retrying.
func isTransientError(err error) bool {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var driverErr *mysql.MySQLError
	if !errors.As(err, &driverErr) {
		return false
	}
	switch driverErr.Number {
	case 1040, // too many connections
		1205, // lock wait timeout
		1213, // deadlock
		2003, // can't connect
		2006, // server gone away
		2013: // lost connection during query
		return true
	}
	return false
}
