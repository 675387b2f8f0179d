// Package csvfile reads inventory snapshots from a directory of CSV exports
// named products.csv, purchases.csv, and sales.csv.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

// File names expected inside the snapshot directory.
const (
	ProductsFile  = "products.csv"
	PurchasesFile = "purchases.csv"
	SalesFile     = "sales.csv"
)

// Store serves snapshot tables from CSV files. A missing file reads as an
// empty table.
type Store struct {
	fsys fs.FS
}

// New opens a store over dir.
func New(dir string) *Store {
	return &Store{fsys: os.DirFS(dir)}
}

// NewFS opens a store over an arbitrary filesystem.
func NewFS(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// ListProducts reads products.csv.
func (s *Store) ListProducts(ctx context.Context) ([]reconcile.RawProduct, error) {
	var out []reconcile.RawProduct
	err := s.read(ctx, ProductsFile, reconcile.TableProducts, func(r record) {
		out = append(out, reconcile.RawProduct{
			ProductID: r.get("product_id"),
			Name:      r.get("product_name", "name"),
			Category:  r.get("category"),
			Variation: r.get("variation"),
			Stock:     r.get("stock", "initial_stock"),
		})
	})
	return out, err
}

// ListPurchases reads purchases.csv.
func (s *Store) ListPurchases(ctx context.Context) ([]reconcile.RawPurchase, error) {
	var out []reconcile.RawPurchase
	err := s.read(ctx, PurchasesFile, reconcile.TablePurchases, func(r record) {
		out = append(out, reconcile.RawPurchase{
			PurchaseID:    r.get("purchase_id"),
			ProductID:     r.get("product_id"),
			ProductName:   r.get("product_name"),
			Category:      r.get("category"),
			Vendor:        r.get("vendor_name", "vendor"),
			OrderDate:     r.get("order_date"),
			Quantity:      r.get("quantity_purchased"),
			CostPrice:     r.get("cost_price"),
			DueDate:       r.get("payment_due_date", "due_date"),
			PaymentStatus: r.get("payment_status"),
		})
	})
	return out, err
}

// ListSales reads sales.csv.
func (s *Store) ListSales(ctx context.Context) ([]reconcile.RawSale, error) {
	var out []reconcile.RawSale
	err := s.read(ctx, SalesFile, reconcile.TableSales, func(r record) {
		out = append(out, reconcile.RawSale{
			SaleID:        r.get("sale_id"),
			ProductID:     r.get("product_id"),
			SellingPrice:  r.get("selling_price"),
			Quantity:      r.get("quantity_sold"),
			SaleDate:      r.get("sales_date", "sale_date"),
			ShippedStatus: r.get("shipped_status"),
			PaymentStatus: r.get("payment_status"),
		})
	})
	return out, err
}

// Snapshot reads all three files.
func (s *Store) Snapshot(ctx context.Context) (reconcile.Snapshot, error) {
	var snap reconcile.Snapshot
	var err error
	if snap.Products, err = s.ListProducts(ctx); err != nil {
		return reconcile.Snapshot{}, err
	}
	if snap.Purchases, err = s.ListPurchases(ctx); err != nil {
		return reconcile.Snapshot{}, err
	}
	if snap.Sales, err = s.ListSales(ctx); err != nil {
		return reconcile.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) read(ctx context.Context, name string, table reconcile.Table, emit func(record)) error {
	if s == nil || s.fsys == nil {
		return errors.New("store/csvfile: not configured")
	}
	f, err := s.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store/csvfile: open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()
	if err := decode(ctx, f, table, emit); err != nil {
		return fmt.Errorf("store/csvfile: %s: %w", name, err)
	}
	return nil
}

// decode streams the rows of one CSV table after checking its header.
func decode(ctx context.Context, r io.Reader, table reconcile.Table, emit func(record)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if err := reconcile.ValidateColumns(table, header); err != nil {
		return err
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := columns[key]; !dup {
			columns[key] = i
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if blank(fields) {
			continue
		}
		emit(record{columns: columns, fields: fields})
	}
}

type record struct {
	columns map[string]int
	fields  []string
}

// get returns the first present column among names.
func (r record) get(names ...string) string {
	for _, name := range names {
		pos, ok := r.columns[name]
		if !ok {
			continue
		}
		if pos < len(r.fields) {
			return r.fields[pos]
		}
		return ""
	}
	return ""
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
