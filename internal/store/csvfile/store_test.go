package csvfile

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

func TestSnapshotReadsAllTables(t *testing.T) {
	fsys := fstest.MapFS{
		ProductsFile: {Data: []byte("\ufeffproduct_id,product_name,category,stock\nP1,Kopi,Beverage,10\n,,,\nP2,Teh,Beverage,\n")},
		PurchasesFile: {Data: []byte("product_id,product_name,category,vendor_name,order_date,quantity_purchased,cost_price,payment_due_date,payment_status\n" +
			"p1,Kopi,Beverage,Sumber Jaya,2025-01-02,5,9.5,2025-01-20,Pending\n")},
		SalesFile: {Data: []byte("sale_id,product_id,selling_price,quantity_sold,sales_date,shipped_status,payment_status\n" +
			"S1,P1,12,2,2025-01-05,Shipped,Paid\nS2,P2,8\n")},
	}

	snap, err := NewFS(fsys).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Products, 2)
	require.Equal(t, "Kopi", snap.Products[0].Name)
	require.Equal(t, "", snap.Products[1].Stock)

	require.Len(t, snap.Purchases, 1)
	require.Equal(t, "Sumber Jaya", snap.Purchases[0].Vendor)
	require.Equal(t, "2025-01-20", snap.Purchases[0].DueDate)

	require.Len(t, snap.Sales, 2)
	require.Equal(t, "Shipped", snap.Sales[0].ShippedStatus)
	require.Equal(t, "", snap.Sales[1].Quantity, "short rows read missing columns as empty")
}

func TestMissingFileIsEmptyTable(t *testing.T) {
	store := NewFS(fstest.MapFS{
		ProductsFile: {Data: []byte("product_id,stock\nA,1\n")},
	})
	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Products, 1)
	require.Empty(t, snap.Purchases)
	require.Empty(t, snap.Sales)
}

func TestMissingRequiredColumn(t *testing.T) {
	store := NewFS(fstest.MapFS{
		SalesFile: {Data: []byte("sale_id,product_id,selling_price\nS1,P1,3\n")},
	})
	_, err := store.ListSales(context.Background())
	require.ErrorIs(t, err, reconcile.ErrMissingColumn)
	require.Contains(t, err.Error(), "quantity_sold")
}

func TestEveryRequiredColumnIsEnforced(t *testing.T) {
	full := map[reconcile.Table]string{
		reconcile.TableProducts:  ProductsFile,
		reconcile.TablePurchases: PurchasesFile,
		reconcile.TableSales:     SalesFile,
	}
	for table, file := range full {
		for _, missing := range reconcile.RequiredColumns(table) {
			header := []string{"extra"}
			for _, col := range reconcile.RequiredColumns(table) {
				if col != missing {
					header = append(header, col)
				}
			}
			store := NewFS(fstest.MapFS{file: {Data: []byte(strings.Join(header, ",") + "\n")}})
			_, err := store.Snapshot(context.Background())
			var schemaErr *reconcile.SchemaError
			require.ErrorAs(t, err, &schemaErr, "%s without %s", table, missing)
			require.Equal(t, table, schemaErr.Table)
			require.Equal(t, missing, schemaErr.Field)
		}
	}
}

func TestAliasColumns(t *testing.T) {
	store := NewFS(fstest.MapFS{
		ProductsFile: {Data: []byte("Product_ID, Name ,Initial_Stock,Variation\nA,Sabun,4,Lemon\n")},
	})
	products, err := store.ListProducts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []reconcile.RawProduct{{ProductID: "A", Name: "Sabun", Stock: "4", Variation: "Lemon"}}, products)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewFS(fstest.MapFS{ProductsFile: {Data: []byte("product_id\nA\n")}})
	_, err := store.ListProducts(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
