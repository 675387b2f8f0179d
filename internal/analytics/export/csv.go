// Package export writes inventory reports as CSV files and PDF documents.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/retail-insights/internal/analytics"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

var inventoryHeader = []string{
	"product_id", "product_name", "category", "variation", "listed",
	"initial_stock", "quantity_purchased_total", "cost_price_avg",
	"quantity_sold_total", "selling_price_avg", "live_stock",
	"stock_value", "revenue", "potential_revenue", "profit_margin", "profit",
}

// WriteInventoryCSV writes one line per inventory row.
func WriteInventoryCSV(w io.Writer, rows []reconcile.Row) error {
	return writeAll(w, inventoryHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.ProductID, r.Name, r.Category, r.Variation, strconv.FormatBool(r.Listed),
			itoa(r.InitialStock), itoa(r.QuantityPurchasedTotal), plain(r.CostPriceAvg),
			itoa(r.QuantitySoldTotal), plain(r.SellingPriceAvg), itoa(r.LiveStock),
			plain(r.StockValue), plain(r.Revenue), plain(r.PotentialRevenue),
			r.ProfitMargin.StringFixed(4), plain(r.Profit),
		}
	})
}

// WriteKPICSV serialises the KPI card as metric/value pairs.
func WriteKPICSV(w io.Writer, summary analytics.KPISummary) error {
	records := [][]string{
		{"as_of", isoDate(summary.AsOf)},
		{"products", strconv.Itoa(summary.Products)},
		{"listed_products", strconv.Itoa(summary.ListedProducts)},
		{"live_stock", itoa(summary.LiveStock)},
		{"units_purchased", itoa(summary.UnitsPurchased)},
		{"units_sold", itoa(summary.UnitsSold)},
		{"revenue", plain(summary.Revenue)},
		{"profit", plain(summary.Profit)},
		{"stock_value", plain(summary.StockValue)},
		{"potential_revenue", plain(summary.PotentialRevenue)},
		{"total_spend", plain(summary.Purchases.TotalSpend)},
		{"low_stock", strconv.Itoa(summary.LowStock)},
		{"negative_stock", strconv.Itoa(summary.NegativeStock)},
		{"pending_payments", strconv.Itoa(summary.PendingPayments)},
		{"overdue_payments", strconv.Itoa(summary.OverduePayments)},
		{"issues", strconv.Itoa(summary.Issues)},
	}
	return writeAll(w, []string{"metric", "value"}, len(records), func(i int) []string { return records[i] })
}

// WriteTrendCSV emits the sales trend.
func WriteTrendCSV(w io.Writer, points []reconcile.TrendPoint) error {
	return writeAll(w, []string{"period", "quantity_sold", "revenue", "profit"}, len(points), func(i int) []string {
		p := points[i]
		return []string{p.Period, itoa(p.QuantitySold), plain(p.Revenue), plain(p.Profit)}
	})
}

// WritePurchaseTrendCSV emits the purchase volume trend.
func WritePurchaseTrendCSV(w io.Writer, points []reconcile.PurchaseTrendPoint) error {
	return writeAll(w, []string{"period", "quantity_purchased", "spend"}, len(points), func(i int) []string {
		p := points[i]
		return []string{p.Period, itoa(p.QuantityPurchased), plain(p.Spend)}
	})
}

// WriteCategoriesCSV emits a per-category total of one metric.
func WriteCategoriesCSV(w io.Writer, metric reconcile.Metric, totals []reconcile.CategoryTotal) error {
	return writeAll(w, []string{"category", string(metric), "products"}, len(totals), func(i int) []string {
		c := totals[i]
		return []string{c.Category, plain(c.Value), strconv.Itoa(c.Products)}
	})
}

// WritePurchasesCSV emits purchase lines.
func WritePurchasesCSV(w io.Writer, purchases []reconcile.Purchase) error {
	header := []string{"purchase_id", "product_id", "vendor_name", "order_date", "quantity_purchased", "cost_price", "spend", "payment_due_date", "payment_status"}
	return writeAll(w, header, len(purchases), func(i int) []string {
		p := purchases[i]
		return []string{
			p.PurchaseID, p.ProductID, p.Vendor, isoDate(p.OrderDate), itoa(p.Quantity),
			plain(p.CostPrice), plain(p.Spend()), isoDate(p.DueDate), string(p.PaymentStatus),
		}
	})
}

// WriteSaleLinesCSV emits priced sale lines.
func WriteSaleLinesCSV(w io.Writer, lines []reconcile.SaleLine) error {
	header := []string{"sale_id", "product_id", "product_name", "sales_date", "quantity_sold", "selling_price", "revenue", "profit", "shipped_status", "payment_status"}
	return writeAll(w, header, len(lines), func(i int) []string {
		l := lines[i]
		return []string{
			l.SaleID, l.ProductID, l.ProductName, isoDate(l.SaleDate), itoa(l.Quantity),
			plain(l.SellingPrice), plain(l.Revenue), plain(l.Profit), l.ShippedStatus, string(l.PaymentStatus),
		}
	})
}

// WriteAlertsCSV flattens an alert report into kind/product lines.
func WriteAlertsCSV(w io.Writer, report analytics.AlertReport) error {
	var records [][]string
	for _, r := range report.LowStock {
		kind := "low_stock"
		if r.LiveStock < 0 {
			kind = "negative_stock"
		}
		records = append(records, []string{kind, r.ProductID, r.Name, itoa(r.LiveStock), "", ""})
	}
	for _, p := range report.Overdue {
		records = append(records, []string{"overdue_payment", p.ProductID, p.Vendor, itoa(p.Quantity), isoDate(p.DueDate), plain(p.Spend())})
	}
	header := []string{"kind", "product_id", "name_or_vendor", "quantity", "due_date", "amount"}
	return writeAll(w, header, len(records), func(i int) []string { return records[i] })
}

func writeAll(w io.Writer, header []string, n int, record func(int) []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := writer.Write(record(i)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
