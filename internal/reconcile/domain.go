// Package reconcile turns product, purchase, and sales snapshots into a single
// inventory view with derived stock, revenue, and profit metrics.
//
// Every function in this package is pure: inputs are never mutated and no state
// survives between calls, so concurrent runs over different snapshots need no
// coordination.
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table names a source table of a snapshot.
type Table string

const (
	TableProducts  Table = "products"
	TablePurchases Table = "purchases"
	TableSales     Table = "sales"
)

// UnknownLabel replaces a missing product name, category, or vendor.
const UnknownLabel = "unknown"

// RawProduct is a product row exactly as a store delivered it.
type RawProduct struct {
	ProductID string `json:"product_id"`
	Name      string `json:"product_name"`
	Category  string `json:"category"`
	Variation string `json:"variation,omitempty"`
	Stock     string `json:"stock"`
}

// RawPurchase is a purchase row exactly as a store delivered it.
type RawPurchase struct {
	PurchaseID    string `json:"purchase_id,omitempty"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name,omitempty"`
	Category      string `json:"category,omitempty"`
	Vendor        string `json:"vendor_name"`
	OrderDate     string `json:"order_date"`
	Quantity      string `json:"quantity_purchased"`
	CostPrice     string `json:"cost_price"`
	DueDate       string `json:"payment_due_date"`
	PaymentStatus string `json:"payment_status"`
}

// RawSale is a sales row exactly as a store delivered it.
type RawSale struct {
	SaleID        string `json:"sale_id"`
	ProductID     string `json:"product_id"`
	SellingPrice  string `json:"selling_price"`
	Quantity      string `json:"quantity_sold"`
	SaleDate      string `json:"sales_date"`
	ShippedStatus string `json:"shipped_status"`
	PaymentStatus string `json:"payment_status"`
}

// Snapshot groups the three raw tables read together for one run.
type Snapshot struct {
	Products  []RawProduct  `json:"products"`
	Purchases []RawPurchase `json:"purchases"`
	Sales     []RawSale     `json:"sales"`
}

// Empty reports whether the snapshot holds no rows at all.
func (s Snapshot) Empty() bool {
	return len(s.Products) == 0 && len(s.Purchases) == 0 && len(s.Sales) == 0
}

// PaymentStatus is the settlement state of a purchase or sale.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentOverdue PaymentStatus = "Overdue"
)

// Product is a normalized product master row.
type Product struct {
	ID           string `json:"product_id"`
	Name         string `json:"product_name"`
	Category     string `json:"category"`
	Variation    string `json:"variation,omitempty"`
	InitialStock int64  `json:"initial_stock"`
}

// Purchase is a normalized purchase line. A zero OrderDate or DueDate means the
// date was missing or unparseable.
type Purchase struct {
	PurchaseID    string          `json:"purchase_id,omitempty"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	Category      string          `json:"category,omitempty"`
	Vendor        string          `json:"vendor_name"`
	Quantity      int64           `json:"quantity_purchased"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	OrderDate     time.Time       `json:"order_date"`
	DueDate       time.Time       `json:"payment_due_date"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// Spend is quantity times cost price.
func (p Purchase) Spend() decimal.Decimal {
	return p.CostPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// Sale is a normalized sales line. A zero SaleDate means the date was missing
// or unparseable.
type Sale struct {
	ID            string          `json:"sale_id"`
	ProductID     string          `json:"product_id"`
	Quantity      int64           `json:"quantity_sold"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	SaleDate      time.Time       `json:"sales_date"`
	ShippedStatus string          `json:"shipped_status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// Revenue is quantity times selling price.
func (s Sale) Revenue() decimal.Decimal {
	return s.SellingPrice.Mul(decimal.NewFromInt(s.Quantity))
}

// Dataset is the typed form of a Snapshot.
type Dataset struct {
	Products  []Product
	Purchases []Purchase
	Sales     []Sale
}

// Row is one product line of the inventory view.
type Row struct {
	ProductID              string          `json:"product_id"`
	Name                   string          `json:"product_name"`
	Category               string          `json:"category"`
	Variation              string          `json:"variation,omitempty"`
	Listed                 bool            `json:"listed"`
	InitialStock           int64           `json:"initial_stock"`
	QuantityPurchasedTotal int64           `json:"quantity_purchased_total"`
	CostPriceAvg           decimal.Decimal `json:"cost_price_avg"`
	QuantitySoldTotal      int64           `json:"quantity_sold_total"`
	SellingPriceAvg        decimal.Decimal `json:"selling_price_avg"`
	LiveStock              int64           `json:"live_stock"`
	StockValue             decimal.Decimal `json:"stock_value"`
	Revenue                decimal.Decimal `json:"revenue"`
	PotentialRevenue       decimal.Decimal `json:"potential_revenue"`
	ProfitMargin           decimal.Decimal `json:"profit_margin"`
	Profit                 decimal.Decimal `json:"profit"`
}

// Value returns the row's value for a metric.
func (r Row) Value(m Metric) (decimal.Decimal, error) {
	switch m {
	case MetricRevenue:
		return r.Revenue, nil
	case MetricProfit:
		return r.Profit, nil
	case MetricQuantitySold:
		return decimal.NewFromInt(r.QuantitySoldTotal), nil
	case MetricQuantityPurchased:
		return decimal.NewFromInt(r.QuantityPurchasedTotal), nil
	case MetricLiveStock:
		return decimal.NewFromInt(r.LiveStock), nil
	case MetricInitialStock:
		return decimal.NewFromInt(r.InitialStock), nil
	case MetricStockValue:
		return r.StockValue, nil
	case MetricPotentialRevenue:
		return r.PotentialRevenue, nil
	case MetricProfitMargin:
		return r.ProfitMargin, nil
	default:
		return decimal.Zero, unknownMetric(string(m))
	}
}
