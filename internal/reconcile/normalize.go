package reconcile

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IssueKind classifies a recovered data problem.
type IssueKind string

const (
	IssueMalformedRecord IssueKind = "malformed_record"
	IssueUnparseableDate IssueKind = "unparseable_date"
	IssueDuplicateKey    IssueKind = "duplicate_key"
)

// Issue describes a row-level problem the loader recovered from. Row is the
// zero-based position of the row in its source table.
type Issue struct {
	Kind  IssueKind `json:"kind"`
	Table Table     `json:"table"`
	Row   int       `json:"row"`
	Field string    `json:"field"`
	Value string    `json:"value"`
}

var requiredColumns = map[Table][]string{
	TableProducts:  {"product_id"},
	TablePurchases: {"product_id", "quantity_purchased"},
	TableSales:     {"product_id", "quantity_sold"},
}

// RequiredColumns lists the columns a tabular source must carry for table.
func RequiredColumns(table Table) []string {
	cols := requiredColumns[table]
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// ValidateColumns checks a header row against the required columns of table.
// Header names are compared case-insensitively after trimming.
func ValidateColumns(table Table, header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	for _, col := range requiredColumns[table] {
		if _, ok := present[col]; !ok {
			return &SchemaError{Table: table, Field: col}
		}
	}
	return nil
}

// NormalizeID canonicalizes a product identifier for joining.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

var errUnparseableDate = errors.New("reconcile: unparseable date")

// ParseDate parses a date in any accepted layout and returns it in UTC. An empty
// value yields the zero time and no error.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errUnparseableDate
}

func parseQuantity(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, errors.New("reconcile: quantity is not integral")
	}
	return d.IntPart(), nil
}

func parsePrice(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

// ParsePaymentStatus matches a status case-insensitively. Unrecognized values
// are returned trimmed but otherwise untouched.
func ParsePaymentStatus(value string) PaymentStatus {
	value = strings.TrimSpace(value)
	for _, s := range []PaymentStatus{PaymentPending, PaymentPaid, PaymentOverdue} {
		if strings.EqualFold(value, string(s)) {
			return s
		}
	}
	return PaymentStatus(value)
}

type loader struct {
	issues []Issue
}

func (l *loader) report(kind IssueKind, table Table, row int, field, value string) {
	l.issues = append(l.issues, Issue{Kind: kind, Table: table, Row: row, Field: field, Value: value})
}

func (l *loader) quantity(table Table, row int, field, value string) int64 {
	n, err := parseQuantity(value)
	if err != nil {
		l.report(IssueMalformedRecord, table, row, field, value)
		return 0
	}
	return n
}

func (l *loader) price(table Table, row int, field, value string) decimal.Decimal {
	d, err := parsePrice(value)
	if err != nil {
		l.report(IssueMalformedRecord, table, row, field, value)
		return decimal.Zero
	}
	return d
}

func (l *loader) date(table Table, row int, field, value string) time.Time {
	t, err := ParseDate(value)
	if err != nil {
		l.report(IssueUnparseableDate, table, row, field, value)
		return time.Time{}
	}
	return t
}

func (l *loader) id(table Table, row int, value string) (string, bool) {
	id := NormalizeID(value)
	if id == "" {
		l.report(IssueMalformedRecord, table, row, "product_id", value)
		return "", false
	}
	return id, true
}

// Load coerces a raw snapshot into typed records. Data problems never abort the
// run: bad numbers become 0, bad dates become the zero time, and every such
// recovery is reported as an Issue. Rows without a product identifier cannot be
// joined and are dropped with a malformed_record issue.
func Load(snap Snapshot) (Dataset, []Issue) {
	l := &loader{}
	ds := Dataset{
		Products:  l.products(snap.Products),
		Purchases: l.purchases(snap.Purchases),
		Sales:     l.sales(snap.Sales),
	}
	return ds, l.issues
}

func (l *loader) products(rows []RawProduct) []Product {
	out := make([]Product, 0, len(rows))
	index := make(map[string]int, len(rows))
	stockMissing := make(map[string]bool)
	for i, raw := range rows {
		id, ok := l.id(TableProducts, i, raw.ProductID)
		if !ok {
			continue
		}
		p := Product{
			ID:           id,
			Name:         strings.TrimSpace(raw.Name),
			Category:     strings.TrimSpace(raw.Category),
			Variation:    strings.TrimSpace(raw.Variation),
			InitialStock: l.quantity(TableProducts, i, "stock", raw.Stock),
		}
		pos, seen := index[id]
		if !seen {
			index[id] = len(out)
			stockMissing[id] = strings.TrimSpace(raw.Stock) == ""
			out = append(out, p)
			continue
		}
		l.report(IssueDuplicateKey, TableProducts, i, "product_id", raw.ProductID)
		first := &out[pos]
		if first.Name == "" {
			first.Name = p.Name
		}
		if first.Category == "" {
			first.Category = p.Category
		}
		if first.Variation == "" {
			first.Variation = p.Variation
		}
		if stockMissing[id] && strings.TrimSpace(raw.Stock) != "" {
			first.InitialStock = p.InitialStock
			stockMissing[id] = false
		}
	}
	return out
}

func (l *loader) purchases(rows []RawPurchase) []Purchase {
	out := make([]Purchase, 0, len(rows))
	for i, raw := range rows {
		id, ok := l.id(TablePurchases, i, raw.ProductID)
		if !ok {
			continue
		}
		out = append(out, Purchase{
			PurchaseID:    strings.TrimSpace(raw.PurchaseID),
			ProductID:     id,
			ProductName:   strings.TrimSpace(raw.ProductName),
			Category:      strings.TrimSpace(raw.Category),
			Vendor:        strings.TrimSpace(raw.Vendor),
			Quantity:      l.quantity(TablePurchases, i, "quantity_purchased", raw.Quantity),
			CostPrice:     l.price(TablePurchases, i, "cost_price", raw.CostPrice),
			OrderDate:     l.date(TablePurchases, i, "order_date", raw.OrderDate),
			DueDate:       l.date(TablePurchases, i, "payment_due_date", raw.DueDate),
			PaymentStatus: ParsePaymentStatus(raw.PaymentStatus),
		})
	}
	return out
}

func (l *loader) sales(rows []RawSale) []Sale {
	out := make([]Sale, 0, len(rows))
	for i, raw := range rows {
		id, ok := l.id(TableSales, i, raw.ProductID)
		if !ok {
			continue
		}
		out = append(out, Sale{
			ID:            strings.TrimSpace(raw.SaleID),
			ProductID:     id,
			Quantity:      l.quantity(TableSales, i, "quantity_sold", raw.Quantity),
			SellingPrice:  l.price(TableSales, i, "selling_price", raw.SellingPrice),
			SaleDate:      l.date(TableSales, i, "sales_date", raw.SaleDate),
			ShippedStatus: strings.TrimSpace(raw.ShippedStatus),
			PaymentStatus: ParsePaymentStatus(raw.PaymentStatus),
		})
	}
	return out
}
