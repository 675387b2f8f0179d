package reconcile

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Rows returns a copy of every row in view order.
func (v *View) Rows() []Row {
	if v == nil {
		return []Row{}
	}
	out := make([]Row, len(v.rows))
	copy(out, v.rows)
	return out
}

// Len is the number of rows.
func (v *View) Len() int {
	if v == nil {
		return 0
	}
	return len(v.rows)
}

// Lookup finds the row for an identifier, normalizing it first.
func (v *View) Lookup(id string) (Row, bool) {
	if v == nil {
		return Row{}, false
	}
	pos, ok := v.index[NormalizeID(id)]
	if !ok {
		return Row{}, false
	}
	return v.rows[pos], true
}

// LowStock returns rows whose live stock is strictly below threshold, in view
// order.
func (v *View) LowStock(threshold int64) ([]Row, error) {
	if threshold < 0 {
		return nil, invalidArgument("low stock threshold %d is negative", threshold)
	}
	out := []Row{}
	if v == nil {
		return out, nil
	}
	for _, r := range v.rows {
		if r.LiveStock < threshold {
			out = append(out, r)
		}
	}
	return out, nil
}

// TopBy returns up to n rows with the highest metric value. Ties keep view
// order.
func (v *View) TopBy(m Metric, n int) ([]Row, error) {
	if !m.Valid() {
		return nil, unknownMetric(string(m))
	}
	if n <= 0 {
		return nil, invalidArgument("top n must be positive, got %d", n)
	}
	rows := v.Rows()
	values := make([]decimal.Decimal, len(rows))
	for i, r := range rows {
		values[i], _ = r.Value(m)
	}
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]].GreaterThan(values[order[b]])
	})
	if n > len(order) {
		n = len(order)
	}
	out := make([]Row, 0, n)
	for _, pos := range order[:n] {
		out = append(out, rows[pos])
	}
	return out, nil
}

// CategoryTotal is one bucket of a category breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
	Products int             `json:"products"`
}

// GroupByCategory sums a metric per category. Buckets are sorted by name with
// the unknown bucket last, and always sum to the metric's grand total.
func (v *View) GroupByCategory(m Metric) ([]CategoryTotal, error) {
	if !m.Valid() {
		return nil, unknownMetric(string(m))
	}
	out := []CategoryTotal{}
	if v == nil {
		return out, nil
	}
	buckets := make(map[string]*CategoryTotal)
	for _, r := range v.rows {
		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = UnknownLabel
		}
		bucket, ok := buckets[category]
		if !ok {
			bucket = &CategoryTotal{Category: category}
			buckets[category] = bucket
		}
		value, _ := r.Value(m)
		bucket.Value = bucket.Value.Add(value)
		bucket.Products++
	}
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Category, out[j].Category
		if (a == UnknownLabel) != (b == UnknownLabel) {
			return b == UnknownLabel
		}
		return a < b
	})
	return out, nil
}

// Total sums a metric across every row.
func (v *View) Total(m Metric) (decimal.Decimal, error) {
	if !m.Valid() {
		return decimal.Zero, unknownMetric(string(m))
	}
	total := decimal.Zero
	if v == nil {
		return total, nil
	}
	for _, r := range v.rows {
		value, _ := r.Value(m)
		total = total.Add(value)
	}
	return total, nil
}

// Totals holds the headline KPIs of a view.
type Totals struct {
	Products         int             `json:"products"`
	ListedProducts   int             `json:"listed_products"`
	LiveStock        int64           `json:"live_stock"`
	UnitsPurchased   int64           `json:"units_purchased"`
	UnitsSold        int64           `json:"units_sold"`
	Revenue          decimal.Decimal `json:"revenue"`
	Profit           decimal.Decimal `json:"profit"`
	StockValue       decimal.Decimal `json:"stock_value"`
	PotentialRevenue decimal.Decimal `json:"potential_revenue"`
	NegativeStock    int             `json:"negative_stock"`
}

// Totals computes the KPI scalars. An empty view yields zeros.
func (v *View) Totals() Totals {
	var t Totals
	if v == nil {
		return t
	}
	for _, r := range v.rows {
		t.Products++
		if r.Listed {
			t.ListedProducts++
		}
		t.LiveStock += r.LiveStock
		t.UnitsPurchased += r.QuantityPurchasedTotal
		t.UnitsSold += r.QuantitySoldTotal
		t.Revenue = t.Revenue.Add(r.Revenue)
		t.Profit = t.Profit.Add(r.Profit)
		t.StockValue = t.StockValue.Add(r.StockValue)
		t.PotentialRevenue = t.PotentialRevenue.Add(r.PotentialRevenue)
		if r.LiveStock < 0 {
			t.NegativeStock++
		}
	}
	return t
}

// RowFilter narrows a view. Empty fields match everything; values are compared
// case-insensitively.
type RowFilter struct {
	Categories []string
	Variations []string
}

// Filter returns a new view holding the matching rows.
func (v *View) Filter(f RowFilter) *View {
	categories := stringSet(f.Categories)
	variations := stringSet(f.Variations)
	var rows []Row
	for _, r := range v.Rows() {
		if !matches(categories, r.Category) || !matches(variations, r.Variation) {
			continue
		}
		rows = append(rows, r)
	}
	return newView(rows)
}

func stringSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func matches(set map[string]struct{}, value string) bool {
	if set == nil {
		return true
	}
	_, ok := set[strings.ToLower(strings.TrimSpace(value))]
	return ok
}
