package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity selects the period a trend is bucketed into.
type Granularity string

const (
	GranularityMonth Granularity = "month"
	GranularityWeek  Granularity = "week"
)

// PeriodKey formats t as a sortable period key: YYYY-MM for months and
// YYYY-Www (ISO week) for weeks.
func PeriodKey(t time.Time, g Granularity) string {
	t = t.UTC()
	if g == GranularityWeek {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
	return t.Format("2006-01")
}

// PurchaseAggregate is the per-product rollup of purchase lines.
type PurchaseAggregate struct {
	ProductID              string          `json:"product_id"`
	QuantityPurchasedTotal int64           `json:"quantity_purchased_total"`
	CostPriceAvg           decimal.Decimal `json:"cost_price_avg"`
	Lines                  int             `json:"lines"`
}

// SalesAggregate is the per-product rollup of sales lines.
type SalesAggregate struct {
	ProductID         string          `json:"product_id"`
	QuantitySoldTotal int64           `json:"quantity_sold_total"`
	SellingPriceAvg   decimal.Decimal `json:"selling_price_avg"`
	Lines             int             `json:"lines"`
}

type rollup struct {
	id       string
	quantity int64
	priceSum decimal.Decimal
	lines    int
}

func (r rollup) mean() decimal.Decimal {
	if r.lines == 0 {
		return decimal.Zero
	}
	return r.priceSum.Div(decimal.NewFromInt(int64(r.lines)))
}

type rollups struct {
	order []*rollup
	byID  map[string]*rollup
}

func newRollups(size int) *rollups {
	return &rollups{byID: make(map[string]*rollup, size)}
}

func (r *rollups) add(id string, quantity int64, price decimal.Decimal) {
	entry, ok := r.byID[id]
	if !ok {
		entry = &rollup{id: id}
		r.byID[id] = entry
		r.order = append(r.order, entry)
	}
	entry.quantity += quantity
	entry.priceSum = entry.priceSum.Add(price)
	entry.lines++
}

// AggregatePurchases sums quantities and takes the unweighted mean cost price
// per product, in first-seen order.
func AggregatePurchases(purchases []Purchase) []PurchaseAggregate {
	acc := newRollups(len(purchases))
	for _, p := range purchases {
		acc.add(p.ProductID, p.Quantity, p.CostPrice)
	}
	out := make([]PurchaseAggregate, 0, len(acc.order))
	for _, r := range acc.order {
		out = append(out, PurchaseAggregate{
			ProductID:              r.id,
			QuantityPurchasedTotal: r.quantity,
			CostPriceAvg:           r.mean(),
			Lines:                  r.lines,
		})
	}
	return out
}

// AggregateSales sums quantities and takes the unweighted mean selling price
// per product, in first-seen order.
func AggregateSales(sales []Sale) []SalesAggregate {
	acc := newRollups(len(sales))
	for _, s := range sales {
		acc.add(s.ProductID, s.Quantity, s.SellingPrice)
	}
	out := make([]SalesAggregate, 0, len(acc.order))
	for _, r := range acc.order {
		out = append(out, SalesAggregate{
			ProductID:         r.id,
			QuantitySoldTotal: r.quantity,
			SellingPriceAvg:   r.mean(),
			Lines:             r.lines,
		})
	}
	return out
}

// CostIndex maps product identifiers to their mean cost price.
func CostIndex(aggs []PurchaseAggregate) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(aggs))
	for _, a := range aggs {
		out[a.ProductID] = a.CostPriceAvg
	}
	return out
}

// TrendPoint is one period of the sales trend.
type TrendPoint struct {
	Period       string          `json:"period"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	Profit       decimal.Decimal `json:"profit"`
}

// SalesTrend buckets dated sales by period. Revenue is the sum of per-line
// quantity times price; profit subtracts the product's mean cost price, which
// is 0 for products never purchased. Undated lines are skipped.
func SalesTrend(sales []Sale, costs map[string]decimal.Decimal, g Granularity) []TrendPoint {
	buckets := make(map[string]*TrendPoint)
	for _, s := range sales {
		if s.SaleDate.IsZero() {
			continue
		}
		key := PeriodKey(s.SaleDate, g)
		point, ok := buckets[key]
		if !ok {
			point = &TrendPoint{Period: key}
			buckets[key] = point
		}
		qty := decimal.NewFromInt(s.Quantity)
		point.QuantitySold += s.Quantity
		point.Revenue = point.Revenue.Add(qty.Mul(s.SellingPrice))
		point.Profit = point.Profit.Add(qty.Mul(s.SellingPrice.Sub(costs[s.ProductID])))
	}
	out := make([]TrendPoint, 0, len(buckets))
	for _, p := range buckets {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// PurchaseTrendPoint is one period of purchase volume.
type PurchaseTrendPoint struct {
	Period            string          `json:"period"`
	QuantityPurchased int64           `json:"quantity_purchased"`
	Spend             decimal.Decimal `json:"spend"`
}

// PurchaseTrend buckets dated purchases by order period.
func PurchaseTrend(purchases []Purchase, g Granularity) []PurchaseTrendPoint {
	buckets := make(map[string]*PurchaseTrendPoint)
	for _, p := range purchases {
		if p.OrderDate.IsZero() {
			continue
		}
		key := PeriodKey(p.OrderDate, g)
		point, ok := buckets[key]
		if !ok {
			point = &PurchaseTrendPoint{Period: key}
			buckets[key] = point
		}
		point.QuantityPurchased += p.Quantity
		point.Spend = point.Spend.Add(p.Spend())
	}
	out := make([]PurchaseTrendPoint, 0, len(buckets))
	for _, p := range buckets {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
