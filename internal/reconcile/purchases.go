package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseFilter narrows purchase lines. Empty criteria match everything. From
// and To are inclusive calendar days; when either is set, undated lines are
// excluded.
type PurchaseFilter struct {
	ProductIDs []string
	Vendors    []string
	Statuses   []PaymentStatus
	From       time.Time
	To         time.Time
}

// FilterPurchases returns the lines matching f, in input order.
func FilterPurchases(purchases []Purchase, f PurchaseFilter) []Purchase {
	ids := idSet(f.ProductIDs)
	vendors := stringSet(f.Vendors)
	statuses := statusSet(f.Statuses)
	out := []Purchase{}
	for _, p := range purchases {
		if ids != nil {
			if _, ok := ids[p.ProductID]; !ok {
				continue
			}
		}
		if !matches(vendors, p.Vendor) || !matches(statuses, string(p.PaymentStatus)) {
			continue
		}
		if !withinDays(p.OrderDate, f.From, f.To) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// PurchaseSummary holds the purchase KPIs.
type PurchaseSummary struct {
	Orders         int             `json:"orders"`
	UnitsPurchased int64           `json:"units_purchased"`
	TotalSpend     decimal.Decimal `json:"total_spend"`
	Vendors        int             `json:"vendors"`
}

// SummarizePurchases counts distinct orders and vendors and totals units and
// spend. Lines without a purchase id count as one order each.
func SummarizePurchases(purchases []Purchase) PurchaseSummary {
	var s PurchaseSummary
	orders := make(map[string]struct{})
	vendors := make(map[string]struct{})
	for _, p := range purchases {
		if p.PurchaseID == "" {
			s.Orders++
		} else if _, ok := orders[p.PurchaseID]; !ok {
			orders[p.PurchaseID] = struct{}{}
			s.Orders++
		}
		if p.Vendor != "" {
			vendors[strings.ToLower(p.Vendor)] = struct{}{}
		}
		s.UnitsPurchased += p.Quantity
		s.TotalSpend = s.TotalSpend.Add(p.Spend())
	}
	s.Vendors = len(vendors)
	return s
}

// PaymentAlertSet lists purchases needing attention. A line can be both
// pending and overdue.
type PaymentAlertSet struct {
	AsOf    time.Time  `json:"as_of"`
	Pending []Purchase `json:"pending"`
	Overdue []Purchase `json:"overdue"`
}

// IsOverdue reports whether p is marked overdue, or is unpaid with a known due
// date strictly before the UTC calendar day of asOf.
func IsOverdue(p Purchase, asOf time.Time) bool {
	if p.PaymentStatus == PaymentOverdue {
		return true
	}
	if p.PaymentStatus == PaymentPaid || p.DueDate.IsZero() {
		return false
	}
	return day(p.DueDate).Before(day(asOf))
}

// PaymentAlerts splits purchases into pending and overdue lists.
func PaymentAlerts(purchases []Purchase, asOf time.Time) PaymentAlertSet {
	set := PaymentAlertSet{AsOf: day(asOf), Pending: []Purchase{}, Overdue: []Purchase{}}
	for _, p := range purchases {
		if p.PaymentStatus == PaymentPending {
			set.Pending = append(set.Pending, p)
		}
		if IsOverdue(p, asOf) {
			set.Overdue = append(set.Overdue, p)
		}
	}
	return set
}

// VendorTotal is the purchase volume of one vendor.
type VendorTotal struct {
	Vendor   string          `json:"vendor"`
	Quantity int64           `json:"quantity"`
	Spend    decimal.Decimal `json:"spend"`
	Lines    int             `json:"lines"`
}

// VendorTotals groups purchases by vendor, largest quantity first and ties by
// vendor name.
func VendorTotals(purchases []Purchase) []VendorTotal {
	byVendor := make(map[string]*VendorTotal)
	for _, p := range purchases {
		vendor := p.Vendor
		if vendor == "" {
			vendor = UnknownLabel
		}
		entry, ok := byVendor[vendor]
		if !ok {
			entry = &VendorTotal{Vendor: vendor}
			byVendor[vendor] = entry
		}
		entry.Quantity += p.Quantity
		entry.Spend = entry.Spend.Add(p.Spend())
		entry.Lines++
	}
	out := make([]VendorTotal, 0, len(byVendor))
	for _, v := range byVendor {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Vendor < out[j].Vendor
	})
	return out
}

// ProductPurchase is the product-wise purchase summary line.
type ProductPurchase struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int64           `json:"quantity"`
	CostPriceAvg decimal.Decimal `json:"cost_price_avg"`
	Spend        decimal.Decimal `json:"spend"`
}

// ProductPurchases summarises purchases per product, largest quantity first and
// ties by product id.
func ProductPurchases(purchases []Purchase) []ProductPurchase {
	aggs := AggregatePurchases(purchases)
	spend := make(map[string]decimal.Decimal, len(aggs))
	for _, p := range purchases {
		spend[p.ProductID] = spend[p.ProductID].Add(p.Spend())
	}
	names := make(map[string]string, len(aggs))
	for _, l := range PurchaseLabels(purchases) {
		names[l.ProductID] = l.Name
	}
	out := make([]ProductPurchase, 0, len(aggs))
	for _, a := range aggs {
		name := names[a.ProductID]
		if name == "" {
			name = UnknownLabel
		}
		out = append(out, ProductPurchase{
			ProductID:    a.ProductID,
			ProductName:  name,
			Quantity:     a.QuantityPurchasedTotal,
			CostPriceAvg: a.CostPriceAvg,
			Spend:        spend[a.ProductID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func withinDays(t, from, to time.Time) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	d := day(t)
	if !from.IsZero() && d.Before(day(from)) {
		return false
	}
	if !to.IsZero() && d.After(day(to)) {
		return false
	}
	return true
}

func idSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if n := NormalizeID(id); n != "" {
			set[n] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func statusSet(statuses []PaymentStatus) map[string]struct{} {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	return stringSet(values)
}
