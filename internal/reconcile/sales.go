package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleFilter narrows sales lines the same way PurchaseFilter does.
type SaleFilter struct {
	ProductIDs      []string
	ShippedStatuses []string
	PaymentStatuses []PaymentStatus
	From            time.Time
	To              time.Time
}

// FilterSales returns the lines matching f, in input order.
func FilterSales(sales []Sale, f SaleFilter) []Sale {
	ids := idSet(f.ProductIDs)
	shipped := stringSet(f.ShippedStatuses)
	payments := statusSet(f.PaymentStatuses)
	out := []Sale{}
	for _, s := range sales {
		if ids != nil {
			if _, ok := ids[s.ProductID]; !ok {
				continue
			}
		}
		if !matches(shipped, s.ShippedStatus) || !matches(payments, string(s.PaymentStatus)) {
			continue
		}
		if !withinDays(s.SaleDate, f.From, f.To) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SaleLine is a sales row with its line revenue and profit.
type SaleLine struct {
	SaleID        string          `json:"sale_id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int64           `json:"quantity"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	CostPriceAvg  decimal.Decimal `json:"cost_price_avg"`
	SaleDate      time.Time       `json:"sale_date"`
	ShippedStatus string          `json:"shipped_status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Revenue       decimal.Decimal `json:"revenue"`
	Profit        decimal.Decimal `json:"profit"`
}

// SaleLines prices every sale against the product's mean cost from the view.
func SaleLines(sales []Sale, v *View) []SaleLine {
	out := make([]SaleLine, 0, len(sales))
	for _, s := range sales {
		line := SaleLine{
			SaleID:        s.ID,
			ProductID:     s.ProductID,
			ProductName:   UnknownLabel,
			Quantity:      s.Quantity,
			SellingPrice:  s.SellingPrice,
			SaleDate:      s.SaleDate,
			ShippedStatus: s.ShippedStatus,
			PaymentStatus: s.PaymentStatus,
		}
		if row, ok := v.Lookup(s.ProductID); ok {
			line.ProductName = row.Name
			line.CostPriceAvg = row.CostPriceAvg
		}
		qty := decimal.NewFromInt(s.Quantity)
		line.Revenue = qty.Mul(s.SellingPrice)
		line.Profit = qty.Mul(s.SellingPrice.Sub(line.CostPriceAvg))
		out = append(out, line)
	}
	return out
}

// SalesSummary totals a set of sale lines.
type SalesSummary struct {
	Lines     int             `json:"lines"`
	UnitsSold int64           `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
	Profit    decimal.Decimal `json:"profit"`
}

// SummarizeSales totals priced sale lines.
func SummarizeSales(lines []SaleLine) SalesSummary {
	var s SalesSummary
	for _, l := range lines {
		s.Lines++
		s.UnitsSold += l.Quantity
		s.Revenue = s.Revenue.Add(l.Revenue)
		s.Profit = s.Profit.Add(l.Profit)
	}
	return s
}
