package reconcile

import (
	"github.com/shopspring/decimal"
)

// View is the composed inventory table. It is immutable once built; every
// query returns fresh slices.
type View struct {
	rows  []Row
	index map[string]int
}

// Compose full-outer-joins the product master with the purchase and sales
// aggregates. Every identifier from any input yields exactly one row, ordered
// by first appearance in products, then purchases, then sales. The optional
// labels name identifiers that are missing from products.
func Compose(products []Product, purchases []PurchaseAggregate, sales []SalesAggregate, labels ...Label) *View {
	v := &View{index: make(map[string]int, len(products))}
	fallback := make(map[string]Label, len(labels))
	for _, l := range labels {
		if _, ok := fallback[l.ProductID]; !ok {
			fallback[l.ProductID] = l
		}
	}

	for _, p := range products {
		if _, ok := v.index[p.ID]; ok {
			continue
		}
		v.add(Row{
			ProductID:    p.ID,
			Name:         p.Name,
			Category:     p.Category,
			Variation:    p.Variation,
			Listed:       true,
			InitialStock: p.InitialStock,
		})
	}
	for _, a := range purchases {
		row := v.ensure(a.ProductID)
		row.QuantityPurchasedTotal = a.QuantityPurchasedTotal
		row.CostPriceAvg = a.CostPriceAvg
	}
	for _, a := range sales {
		row := v.ensure(a.ProductID)
		row.QuantitySoldTotal = a.QuantitySoldTotal
		row.SellingPriceAvg = a.SellingPriceAvg
	}

	for i := range v.rows {
		row := &v.rows[i]
		if l, ok := fallback[row.ProductID]; ok && !row.Listed {
			if row.Name == "" {
				row.Name = l.Name
			}
			if row.Category == "" {
				row.Category = l.Category
			}
		}
		derive(row)
	}
	return v
}

// Label is a secondary source of product naming.
type Label struct {
	ProductID string
	Name      string
	Category  string
}

// PurchaseLabels collects the first non-empty name and category per product
// from purchase lines.
func PurchaseLabels(purchases []Purchase) []Label {
	byID := make(map[string]int)
	var out []Label
	for _, p := range purchases {
		pos, ok := byID[p.ProductID]
		if !ok {
			byID[p.ProductID] = len(out)
			out = append(out, Label{ProductID: p.ProductID, Name: p.ProductName, Category: p.Category})
			continue
		}
		if out[pos].Name == "" {
			out[pos].Name = p.ProductName
		}
		if out[pos].Category == "" {
			out[pos].Category = p.Category
		}
	}
	return out
}

func (v *View) add(row Row) {
	v.index[row.ProductID] = len(v.rows)
	v.rows = append(v.rows, row)
}

func (v *View) ensure(id string) *Row {
	if pos, ok := v.index[id]; ok {
		return &v.rows[pos]
	}
	v.add(Row{ProductID: id})
	return &v.rows[len(v.rows)-1]
}

// derive fills defaults and computes the dependent columns in order.
func derive(row *Row) {
	if row.Name == "" {
		row.Name = UnknownLabel
	}
	if row.Category == "" {
		row.Category = UnknownLabel
	}
	live := row.InitialStock + row.QuantityPurchasedTotal - row.QuantitySoldTotal
	row.LiveStock = live
	liveDec := decimal.NewFromInt(live)
	row.StockValue = liveDec.Mul(row.CostPriceAvg)
	row.PotentialRevenue = liveDec.Mul(row.SellingPriceAvg)
	row.Revenue = decimal.NewFromInt(row.QuantitySoldTotal).Mul(row.SellingPriceAvg)
	row.ProfitMargin = row.SellingPriceAvg.Sub(row.CostPriceAvg)
	row.Profit = decimal.NewFromInt(row.QuantitySoldTotal).Mul(row.ProfitMargin)
}

func newView(rows []Row) *View {
	v := &View{rows: rows, index: make(map[string]int, len(rows))}
	for i, r := range rows {
		v.index[r.ProductID] = i
	}
	return v
}
