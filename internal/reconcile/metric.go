package reconcile

import "strings"

// Metric names a numeric column of the inventory view.
type Metric string

const (
	MetricRevenue           Metric = "revenue"
	MetricProfit            Metric = "profit"
	MetricQuantitySold      Metric = "quantity_sold_total"
	MetricQuantityPurchased Metric = "quantity_purchased_total"
	MetricLiveStock         Metric = "live_stock"
	MetricInitialStock      Metric = "initial_stock"
	MetricStockValue        Metric = "stock_value"
	MetricPotentialRevenue  Metric = "potential_revenue"
	MetricProfitMargin      Metric = "profit_margin"
)

var metrics = []Metric{
	MetricRevenue,
	MetricProfit,
	MetricQuantitySold,
	MetricQuantityPurchased,
	MetricLiveStock,
	MetricInitialStock,
	MetricStockValue,
	MetricPotentialRevenue,
	MetricProfitMargin,
}

// Metrics lists every metric accepted by the view queries.
func Metrics() []Metric {
	out := make([]Metric, len(metrics))
	copy(out, metrics)
	return out
}

// aliases are the source column names of the quantity metrics.
var aliases = map[Metric]Metric{
	"quantity_sold":      MetricQuantitySold,
	"quantity_purchased": MetricQuantityPurchased,
}

// ParseMetric resolves a metric name, case-insensitively. The source column
// names quantity_sold and quantity_purchased are accepted as well.
func ParseMetric(name string) (Metric, error) {
	key := Metric(strings.ToLower(strings.TrimSpace(name)))
	if m, ok := aliases[key]; ok {
		return m, nil
	}
	for _, m := range metrics {
		if m == key {
			return m, nil
		}
	}
	return "", unknownMetric(name)
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	for _, known := range metrics {
		if known == m {
			return true
		}
	}
	return false
}
