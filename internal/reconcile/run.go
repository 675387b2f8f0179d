package reconcile

// Result is one full reconciliation pass over a snapshot.
type Result struct {
	Options            Options
	Dataset            Dataset
	Issues             []Issue
	PurchaseAggregates []PurchaseAggregate
	SalesAggregates    []SalesAggregate
	View               *View
}

// Run loads, aggregates, and composes a snapshot. Only invalid options fail;
// data problems are reported through Result.Issues.
func Run(snap Snapshot, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ds, issues := Load(snap)
	purchases := AggregatePurchases(ds.Purchases)
	sales := AggregateSales(ds.Sales)
	return &Result{
		Options:            opts,
		Dataset:            ds,
		Issues:             issues,
		PurchaseAggregates: purchases,
		SalesAggregates:    sales,
		View:               Compose(ds.Products, purchases, sales, PurchaseLabels(ds.Purchases)...),
	}, nil
}

// LowStock applies the configured threshold.
func (r *Result) LowStock() ([]Row, error) {
	return r.View.LowStock(r.Options.LowStockThreshold)
}

// Top applies the configured top-N to a metric.
func (r *Result) Top(m Metric) ([]Row, error) {
	return r.View.TopBy(m, r.Options.TopN)
}

// Trend is the sales trend at the configured granularity.
func (r *Result) Trend() []TrendPoint {
	return SalesTrend(r.Dataset.Sales, CostIndex(r.PurchaseAggregates), r.Options.Granularity)
}

// TrendFor is the sales trend of a filtered subset of sales, priced against
// the full purchase history.
func (r *Result) TrendFor(sales []Sale) []TrendPoint {
	return SalesTrend(sales, CostIndex(r.PurchaseAggregates), r.Options.Granularity)
}

// PurchaseTrend is the purchase volume trend at the configured granularity.
func (r *Result) PurchaseTrend() []PurchaseTrendPoint {
	return PurchaseTrend(r.Dataset.Purchases, r.Options.Granularity)
}

// IssueCounts tallies issues per kind.
func (r *Result) IssueCounts() map[IssueKind]int {
	counts := make(map[IssueKind]int)
	for _, is := range r.Issues {
		counts[is.Kind]++
	}
	return counts
}
