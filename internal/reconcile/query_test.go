package reconcile

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func stockView(stocks map[string]int64, order []string) *View {
	products := make([]Product, 0, len(order))
	for _, id := range order {
		products = append(products, Product{ID: id, Name: id, Category: "cat", InitialStock: stocks[id]})
	}
	return Compose(products, nil, nil)
}

func TestLowStockReturnsRowsBelowThreshold(t *testing.T) {
	view := stockView(map[string]int64{"A": 5, "B": 12, "C": 8}, []string{"A", "B", "C"})

	rows, err := view.LowStock(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "A", rows[0].ProductID)
	require.Equal(t, "C", rows[1].ProductID)

	rows, err = view.LowStock(0)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestLowStockRejectsNegativeThreshold(t *testing.T) {
	view := stockView(map[string]int64{"A": 1}, []string{"A"})
	_, err := view.LowStock(-1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTopByOrdersDescendingWithStableTies(t *testing.T) {
	view := stockView(map[string]int64{"A": 3, "B": 9, "C": 9, "D": 1}, []string{"A", "B", "C", "D"})

	rows, err := view.TopBy(MetricLiveStock, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"B", "C", "A"}, []string{rows[0].ProductID, rows[1].ProductID, rows[2].ProductID})

	rows, err = view.TopBy(MetricLiveStock, 50)
	require.NoError(t, err)
	require.Len(t, rows, 4)
}

func TestTopByRejectsUnknownMetricAndBadN(t *testing.T) {
	view := stockView(map[string]int64{"A": 3}, []string{"A"})

	_, err := view.TopBy(Metric("margin_pct"), 5)
	require.ErrorIs(t, err, ErrUnknownMetric)
	require.Contains(t, err.Error(), "margin_pct")

	_, err = view.TopBy(MetricRevenue, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGroupByCategoryKeepsUnknownBucket(t *testing.T) {
	res := runSample(t)

	buckets, err := res.View.GroupByCategory(MetricLiveStock)
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	require.Equal(t, "Beverage", buckets[0].Category)
	require.Equal(t, "Dairy", buckets[1].Category)
	require.Equal(t, UnknownLabel, buckets[2].Category)
	require.Equal(t, 2, buckets[2].Products)

	total, err := res.View.Total(MetricLiveStock)
	require.NoError(t, err)
	sum := buckets[0].Value.Add(buckets[1].Value).Add(buckets[2].Value)
	require.True(t, total.Equal(sum), "bucket sum %s != total %s", sum, total)
}

func TestGroupByCategorySumsMatchForEveryMetric(t *testing.T) {
	res := runSample(t)
	for _, m := range Metrics() {
		buckets, err := res.View.GroupByCategory(m)
		require.NoError(t, err)
		total, err := res.View.Total(m)
		require.NoError(t, err)
		sum := decimal.Zero
		for _, b := range buckets {
			sum = sum.Add(b.Value)
		}
		require.Truef(t, total.Equal(sum), "metric %s: %s != %s", m, sum, total)
	}
}

func TestGroupByCategoryUnknownMetric(t *testing.T) {
	res := runSample(t)
	_, err := res.View.GroupByCategory(Metric("nope"))
	require.True(t, errors.Is(err, ErrUnknownMetric))
}

func TestTotals(t *testing.T) {
	res := runSample(t)
	totals := res.View.Totals()

	require.Equal(t, 5, totals.Products)
	require.Equal(t, 3, totals.ListedProducts)
	require.EqualValues(t, 26, totals.UnitsPurchased)
	require.EqualValues(t, 9, totals.UnitsSold)
	require.EqualValues(t, 25+26-9, totals.LiveStock)
	require.Equal(t, 1, totals.NegativeStock)
	requireDecimal(t, "92.5", totals.Revenue)
	requireDecimal(t, "37.5", totals.Profit)
}

func TestFilterByCategoryAndVariation(t *testing.T) {
	view := Compose([]Product{
		{ID: "A", Category: "Snack", Variation: "Pedas"},
		{ID: "B", Category: "Snack", Variation: "Manis"},
		{ID: "C", Category: "Drink"},
	}, nil, nil)

	snacks := view.Filter(RowFilter{Categories: []string{"snack"}})
	require.Equal(t, 2, snacks.Len())

	spicy := view.Filter(RowFilter{Categories: []string{"Snack"}, Variations: []string{"pedas"}})
	require.Equal(t, 1, spicy.Len())
	row, ok := spicy.Lookup("a")
	require.True(t, ok)
	require.Equal(t, "Pedas", row.Variation)

	all := view.Filter(RowFilter{})
	require.Equal(t, 3, all.Len())
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" Revenue ")
	require.NoError(t, err)
	require.Equal(t, MetricRevenue, m)

	m, err = ParseMetric("QUANTITY_SOLD")
	require.NoError(t, err)
	require.Equal(t, MetricQuantitySold, m)

	_, err = ParseMetric("gross")
	require.ErrorIs(t, err, ErrUnknownMetric)
}
