package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregatePurchasesUsesUnweightedMean(t *testing.T) {
	aggs := AggregatePurchases([]Purchase{
		{ProductID: "B", Quantity: 1, CostPrice: decimal.NewFromInt(100)},
		{ProductID: "A", Quantity: 100, CostPrice: decimal.NewFromInt(1)},
		{ProductID: "A", Quantity: 1, CostPrice: decimal.NewFromInt(3)},
	})

	require.Len(t, aggs, 2)
	require.Equal(t, "B", aggs[0].ProductID, "first-seen order")
	require.EqualValues(t, 101, aggs[1].QuantityPurchasedTotal)
	requireDecimal(t, "2", aggs[1].CostPriceAvg)
	require.Equal(t, 2, aggs[1].Lines)
}

func TestAggregateSalesMeanReproducible(t *testing.T) {
	sales := []Sale{
		{ProductID: "A", Quantity: 2, SellingPrice: decimal.NewFromInt(10)},
		{ProductID: "A", Quantity: 4, SellingPrice: decimal.NewFromInt(20)},
		{ProductID: "A", Quantity: 1, SellingPrice: decimal.NewFromInt(30)},
	}
	aggs := AggregateSales(sales)
	require.Len(t, aggs, 1)
	requireDecimal(t, "20", aggs[0].SellingPriceAvg)
	require.EqualValues(t, 7, aggs[0].QuantitySoldTotal)
	require.True(t, aggs[0].SellingPriceAvg.Equal(AggregateSales(sales)[0].SellingPriceAvg))
}

func TestSalesTrendSumsLineRevenue(t *testing.T) {
	sales := []Sale{
		{ProductID: "A", Quantity: 3, SellingPrice: decimal.NewFromInt(10), SaleDate: date(2025, 1, 5)},
		{ProductID: "A", Quantity: 2, SellingPrice: decimal.NewFromInt(15), SaleDate: date(2025, 1, 28)},
		{ProductID: "B", Quantity: 1, SellingPrice: decimal.NewFromInt(8), SaleDate: date(2024, 12, 31)},
		{ProductID: "A", Quantity: 9, SellingPrice: decimal.NewFromInt(99)},
	}
	costs := map[string]decimal.Decimal{"A": decimal.NewFromInt(4)}

	points := SalesTrend(sales, costs, GranularityMonth)
	require.Len(t, points, 2)
	require.Equal(t, "2024-12", points[0].Period)
	requireDecimal(t, "8", points[0].Profit)
	require.Equal(t, "2025-01", points[1].Period)
	require.EqualValues(t, 5, points[1].QuantitySold)
	requireDecimal(t, "60", points[1].Revenue)
	requireDecimal(t, "40", points[1].Profit)
}

func TestSalesTrendWeekly(t *testing.T) {
	sales := []Sale{
		{ProductID: "A", Quantity: 1, SellingPrice: decimal.NewFromInt(1), SaleDate: date(2025, 1, 1)},
		{ProductID: "A", Quantity: 1, SellingPrice: decimal.NewFromInt(1), SaleDate: date(2024, 12, 30)},
		{ProductID: "A", Quantity: 1, SellingPrice: decimal.NewFromInt(1), SaleDate: date(2025, 1, 13)},
	}
	points := SalesTrend(sales, nil, GranularityWeek)
	require.Len(t, points, 2)
	require.Equal(t, "2025-W01", points[0].Period)
	require.EqualValues(t, 2, points[0].QuantitySold)
	require.Equal(t, "2025-W03", points[1].Period)
}

func TestPurchaseTrend(t *testing.T) {
	points := PurchaseTrend([]Purchase{
		{Quantity: 2, CostPrice: decimal.NewFromInt(5), OrderDate: date(2025, 2, 1)},
		{Quantity: 3, CostPrice: decimal.NewFromInt(5), OrderDate: date(2025, 2, 20)},
		{Quantity: 3, CostPrice: decimal.NewFromInt(5)},
	}, GranularityMonth)
	require.Len(t, points, 1)
	require.EqualValues(t, 5, points[0].QuantityPurchased)
	requireDecimal(t, "25", points[0].Spend)
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	opts := DefaultOptions()
	opts.LowStockThreshold = -1
	require.ErrorIs(t, opts.Validate(), ErrInvalidArgument)

	opts = DefaultOptions()
	opts.Granularity = "quarter"
	require.ErrorIs(t, opts.Validate(), ErrInvalidArgument)

	_, err := Run(Snapshot{}, Options{Granularity: GranularityMonth})
	require.ErrorIs(t, err, ErrInvalidArgument)

	g, err := ParseGranularity("WEEK")
	require.NoError(t, err)
	require.Equal(t, GranularityWeek, g)
}
