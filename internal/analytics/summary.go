package analytics

import (
	"time"

	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

// KPISummary is the headline card of the inventory dashboard.
type KPISummary struct {
	reconcile.Totals
	Purchases       reconcile.PurchaseSummary `json:"purchases"`
	LowStock        int                       `json:"low_stock"`
	PendingPayments int                       `json:"pending_payments"`
	OverduePayments int                       `json:"overdue_payments"`
	Issues          int                       `json:"issues"`
	Threshold       int64                     `json:"low_stock_threshold"`
	AsOf            time.Time                 `json:"as_of"`
}

// Summarize builds the KPI card of a reconciliation result.
func Summarize(res *reconcile.Result, asOf time.Time) (KPISummary, error) {
	low, err := res.LowStock()
	if err != nil {
		return KPISummary{}, err
	}
	alerts := reconcile.PaymentAlerts(res.Dataset.Purchases, asOf)
	return KPISummary{
		Totals:          res.View.Totals(),
		Purchases:       reconcile.SummarizePurchases(res.Dataset.Purchases),
		LowStock:        len(low),
		PendingPayments: len(alerts.Pending),
		OverduePayments: len(alerts.Overdue),
		Issues:          len(res.Issues),
		Threshold:       res.Options.LowStockThreshold,
		AsOf:            alerts.AsOf,
	}, nil
}

// AlertReport lists every row and purchase an operator should look at.
type AlertReport struct {
	AsOf          time.Time            `json:"as_of"`
	Threshold     int64                `json:"low_stock_threshold"`
	LowStock      []reconcile.Row      `json:"low_stock"`
	NegativeStock []reconcile.Row      `json:"negative_stock"`
	Pending       []reconcile.Purchase `json:"pending"`
	Overdue       []reconcile.Purchase `json:"overdue"`
}

// Count is the total number of alert entries.
func (a AlertReport) Count() int {
	return len(a.LowStock) + len(a.NegativeStock) + len(a.Overdue)
}

// BuildAlerts collects low-stock rows, negative-stock rows, and payment alerts.
// Negative-stock rows are also low-stock rows.
func BuildAlerts(res *reconcile.Result, asOf time.Time) (AlertReport, error) {
	low, err := res.LowStock()
	if err != nil {
		return AlertReport{}, err
	}
	negative := make([]reconcile.Row, 0)
	for _, r := range low {
		if r.LiveStock < 0 {
			negative = append(negative, r)
		}
	}
	payments := reconcile.PaymentAlerts(res.Dataset.Purchases, asOf)
	return AlertReport{
		AsOf:          payments.AsOf,
		Threshold:     res.Options.LowStockThreshold,
		LowStock:      low,
		NegativeStock: negative,
		Pending:       payments.Pending,
		Overdue:       payments.Overdue,
	}, nil
}
