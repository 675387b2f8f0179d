package analytichttp

import (
	"net/http"

	"github.com/odyssey-erp/retail-insights/internal/platform/httpx"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

type salesResponse struct {
	Summary reconcile.SalesSummary `json:"summary"`
	Trend   []reconcile.TrendPoint `json:"trend"`
	Lines   []reconcile.SaleLine   `json:"lines"`
}

type purchasesResponse struct {
	Summary  reconcile.PurchaseSummary   `json:"summary"`
	Products []reconcile.ProductPurchase `json:"products"`
	Vendors  []reconcile.VendorTotal     `json:"vendors"`
	Lines    []reconcile.Purchase        `json:"lines"`
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse sales query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile sales", err)
		return
	}
	sales := reconcile.FilterSales(res.Dataset.Sales, q.saleFilter())
	lines := reconcile.SaleLines(sales, res.View)
	httpx.JSON(w, http.StatusOK, salesResponse{
		Summary: reconcile.SummarizeSales(lines),
		Trend:   res.TrendFor(sales),
		Lines:   lines,
	})
}

func (h *Handler) handleSalesTrend(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse trend query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile trend", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res.TrendFor(reconcile.FilterSales(res.Dataset.Sales, q.saleFilter())))
}

func (h *Handler) handlePurchases(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse purchases query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile purchases", err)
		return
	}
	purchases := reconcile.FilterPurchases(res.Dataset.Purchases, q.purchaseFilter())
	if purchases == nil {
		purchases = []reconcile.Purchase{}
	}
	httpx.JSON(w, http.StatusOK, purchasesResponse{
		Summary:  reconcile.SummarizePurchases(purchases),
		Products: reconcile.ProductPurchases(purchases),
		Vendors:  reconcile.VendorTotals(purchases),
		Lines:    purchases,
	})
}

func (h *Handler) handlePurchaseTrend(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse purchase trend query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile purchase trend", err)
		return
	}
	purchases := reconcile.FilterPurchases(res.Dataset.Purchases, q.purchaseFilter())
	httpx.JSON(w, http.StatusOK, reconcile.PurchaseTrend(purchases, res.Options.Granularity))
}

func (h *Handler) handlePaymentAlerts(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse payment alerts query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile payment alerts", err)
		return
	}
	purchases := reconcile.FilterPurchases(res.Dataset.Purchases, q.purchaseFilter())
	httpx.JSON(w, http.StatusOK, reconcile.PaymentAlerts(purchases, q.asOf(h.service.Now())))
}
