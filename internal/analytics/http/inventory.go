package analytichttp

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-insights/internal/analytics"
	"github.com/odyssey-erp/retail-insights/internal/platform/httpx"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

type inventoryResponse struct {
	Rows   []reconcile.Row  `json:"rows"`
	Totals reconcile.Totals `json:"totals"`
}

type rowsResponse struct {
	Metric    reconcile.Metric `json:"metric,omitempty"`
	Threshold *int64           `json:"threshold,omitempty"`
	Rows      []reconcile.Row  `json:"rows"`
}

type categoriesResponse struct {
	Metric     reconcile.Metric          `json:"metric"`
	Total      decimal.Decimal           `json:"total"`
	Categories []reconcile.CategoryTotal `json:"categories"`
}

type issuesResponse struct {
	Counts map[reconcile.IssueKind]int `json:"counts"`
	Issues []reconcile.Issue           `json:"issues"`
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse inventory query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile inventory", err)
		return
	}
	view := res.View.Filter(q.rowFilter())
	httpx.JSON(w, http.StatusOK, inventoryResponse{Rows: view.Rows(), Totals: view.Totals()})
}

func (h *Handler) handleKPI(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse kpi query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile kpi", err)
		return
	}
	summary, err := analytics.Summarize(res, q.asOf(h.service.Now()))
	if err != nil {
		h.respondError(w, "summarize kpi", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse low stock query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile low stock", err)
		return
	}
	rows, err := res.View.Filter(q.rowFilter()).LowStock(res.Options.LowStockThreshold)
	if err != nil {
		h.respondError(w, "low stock", err)
		return
	}
	threshold := res.Options.LowStockThreshold
	httpx.JSON(w, http.StatusOK, rowsResponse{Threshold: &threshold, Rows: rows})
}

func (h *Handler) handleTop(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse top query", err)
		return
	}
	metric, err := q.metric()
	if err != nil {
		h.respondError(w, "parse metric", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile top", err)
		return
	}
	rows, err := res.View.Filter(q.rowFilter()).TopBy(metric, res.Options.TopN)
	if err != nil {
		h.respondError(w, "top by metric", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rowsResponse{Metric: metric, Rows: rows})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse categories query", err)
		return
	}
	metric, err := q.metric()
	if err != nil {
		h.respondError(w, "parse metric", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile categories", err)
		return
	}
	view := res.View.Filter(q.rowFilter())
	categories, err := view.GroupByCategory(metric)
	if err != nil {
		h.respondError(w, "group by category", err)
		return
	}
	total, err := view.Total(metric)
	if err != nil {
		h.respondError(w, "category total", err)
		return
	}
	httpx.JSON(w, http.StatusOK, categoriesResponse{Metric: metric, Total: total, Categories: categories})
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.respondError(w, "parse alerts query", err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, q)
	if err != nil {
		h.respondError(w, "reconcile alerts", err)
		return
	}
	report, err := analytics.BuildAlerts(res, q.asOf(h.service.Now()))
	if err != nil {
		h.respondError(w, "build alerts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleIssues(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, query{})
	if err != nil {
		h.respondError(w, "reconcile issues", err)
		return
	}
	issues := res.Issues
	if issues == nil {
		issues = []reconcile.Issue{}
	}
	httpx.JSON(w, http.StatusOK, issuesResponse{Counts: res.IssueCounts(), Issues: issues})
}

func (h *Handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.run(ctx, query{})
	if err != nil {
		h.respondError(w, "reconcile product", err)
		return
	}
	row, ok := res.View.Lookup(id)
	if !ok {
		h.respondError(w, "lookup product", fmt.Errorf("product %s: %w", reconcile.NormalizeID(id), httpx.ErrNotFound))
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	ver, err := h.service.Invalidate(ctx)
	if err != nil {
		h.respondError(w, "invalidate cache", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]int64{"version": ver})
}
