package analytichttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/retail-insights/internal/platform/httpx"
)

// exportLimit bounds export renders per client and minute.
const exportLimit = 10

// MountRoutes registers the inventory, sales, purchases, chart, and export
// endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded")
		}),
	)

	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", h.handleInventory)
		r.Get("/kpi", h.handleKPI)
		r.Get("/low-stock", h.handleLowStock)
		r.Get("/top", h.handleTop)
		r.Get("/categories", h.handleCategories)
		r.Get("/alerts", h.handleAlerts)
		r.Get("/issues", h.handleIssues)
		r.Post("/cache/invalidate", h.handleInvalidate)
		r.Get("/{productID}", h.handleProduct)
	})
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.handleSales)
		r.Get("/trend", h.handleSalesTrend)
	})
	r.Route("/purchases", func(r chi.Router) {
		r.Get("/", h.handlePurchases)
		r.Get("/trend", h.handlePurchaseTrend)
		r.Get("/alerts", h.handlePaymentAlerts)
	})
	r.Route("/charts", func(r chi.Router) {
		r.Get("/sales-trend.svg", h.handleTrendChart)
		r.Get("/top.svg", h.handleTopChart)
		r.Get("/categories.svg", h.handleCategoryChart)
		r.Get("/low-stock.svg", h.handleStockChart)
	})
	r.Route("/export", func(r chi.Router) {
		r.Use(limiter)
		for name := range csvExports {
			r.Get("/"+name+".csv", h.handleCSV(name))
		}
		r.Get("/report.pdf", h.handlePDF)
	})
}

// rateLimitKey keys exports by API client when one identifies itself, else
// by IP.
func rateLimitKey(r *http.Request) (string, error) {
	if client := strings.TrimSpace(r.Header.Get("X-Client-ID")); client != "" {
		return "client:" + client, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
