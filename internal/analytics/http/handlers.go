// Package analytichttp exposes inventory reconciliation results over HTTP.
package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/odyssey-erp/retail-insights/internal/analytics/export"
	"github.com/odyssey-erp/retail-insights/internal/platform/httpx"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

const defaultRequestTimeout = 5 * time.Second

// InventoryService defines the reconciliation contract used by the handler.
type InventoryService interface {
	Options() reconcile.Options
	Now() time.Time
	Reconcile(ctx context.Context, opts reconcile.Options) (*reconcile.Result, error)
	Invalidate(ctx context.Context) (int64, error)
}

// PDFService renders report content to PDF bytes.
type PDFService interface {
	RenderReport(ctx context.Context, payload export.ReportPayload) ([]byte, error)
}

// Handler coordinates HTTP requests for the inventory views.
type Handler struct {
	logger  *slog.Logger
	service InventoryService
	pdf     PDFService
	csvPool sync.Pool
	timeout time.Duration
}

// NewHandler constructs the inventory HTTP handler. pdf may be nil.
func NewHandler(logger *slog.Logger, service InventoryService, pdf PDFService) *Handler {
	h := &Handler{
		logger:  logger,
		service: service,
		pdf:     pdf,
		timeout: defaultRequestTimeout,
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithTimeout overrides the per-request deadline.
func (h *Handler) WithTimeout(d time.Duration) *Handler {
	if d > 0 {
		h.timeout = d
	}
	return h
}

// run reconciles the current snapshot with the request's option overrides.
func (h *Handler) run(ctx context.Context, q query) (*reconcile.Result, error) {
	opts, err := q.options(h.service.Options())
	if err != nil {
		return nil, err
	}
	return h.service.Reconcile(ctx, opts)
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

// respondError maps core and export errors onto problem responses.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var vErr validationError
	switch {
	case errors.As(err, &vErr):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, vErr.Error()))
	case errors.Is(err, reconcile.ErrUnknownMetric), errors.Is(err, reconcile.ErrInvalidArgument):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, httpx.ErrNotFound):
		httpx.RespondError(w, err)
	case errors.Is(err, export.ErrExporterDisabled):
		httpx.RespondError(w, fmt.Errorf("%w: pdf export is not configured", httpx.ErrUnavailable))
	default:
		h.logError(op, err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) logError(op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}
