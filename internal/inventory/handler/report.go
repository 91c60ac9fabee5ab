package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/service"
	"github.com/pawsuite/pawsuite-backend/pkg/errors"
	"github.com/pawsuite/pawsuite-backend/pkg/httputil"
	"github.com/pawsuite/pawsuite-backend/pkg/logger"
)

// ReportHandler serves the read-only reporting endpoints: turnover,
// alerts, the dashboard summary and the movement audit trail.
type ReportHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.Service, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// RegisterRoutes registers the reporting routes
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/turnover", h.Turnover)
	r.Get("/reports/stock-summary", h.Summary)
	r.Get("/alerts/low-stock", h.LowStock)
	r.Get("/alerts/expiring", h.Expiring)
	r.Get("/items/{itemID}/movements", h.Movements)
}

// Turnover handles GET /reports/turnover
func (h *ReportHandler) Turnover(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rows, err := h.service.TurnoverByItem(r.Context(), from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// Summary handles GET /reports/stock-summary
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.StockSummary(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

// LowStock handles GET /alerts/low-stock
func (h *ReportHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStockItems(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, items)
}

// Expiring handles GET /alerts/expiring
func (h *ReportHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	withinDays, _ := strconv.Atoi(r.URL.Query().Get("within_days"))

	alerts, err := h.service.ExpiringBatches(r.Context(), withinDays)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alerts)
}

// Movements handles GET /items/{itemID}/movements
func (h *ReportHandler) Movements(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	q := r.URL.Query()

	from, err := parseDate(q.Get("from"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	movements, err := h.service.ListMovements(r.Context(), itemID, repository.MovementFilter{
		Reason: q.Get("reason"),
		From:   from,
		To:     to,
		Limit:  limit,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, movements)
}

// parseDate accepts YYYY-MM-DD or RFC 3339 timestamps
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}

	return nil, errors.BadRequest("invalid date: " + value)
}
