package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/service"
	"github.com/pawsuite/pawsuite-backend/pkg/httputil"
	"github.com/pawsuite/pawsuite-backend/pkg/logger"
)

// StockHandler serves the stock mutation endpoints: consume, adjust,
// allocate and release.
type StockHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.Service, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  log,
	}
}

// RegisterRoutes registers the stock mutation routes
func (h *StockHandler) RegisterRoutes(r chi.Router) {
	r.Route("/items/{itemID}/stock", func(r chi.Router) {
		r.Post("/consume", h.Consume)
		r.Post("/adjust", h.Adjust)
		r.Post("/allocate", h.Allocate)
		r.Post("/release", h.Release)
	})

	r.Post("/stock/consume-bulk", h.BulkConsume)
}

// ConsumeRequest is the payload for single-item consumption
type ConsumeRequest struct {
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	Reason      string  `json:"reason" validate:"omitempty,oneof=APPOINTMENT_USAGE MANUAL_ADJUSTMENT GROOMING_USAGE BOARDING_USAGE PURCHASE OTHER"`
	ReferenceID *string `json:"reference_id" validate:"omitempty,uuid"`
}

// BulkConsumeItem is one entry of a bulk consumption request
type BulkConsumeItem struct {
	ItemID      string  `json:"item_id" validate:"required,uuid"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	Reason      string  `json:"reason" validate:"omitempty,oneof=APPOINTMENT_USAGE MANUAL_ADJUSTMENT GROOMING_USAGE BOARDING_USAGE PURCHASE OTHER"`
	ReferenceID *string `json:"reference_id" validate:"omitempty,uuid"`
}

// BulkConsumeRequest is the payload for bulk consumption
type BulkConsumeRequest struct {
	Items []BulkConsumeItem `json:"items" validate:"required,min=1,dive"`
}

// AdjustRequest is the payload for a manual stock correction
type AdjustRequest struct {
	NewOnHand *int   `json:"new_on_hand" validate:"required,gte=0"`
	Reason    string `json:"reason" validate:"omitempty,oneof=APPOINTMENT_USAGE MANUAL_ADJUSTMENT GROOMING_USAGE BOARDING_USAGE PURCHASE OTHER"`
}

// AllocationRequest is the payload for allocate and release
type AllocationRequest struct {
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	ReferenceID *string `json:"reference_id" validate:"omitempty,uuid"`
}

// Consume handles POST /items/{itemID}/stock/consume
func (h *StockHandler) Consume(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req ConsumeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.Consume(r.Context(), service.ConsumeInput{
		ItemID:      itemID,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// BulkConsume handles POST /stock/consume-bulk.
// Items are processed sequentially without a cross-item transaction, so the
// response reports a per-item outcome rather than one overall result.
func (h *StockHandler) BulkConsume(w http.ResponseWriter, r *http.Request) {
	var req BulkConsumeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	inputs := make([]service.ConsumeInput, 0, len(req.Items))
	for _, item := range req.Items {
		inputs = append(inputs, service.ConsumeInput{
			ItemID:      item.ItemID,
			Quantity:    item.Quantity,
			Reason:      item.Reason,
			ReferenceID: item.ReferenceID,
		})
	}

	outcomes := h.service.BulkConsume(r.Context(), inputs)

	// 207-style: the request itself succeeded, individual items may not have
	httputil.JSON(w, http.StatusOK, outcomes)
}

// Adjust handles POST /items/{itemID}/stock/adjust
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req AdjustRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.AdjustStock(r.Context(), service.AdjustInput{
		ItemID:    itemID,
		NewOnHand: *req.NewOnHand,
		Reason:    req.Reason,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Allocate handles POST /items/{itemID}/stock/allocate
func (h *StockHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req AllocationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.Allocate(r.Context(), service.AllocationInput{
		ItemID:      itemID,
		Quantity:    req.Quantity,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Release handles POST /items/{itemID}/stock/release
func (h *StockHandler) Release(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req AllocationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.Release(r.Context(), service.AllocationInput{
		ItemID:      itemID,
		Quantity:    req.Quantity,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}
