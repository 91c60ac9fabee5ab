package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/service"
	"github.com/pawsuite/pawsuite-backend/pkg/httputil"
	"github.com/pawsuite/pawsuite-backend/pkg/logger"
)

// BatchHandler serves the batch lifecycle endpoints
type BatchHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.Service, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		logger:  log,
	}
}

// RegisterRoutes registers the batch routes
func (h *BatchHandler) RegisterRoutes(r chi.Router) {
	r.Route("/items/{itemID}/batches", func(r chi.Router) {
		r.Post("/", h.Add)
		r.Get("/", h.List)
	})

	r.Route("/batches", func(r chi.Router) {
		r.Get("/{batchID}", h.Get)
		r.Put("/{batchID}", h.Update)
		r.Delete("/{batchID}", h.Delete)
	})
}

// Add handles POST /items/{itemID}/batches
func (h *BatchHandler) Add(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req BatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.AddBatch(r.Context(), itemID, req.toInput())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// List handles GET /items/{itemID}/batches
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.ListBatches(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Get handles GET /batches/{batchID}
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.GetBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Update handles PUT /batches/{batchID}
func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	var req BatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.UpdateBatch(r.Context(), batchID, req.toInput())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Delete handles DELETE /batches/{batchID}
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBatch(r.Context(), chi.URLParam(r, "batchID")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
