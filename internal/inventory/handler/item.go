package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/service"
	"github.com/pawsuite/pawsuite-backend/pkg/httputil"
	"github.com/pawsuite/pawsuite-backend/pkg/logger"
)

// ItemHandler serves the item catalog endpoints
type ItemHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(svc *service.Service, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: svc,
		logger:  log,
	}
}

// RegisterRoutes registers the item catalog routes
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{itemID}", h.Get)
		r.Put("/{itemID}", h.Update)
		r.Post("/{itemID}/hide", h.Hide)
		r.Post("/{itemID}/activate", h.Activate)
		r.Delete("/{itemID}", h.Archive)
	})
}

// BatchRequest carries batch fields in item and batch payloads
type BatchRequest struct {
	BatchNumber           *string    `json:"batch_number"`
	LotNumber             *string    `json:"lot_number"`
	RegulatoryTrackingID  *string    `json:"regulatory_tracking_id"`
	ManufactureDate       *time.Time `json:"manufacture_date"`
	ExpiryDate            *time.Time `json:"expiry_date"`
	MinShelfLifeAlertDate *time.Time `json:"min_shelf_life_alert_date"`
	Quantity              int        `json:"quantity" validate:"gte=0"`
}

func (b BatchRequest) toInput() service.BatchInput {
	return service.BatchInput{
		BatchNumber:           b.BatchNumber,
		LotNumber:             b.LotNumber,
		RegulatoryTrackingID:  b.RegulatoryTrackingID,
		ManufactureDate:       b.ManufactureDate,
		ExpiryDate:            b.ExpiryDate,
		MinShelfLifeAlertDate: b.MinShelfLifeAlertDate,
		Quantity:              b.Quantity,
	}
}

// CreateItemRequest is the payload for item creation
type CreateItemRequest struct {
	Name              string                `json:"name" validate:"required,min=1,max=255"`
	BusinessType      string                `json:"business_type" validate:"omitempty,oneof=HOSPITAL GROOMING BOARDING BREEDING GENERAL"`
	Category          string                `json:"category" validate:"required,min=1,max=100"`
	SubCategory       *string               `json:"sub_category"`
	SKU               *string               `json:"sku"`
	Description       *string               `json:"description"`
	Attributes        repository.Attributes `json:"attributes"`
	UnitCostCents     int                   `json:"unit_cost_cents" validate:"gte=0"`
	SellingPriceCents int                   `json:"selling_price_cents" validate:"gte=0"`
	Currency          string                `json:"currency" validate:"omitempty,len=3"`
	ReorderLevel      *int                  `json:"reorder_level" validate:"omitempty,gte=0"`
	VendorID          *string               `json:"vendor_id" validate:"omitempty,uuid"`
	InitialBatches    []BatchRequest        `json:"initial_batches" validate:"omitempty,dive"`
}

// UpdateItemRequest is the payload for item updates
type UpdateItemRequest struct {
	Name              string                `json:"name" validate:"required,min=1,max=255"`
	BusinessType      string                `json:"business_type" validate:"omitempty,oneof=HOSPITAL GROOMING BOARDING BREEDING GENERAL"`
	Category          string                `json:"category" validate:"required,min=1,max=100"`
	SubCategory       *string               `json:"sub_category"`
	SKU               *string               `json:"sku"`
	Description       *string               `json:"description"`
	Attributes        repository.Attributes `json:"attributes"`
	UnitCostCents     int                   `json:"unit_cost_cents" validate:"gte=0"`
	SellingPriceCents int                   `json:"selling_price_cents" validate:"gte=0"`
	Currency          string                `json:"currency" validate:"omitempty,len=3"`
	ReorderLevel      *int                  `json:"reorder_level" validate:"omitempty,gte=0"`
	VendorID          *string               `json:"vendor_id" validate:"omitempty,uuid"`
}

// Create handles POST /items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	input := service.CreateItemInput{
		Name:              req.Name,
		BusinessType:      req.BusinessType,
		Category:          req.Category,
		SubCategory:       req.SubCategory,
		SKU:               req.SKU,
		Description:       req.Description,
		Attributes:        req.Attributes,
		UnitCostCents:     req.UnitCostCents,
		SellingPriceCents: req.SellingPriceCents,
		Currency:          req.Currency,
		ReorderLevel:      req.ReorderLevel,
		VendorID:          req.VendorID,
	}
	for _, b := range req.InitialBatches {
		input.InitialBatches = append(input.InitialBatches, b.toInput())
	}

	item, err := h.service.CreateItem(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, item)
}

// List handles GET /items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	filter := service.ListFilter{
		ItemFilter: repository.ItemFilter{
			BusinessType: q.Get("business_type"),
			Category:     q.Get("category"),
			SubCategory:  q.Get("sub_category"),
			Search:       q.Get("search"),
			Page:         page,
			PerPage:      perPage,
		},
		LowStockOnly: q.Get("low_stock_only") == "true",
		ExpiredOnly:  q.Get("expired_only") == "true",
	}

	if statuses := q.Get("status"); statuses != "" {
		filter.Statuses = strings.Split(statuses, ",")
	}
	if days, err := strconv.Atoi(q.Get("expiring_within_days")); err == nil && days > 0 {
		filter.ExpiringWithinDays = days
	}

	items, total, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, items, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get handles GET /items/{itemID}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	detail, err := h.service.GetItemWithBatches(r.Context(), itemID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, detail)
}

// Update handles PUT /items/{itemID}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req UpdateItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.UpdateItem(r.Context(), itemID, service.UpdateItemInput{
		Name:              req.Name,
		BusinessType:      req.BusinessType,
		Category:          req.Category,
		SubCategory:       req.SubCategory,
		SKU:               req.SKU,
		Description:       req.Description,
		Attributes:        req.Attributes,
		UnitCostCents:     req.UnitCostCents,
		SellingPriceCents: req.SellingPriceCents,
		Currency:          req.Currency,
		ReorderLevel:      req.ReorderLevel,
		VendorID:          req.VendorID,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Hide handles POST /items/{itemID}/hide
func (h *ItemHandler) Hide(w http.ResponseWriter, r *http.Request) {
	if err := h.service.HideItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Activate handles POST /items/{itemID}/activate
func (h *ItemHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ActivateItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Archive handles DELETE /items/{itemID}
func (h *ItemHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ArchiveItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
