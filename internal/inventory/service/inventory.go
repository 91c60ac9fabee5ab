package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pawsuite/pawsuite-backend/internal/inventory/events"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
	"github.com/pawsuite/pawsuite-backend/pkg/actor"
	"github.com/pawsuite/pawsuite-backend/pkg/config"
	"github.com/pawsuite/pawsuite-backend/pkg/errors"
	"github.com/pawsuite/pawsuite-backend/pkg/logger"
	"github.com/pawsuite/pawsuite-backend/pkg/messaging"
)

// ItemStore is the item catalog persistence boundary
type ItemStore interface {
	Create(ctx context.Context, item *repository.InventoryItem) error
	GetByID(ctx context.Context, id string) (*repository.InventoryItem, error)
	List(ctx context.Context, filter repository.ItemFilter) ([]*repository.InventoryItem, int64, error)
	Update(ctx context.Context, item *repository.InventoryItem) error
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateAggregate(ctx context.Context, id string, onHand int, nearestExpiry *time.Time) (*repository.InventoryItem, error)
	UpdateAllocated(ctx context.Context, id string, allocated int) (*repository.InventoryItem, error)
	ListLowStock(ctx context.Context) ([]*repository.InventoryItem, error)
}

// BatchStore is the batch persistence boundary. ListByItem must return
// batches in consumption order: expiry ascending with undated batches last,
// then id.
type BatchStore interface {
	Create(ctx context.Context, batch *repository.InventoryBatch) error
	GetByID(ctx context.Context, id string) (*repository.InventoryBatch, error)
	ListByItem(ctx context.Context, itemID string) ([]*repository.InventoryBatch, error)
	Update(ctx context.Context, batch *repository.InventoryBatch) error
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	Delete(ctx context.Context, id string) error
	Aggregate(ctx context.Context, itemID string) (*repository.StockAggregate, error)
	SumQuantityCreatedBefore(ctx context.Context, itemID string, cutoff time.Time) (int, error)
	ListExpiring(ctx context.Context, withinDays int) ([]*repository.ExpiringBatch, error)
}

// MovementStore is the append-only ledger boundary
type MovementStore interface {
	Create(ctx context.Context, movement *repository.StockMovement) error
	CreateAll(ctx context.Context, movements []*repository.StockMovement) error
	ListByItem(ctx context.Context, itemID string, filter repository.MovementFilter) ([]*repository.StockMovement, error)
	SumPurchases(ctx context.Context, itemID string, from, to time.Time) (int, error)
}

// Service implements the stock ledger operations
type Service struct {
	items     ItemStore
	batches   BatchStore
	movements MovementStore
	events    *events.Publisher
	logger    *logger.Logger
	cfg       config.StockConfig
	locks     *itemLocks
	now       func() time.Time
}

// New creates a new inventory service
func New(items ItemStore, batches BatchStore, movements MovementStore, publisher *events.Publisher, cfg config.StockConfig, log *logger.Logger) *Service {
	return &Service{
		items:     items,
		batches:   batches,
		movements: movements,
		events:    publisher,
		logger:    log,
		cfg:       cfg,
		locks:     newItemLocks(),
		now:       time.Now,
	}
}

// Item is an inventory item enriched with its computed stock health
type Item struct {
	*repository.InventoryItem
	StockStatus string `json:"stock_status"`
}

// ItemDetail is an item together with its batches in consumption order
type ItemDetail struct {
	*Item
	Batches []*repository.InventoryBatch `json:"batches"`
}

// BatchInput carries batch fields for create and update operations
type BatchInput struct {
	BatchNumber           *string
	LotNumber             *string
	RegulatoryTrackingID  *string
	ManufactureDate       *time.Time
	ExpiryDate            *time.Time
	MinShelfLifeAlertDate *time.Time
	Quantity              int
}

// CreateItemInput carries the fields for item creation
type CreateItemInput struct {
	Name              string
	BusinessType      string
	Category          string
	SubCategory       *string
	SKU               *string
	Description       *string
	Attributes        repository.Attributes
	UnitCostCents     int
	SellingPriceCents int
	Currency          string
	ReorderLevel      *int
	VendorID          *string
	InitialBatches    []BatchInput
}

// UpdateItemInput carries the mutable catalog fields
type UpdateItemInput struct {
	Name              string
	BusinessType      string
	Category          string
	SubCategory       *string
	SKU               *string
	Description       *string
	Attributes        repository.Attributes
	UnitCostCents     int
	SellingPriceCents int
	Currency          string
	ReorderLevel      *int
	VendorID          *string
}

// ListFilter narrows item listings. The three derived filters are evaluated
// against each item's computed stock health after the database query.
type ListFilter struct {
	repository.ItemFilter
	LowStockOnly       bool
	ExpiredOnly        bool
	ExpiringWithinDays int
}

// enrich attaches the computed stock health to an item
func (s *Service) enrich(item *repository.InventoryItem) *Item {
	return &Item{
		InventoryItem: item,
		StockStatus:   ClassifyStock(item.OnHand, item.ReorderLevel, item.NearestExpiry, s.cfg.ExpiringSoonDays, s.now()),
	}
}

// CreateItem creates an inventory item, optionally with initial batches.
// Each initial batch records a PURCHASE movement so turnover analytics see
// the received stock.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (*Item, error) {
	if input.Name == "" {
		return nil, errors.Validation("name is required")
	}
	if input.Category == "" {
		return nil, errors.Validation("category is required")
	}
	if input.BusinessType == "" {
		input.BusinessType = repository.BusinessTypeGeneral
	}

	item := &repository.InventoryItem{
		Name:              input.Name,
		SKU:               input.SKU,
		Description:       input.Description,
		BusinessType:      input.BusinessType,
		Category:          input.Category,
		SubCategory:       input.SubCategory,
		Attributes:        input.Attributes,
		UnitCostCents:     input.UnitCostCents,
		SellingPriceCents: input.SellingPriceCents,
		Currency:          input.Currency,
		ReorderLevel:      input.ReorderLevel,
		VendorID:          input.VendorID,
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	for _, bi := range input.InitialBatches {
		if bi.Quantity < 0 {
			return nil, errors.Validation("batch quantity cannot be negative")
		}

		batch := batchFromInput(item.ID, bi)
		if err := s.batches.Create(ctx, batch); err != nil {
			return nil, err
		}

		if batch.Quantity > 0 {
			if err := s.recordMovement(ctx, &repository.StockMovement{
				ItemID:  item.ID,
				BatchID: &batch.ID,
				Change:  batch.Quantity,
				Reason:  repository.ReasonPurchase,
				UserID:  actor.UserID(ctx),
			}, item); err != nil {
				return nil, err
			}
		}
	}

	if len(input.InitialBatches) > 0 {
		updated, err := s.recomputeAggregate(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		item = updated
	}

	s.logger.Info().
		Str("item_id", item.ID).
		Str("category", item.Category).
		Int("on_hand", item.OnHand).
		Msg("inventory item created")

	return s.enrich(item), nil
}

// UpdateItem updates an item's catalog fields
func (s *Service) UpdateItem(ctx context.Context, itemID string, input UpdateItemInput) (*Item, error) {
	if input.Name == "" {
		return nil, errors.Validation("name is required")
	}
	if input.Category == "" {
		return nil, errors.Validation("category is required")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == repository.StatusDeleted {
		return nil, errors.NotFound("item")
	}

	item.Name = input.Name
	item.SKU = input.SKU
	item.Description = input.Description
	if input.BusinessType != "" {
		item.BusinessType = input.BusinessType
	}
	item.Category = input.Category
	item.SubCategory = input.SubCategory
	item.Attributes = input.Attributes
	item.UnitCostCents = input.UnitCostCents
	item.SellingPriceCents = input.SellingPriceCents
	if input.Currency != "" {
		item.Currency = input.Currency
	}
	item.ReorderLevel = input.ReorderLevel
	item.VendorID = input.VendorID

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	return s.enrich(item), nil
}

// HideItem hides an item from normal listings. The transition is
// unconditional: outstanding allocations do not block it.
func (s *Service) HideItem(ctx context.Context, itemID string) error {
	return s.setStatus(ctx, itemID, repository.StatusHidden)
}

// ActivateItem returns a hidden item to active
func (s *Service) ActivateItem(ctx context.Context, itemID string) error {
	return s.setStatus(ctx, itemID, repository.StatusActive)
}

// ArchiveItem soft-deletes an item. Batch rows are kept; archived items
// drop out of listings, alerts and turnover via status filters.
func (s *Service) ArchiveItem(ctx context.Context, itemID string) error {
	return s.setStatus(ctx, itemID, repository.StatusDeleted)
}

func (s *Service) setStatus(ctx context.Context, itemID, status string) error {
	if err := s.items.UpdateStatus(ctx, itemID, status); err != nil {
		return err
	}

	s.logger.Info().Str("item_id", itemID).Str("status", status).Msg("item status changed")
	return nil
}

// ListItems lists items with their stock health. The derived filters
// (low stock, expired, expiring) classify each page entry after the
// database query, so a filtered page can come back shorter than requested.
func (s *Service) ListItems(ctx context.Context, filter ListFilter) ([]*Item, int64, error) {
	items, total, err := s.items.List(ctx, filter.ItemFilter)
	if err != nil {
		return nil, 0, err
	}

	derived := filter.LowStockOnly || filter.ExpiredOnly || filter.ExpiringWithinDays > 0

	result := make([]*Item, 0, len(items))
	for _, it := range items {
		enriched := s.enrich(it)

		if derived && !s.matchesDerived(enriched, filter) {
			continue
		}
		result = append(result, enriched)
	}

	if derived {
		total = int64(len(result))
	}

	return result, total, nil
}

func (s *Service) matchesDerived(item *Item, filter ListFilter) bool {
	if filter.LowStockOnly && item.StockStatus != StockLow {
		return false
	}
	if filter.ExpiredOnly && item.StockStatus != StockExpired {
		return false
	}
	if filter.ExpiringWithinDays > 0 {
		status := ClassifyStock(item.OnHand, item.ReorderLevel, item.NearestExpiry, filter.ExpiringWithinDays, s.now())
		if status != StockExpiringSoon && status != StockExpired {
			return false
		}
	}
	return true
}

// GetItemWithBatches returns an item with its batches in consumption order
func (s *Service) GetItemWithBatches(ctx context.Context, itemID string) (*ItemDetail, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	batches, err := s.batches.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	return &ItemDetail{
		Item:    s.enrich(item),
		Batches: batches,
	}, nil
}

// AddBatch adds a batch to an item and records a PURCHASE movement
func (s *Service) AddBatch(ctx context.Context, itemID string, input BatchInput) (*repository.InventoryBatch, error) {
	if input.Quantity < 0 {
		return nil, errors.Validation("batch quantity cannot be negative")
	}

	unlock := s.locks.Lock(itemID)
	defer unlock.Unlock()

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == repository.StatusDeleted {
		return nil, errors.NotFound("item")
	}

	batch := batchFromInput(itemID, input)
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}

	if batch.Quantity > 0 {
		if err := s.recordMovement(ctx, &repository.StockMovement{
			ItemID:  itemID,
			BatchID: &batch.ID,
			Change:  batch.Quantity,
			Reason:  repository.ReasonPurchase,
			UserID:  actor.UserID(ctx),
		}, item); err != nil {
			return nil, err
		}
	}

	if _, err := s.recomputeAggregate(ctx, itemID); err != nil {
		return nil, err
	}

	return batch, nil
}

// GetBatch returns a single batch
func (s *Service) GetBatch(ctx context.Context, batchID string) (*repository.InventoryBatch, error) {
	return s.batches.GetByID(ctx, batchID)
}

// ListBatches lists an item's batches in consumption order
func (s *Service) ListBatches(ctx context.Context, itemID string) ([]*repository.InventoryBatch, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.batches.ListByItem(ctx, itemID)
}

// UpdateBatch updates a batch. A quantity change is recorded as a manual
// adjustment movement for the delta.
func (s *Service) UpdateBatch(ctx context.Context, batchID string, input BatchInput) (*repository.InventoryBatch, error) {
	if input.Quantity < 0 {
		return nil, errors.Validation("batch quantity cannot be negative")
	}

	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(batch.ItemID)
	defer unlock.Unlock()

	// Re-read under the lock so the quantity delta is computed against the
	// serialized state.
	batch, err = s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	delta := input.Quantity - batch.Quantity

	batch.BatchNumber = input.BatchNumber
	batch.LotNumber = input.LotNumber
	batch.RegulatoryTrackingID = input.RegulatoryTrackingID
	batch.ManufactureDate = input.ManufactureDate
	batch.ExpiryDate = input.ExpiryDate
	batch.MinShelfLifeAlertDate = input.MinShelfLifeAlertDate
	batch.Quantity = input.Quantity

	if err := s.batches.Update(ctx, batch); err != nil {
		return nil, err
	}

	if delta != 0 {
		item, err := s.items.GetByID(ctx, batch.ItemID)
		if err != nil {
			return nil, err
		}

		if err := s.recordMovement(ctx, &repository.StockMovement{
			ItemID:  batch.ItemID,
			BatchID: &batch.ID,
			Change:  delta,
			Reason:  repository.ReasonManualAdjustment,
			UserID:  actor.UserID(ctx),
		}, item); err != nil {
			return nil, err
		}
	}

	if _, err := s.recomputeAggregate(ctx, batch.ItemID); err != nil {
		return nil, err
	}

	return batch, nil
}

// DeleteBatch hard-deletes a batch. Remaining quantity is written off with
// a negative manual adjustment movement so the ledger stays consistent with
// the batch truth.
func (s *Service) DeleteBatch(ctx context.Context, batchID string) error {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(batch.ItemID)
	defer unlock.Unlock()

	batch, err = s.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}

	if err := s.batches.Delete(ctx, batchID); err != nil {
		return err
	}

	if batch.Quantity > 0 {
		item, err := s.items.GetByID(ctx, batch.ItemID)
		if err != nil {
			return err
		}

		if err := s.recordMovement(ctx, &repository.StockMovement{
			ItemID:  batch.ItemID,
			BatchID: &batch.ID,
			Change:  -batch.Quantity,
			Reason:  repository.ReasonManualAdjustment,
			UserID:  actor.UserID(ctx),
		}, item); err != nil {
			return err
		}
	}

	_, err = s.recomputeAggregate(ctx, batch.ItemID)
	return err
}

// ListMovements lists an item's ledger entries, newest first
func (s *Service) ListMovements(ctx context.Context, itemID string, filter repository.MovementFilter) ([]*repository.StockMovement, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.movements.ListByItem(ctx, itemID, filter)
}

// recomputeAggregate reconciles the item's cached projection from its
// batches. Must run after every batch mutation; until it does the cached
// fields are not considered valid.
func (s *Service) recomputeAggregate(ctx context.Context, itemID string) (*repository.InventoryItem, error) {
	agg, err := s.batches.Aggregate(ctx, itemID)
	if err != nil {
		return nil, err
	}

	return s.items.UpdateAggregate(ctx, itemID, agg.OnHand, agg.NearestExpiry)
}

// recordMovement appends a ledger row and publishes the movement event.
// The item argument carries the pre-mutation aggregate for event context.
func (s *Service) recordMovement(ctx context.Context, movement *repository.StockMovement, item *repository.InventoryItem) error {
	if err := s.movements.Create(ctx, movement); err != nil {
		return err
	}

	event := messaging.MovementRecordedEvent{
		MovementID: movement.ID,
		ItemID:     movement.ItemID,
		Change:     movement.Change,
		Reason:     movement.Reason,
		OnHand:     item.OnHand + movement.Change,
		Allocated:  item.Allocated,
	}
	if movement.BatchID != nil {
		event.BatchID = *movement.BatchID
	}
	if movement.ReferenceID != nil {
		event.ReferenceID = *movement.ReferenceID
	}
	if movement.UserID != nil {
		event.UserID = *movement.UserID
	}

	s.events.MovementRecorded(ctx, event)
	return nil
}

// checkLowStockAlert publishes a stock.alert when a mutation takes the item
// across its reorder level.
func (s *Service) checkLowStockAlert(ctx context.Context, before, after *repository.InventoryItem) {
	if after.ReorderLevel == nil {
		return
	}

	level := *after.ReorderLevel
	if before.OnHand > level && after.OnHand <= level {
		s.events.StockAlert(ctx, messaging.StockAlertEvent{
			AlertType:    "LOW_STOCK",
			ItemID:       after.ID,
			ItemName:     after.Name,
			OnHand:       after.OnHand,
			ReorderLevel: level,
			Message:      fmt.Sprintf("%s is at or below its reorder level (%d on hand)", after.Name, after.OnHand),
		})
	}
}

func batchFromInput(itemID string, input BatchInput) *repository.InventoryBatch {
	return &repository.InventoryBatch{
		ItemID:                itemID,
		BatchNumber:           input.BatchNumber,
		LotNumber:             input.LotNumber,
		RegulatoryTrackingID:  input.RegulatoryTrackingID,
		ManufactureDate:       input.ManufactureDate,
		ExpiryDate:            input.ExpiryDate,
		MinShelfLifeAlertDate: input.MinShelfLifeAlertDate,
		Quantity:              input.Quantity,
	}
}
