package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/events"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
	"github.com/pawsuite/pawsuite-backend/pkg/config"
	"github.com/pawsuite/pawsuite-backend/pkg/errors"
	"github.com/pawsuite/pawsuite-backend/pkg/logger"
	"github.com/pawsuite/pawsuite-backend/pkg/testutil"
)

// memStore is a thread-safe in-memory stand-in for the three repositories.
// It mimics the database behavior the service relies on: value-copy reads,
// FIFO batch ordering and the allocated clamp on aggregate refresh.
type memStore struct {
	mu        sync.Mutex
	items     map[string]*repository.InventoryItem
	batches   map[string]*repository.InventoryBatch
	movements []*repository.StockMovement
}

func newMemStore() *memStore {
	return &memStore{
		items:   make(map[string]*repository.InventoryItem),
		batches: make(map[string]*repository.InventoryBatch),
	}
}

type fakeItems struct{ s *memStore }
type fakeBatches struct{ s *memStore }
type fakeMovements struct{ s *memStore }

func (f *fakeItems) Create(_ context.Context, item *repository.InventoryItem) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = repository.StatusActive
	}
	if item.Currency == "" {
		item.Currency = "EUR"
	}
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt

	stored := *item
	f.s.items[item.ID] = &stored
	return nil
}

func (f *fakeItems) GetByID(_ context.Context, id string) (*repository.InventoryItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	item, ok := f.s.items[id]
	if !ok {
		return nil, errors.NotFound("item")
	}
	copied := *item
	return &copied, nil
}

func (f *fakeItems) List(_ context.Context, filter repository.ItemFilter) ([]*repository.InventoryItem, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []string{repository.StatusActive, repository.StatusHidden}
	}
	allowed := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}

	var result []*repository.InventoryItem
	for _, item := range f.s.items {
		if !allowed[item.Status] {
			continue
		}
		if filter.BusinessType != "" && item.BusinessType != filter.BusinessType {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		copied := *item
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, int64(len(result)), nil
}

func (f *fakeItems) Update(_ context.Context, item *repository.InventoryItem) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	stored, ok := f.s.items[item.ID]
	if !ok || stored.Status == repository.StatusDeleted {
		return errors.NotFound("item")
	}
	copied := *item
	copied.OnHand = stored.OnHand
	copied.Allocated = stored.Allocated
	copied.NearestExpiry = stored.NearestExpiry
	f.s.items[item.ID] = &copied
	return nil
}

func (f *fakeItems) UpdateStatus(_ context.Context, id, status string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	item, ok := f.s.items[id]
	if !ok {
		return errors.NotFound("item")
	}
	item.Status = status
	return nil
}

func (f *fakeItems) UpdateAggregate(_ context.Context, id string, onHand int, nearestExpiry *time.Time) (*repository.InventoryItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	item, ok := f.s.items[id]
	if !ok {
		return nil, errors.NotFound("item")
	}
	item.OnHand = onHand
	if item.Allocated > onHand {
		item.Allocated = onHand
	}
	item.NearestExpiry = nearestExpiry

	copied := *item
	return &copied, nil
}

func (f *fakeItems) UpdateAllocated(_ context.Context, id string, allocated int) (*repository.InventoryItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	item, ok := f.s.items[id]
	if !ok {
		return nil, errors.NotFound("item")
	}
	item.Allocated = allocated

	copied := *item
	return &copied, nil
}

func (f *fakeItems) ListLowStock(_ context.Context) ([]*repository.InventoryItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	var result []*repository.InventoryItem
	for _, item := range f.s.items {
		if item.Status == repository.StatusDeleted || item.ReorderLevel == nil {
			continue
		}
		if item.OnHand <= *item.ReorderLevel {
			copied := *item
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (f *fakeBatches) Create(_ context.Context, batch *repository.InventoryBatch) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}
	batch.UpdatedAt = batch.CreatedAt

	stored := *batch
	f.s.batches[batch.ID] = &stored
	return nil
}

func (f *fakeBatches) GetByID(_ context.Context, id string) (*repository.InventoryBatch, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	batch, ok := f.s.batches[id]
	if !ok {
		return nil, errors.NotFound("batch")
	}
	copied := *batch
	return &copied, nil
}

func (f *fakeBatches) ListByItem(_ context.Context, itemID string) ([]*repository.InventoryBatch, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	var result []*repository.InventoryBatch
	for _, batch := range f.s.batches {
		if batch.ItemID == itemID {
			copied := *batch
			result = append(result, &copied)
		}
	}

	// expiry ascending with undated batches last, then id
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return a.ID < b.ID
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ID < b.ID
		default:
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
	})

	return result, nil
}

func (f *fakeBatches) Update(_ context.Context, batch *repository.InventoryBatch) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if _, ok := f.s.batches[batch.ID]; !ok {
		return errors.NotFound("batch")
	}
	stored := *batch
	f.s.batches[batch.ID] = &stored
	return nil
}

func (f *fakeBatches) UpdateQuantity(_ context.Context, id string, quantity int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	batch, ok := f.s.batches[id]
	if !ok {
		return errors.NotFound("batch")
	}
	batch.Quantity = quantity
	return nil
}

func (f *fakeBatches) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if _, ok := f.s.batches[id]; !ok {
		return errors.NotFound("batch")
	}
	delete(f.s.batches, id)
	return nil
}

func (f *fakeBatches) Aggregate(_ context.Context, itemID string) (*repository.StockAggregate, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	agg := &repository.StockAggregate{}
	for _, batch := range f.s.batches {
		if batch.ItemID != itemID {
			continue
		}
		agg.OnHand += batch.Quantity
		if batch.Quantity > 0 && batch.ExpiryDate != nil {
			if agg.NearestExpiry == nil || batch.ExpiryDate.Before(*agg.NearestExpiry) {
				expiry := *batch.ExpiryDate
				agg.NearestExpiry = &expiry
			}
		}
	}

	return agg, nil
}

func (f *fakeBatches) SumQuantityCreatedBefore(_ context.Context, itemID string, cutoff time.Time) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	total := 0
	for _, batch := range f.s.batches {
		if batch.ItemID == itemID && batch.CreatedAt.Before(cutoff) {
			total += batch.Quantity
		}
	}
	return total, nil
}

func (f *fakeBatches) ListExpiring(_ context.Context, withinDays int) ([]*repository.ExpiringBatch, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	horizon := time.Now().AddDate(0, 0, withinDays)

	var result []*repository.ExpiringBatch
	for _, batch := range f.s.batches {
		if batch.Quantity <= 0 || batch.ExpiryDate == nil || batch.ExpiryDate.After(horizon) {
			continue
		}
		item, ok := f.s.items[batch.ItemID]
		if !ok || item.Status == repository.StatusDeleted {
			continue
		}
		copied := *batch
		result = append(result, &repository.ExpiringBatch{
			InventoryBatch: copied,
			ItemName:       item.Name,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiryDate.Before(*result[j].ExpiryDate)
	})
	return result, nil
}

func (f *fakeMovements) Create(_ context.Context, movement *repository.StockMovement) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	movement.CreatedAt = time.Now()

	stored := *movement
	f.s.movements = append(f.s.movements, &stored)
	return nil
}

func (f *fakeMovements) CreateAll(ctx context.Context, movements []*repository.StockMovement) error {
	for _, m := range movements {
		if err := f.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeMovements) ListByItem(_ context.Context, itemID string, filter repository.MovementFilter) ([]*repository.StockMovement, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	var result []*repository.StockMovement
	for i := len(f.s.movements) - 1; i >= 0; i-- {
		m := f.s.movements[i]
		if m.ItemID != itemID {
			continue
		}
		if filter.Reason != "" && m.Reason != filter.Reason {
			continue
		}
		copied := *m
		result = append(result, &copied)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (f *fakeMovements) SumPurchases(_ context.Context, itemID string, from, to time.Time) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	total := 0
	for _, m := range f.s.movements {
		if m.ItemID != itemID || m.Reason != repository.ReasonPurchase || m.Change <= 0 {
			continue
		}
		if m.CreatedAt.Before(from) || !m.CreatedAt.Before(to) {
			continue
		}
		total += m.Change
	}
	return total, nil
}

// newTestService wires a service against the in-memory store and a
// recording event publisher.
func newTestService() (*Service, *memStore, *testutil.MockPublisher) {
	store := newMemStore()
	pub := testutil.NewMockPublisher()
	log := logger.New("stock-service-test", "development")

	svc := New(
		&fakeItems{store},
		&fakeBatches{store},
		&fakeMovements{store},
		events.NewPublisher(pub, log),
		config.StockConfig{ExpiringSoonDays: 7, TurnoverWindowMonths: 12},
		log,
	)
	return svc, store, pub
}
