package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
	"github.com/pawsuite/pawsuite-backend/pkg/errors"
	"github.com/pawsuite/pawsuite-backend/pkg/messaging"
)

func daysFromNow(days int) *time.Time {
	t := time.Now().AddDate(0, 0, days)
	return &t
}

// seedItem creates an item with one batch per quantity/expiry pair
func seedItem(t *testing.T, svc *Service, quantities []int, expiries []*time.Time) *Item {
	t.Helper()
	require.Equal(t, len(quantities), len(expiries))

	ctx := context.Background()

	input := CreateItemInput{
		Name:     "Amoxicillin 250mg",
		Category: "medicine",
	}
	for i, q := range quantities {
		input.InitialBatches = append(input.InitialBatches, BatchInput{
			Quantity:   q,
			ExpiryDate: expiries[i],
		})
	}

	item, err := svc.CreateItem(ctx, input)
	require.NoError(t, err)
	return item
}

func TestConsumeFIFOByExpiry(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc,
		[]int{5, 5, 5},
		[]*time.Time{daysFromNow(30), daysFromNow(60), daysFromNow(90)},
	)
	require.Equal(t, 15, item.OnHand)

	updated, err := svc.Consume(ctx, ConsumeInput{
		ItemID:   item.ID,
		Quantity: 7,
		Reason:   repository.ReasonAppointmentUsage,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.OnHand)

	batches, err := svc.ListBatches(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	// earliest expiry drained first, second partially, third untouched
	assert.Equal(t, 0, batches[0].Quantity)
	assert.Equal(t, 3, batches[1].Quantity)
	assert.Equal(t, 5, batches[2].Quantity)
}

func TestConsumeUndatedBatchesDrainLast(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc,
		[]int{5, 5},
		[]*time.Time{nil, daysFromNow(10)},
	)

	updated, err := svc.Consume(ctx, ConsumeInput{ItemID: item.ID, Quantity: 6})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.OnHand)

	batches, err := svc.ListBatches(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	// dated batch first in consumption order, fully drained
	assert.NotNil(t, batches[0].ExpiryDate)
	assert.Equal(t, 0, batches[0].Quantity)
	assert.Nil(t, batches[1].ExpiryDate)
	assert.Equal(t, 4, batches[1].Quantity)
}

func TestConsumeWritesOneMovementPerBatch(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc,
		[]int{5, 5},
		[]*time.Time{daysFromNow(30), daysFromNow(60)},
	)

	refID := "4fa85f64-5717-4562-b3fc-2c963f66afa7"
	_, err := svc.Consume(ctx, ConsumeInput{
		ItemID:      item.ID,
		Quantity:    8,
		Reason:      repository.ReasonGroomingUsage,
		ReferenceID: &refID,
	})
	require.NoError(t, err)

	var consumed []*repository.StockMovement
	for _, m := range store.movements {
		if m.Reason == repository.ReasonGroomingUsage {
			consumed = append(consumed, m)
		}
	}

	require.Len(t, consumed, 2)
	assert.Equal(t, -5, consumed[0].Change)
	assert.Equal(t, -3, consumed[1].Change)
	for _, m := range consumed {
		require.NotNil(t, m.BatchID)
		require.NotNil(t, m.ReferenceID)
		assert.Equal(t, refID, *m.ReferenceID)
	}
}

func TestConsumeInsufficientStock(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{5}, []*time.Time{daysFromNow(30)})

	_, err := svc.Consume(ctx, ConsumeInput{ItemID: item.ID, Quantity: 6})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	// nothing mutated
	batches, err := svc.ListBatches(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, batches[0].Quantity)

	movementCount := 0
	for _, m := range store.movements {
		if m.Change < 0 {
			movementCount++
		}
	}
	assert.Zero(t, movementCount)
}

func TestConsumeAggregateDriftIsInternal(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{5}, []*time.Time{daysFromNow(30)})

	// Force the cached aggregate away from the batch truth
	store.mu.Lock()
	store.items[item.ID].OnHand = 10
	store.mu.Unlock()

	_, err := svc.Consume(ctx, ConsumeInput{ItemID: item.ID, Quantity: 8})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInternalConsistency))

	appErr, ok := errors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 500, appErr.StatusCode)
}

func TestConsumeValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Consume(ctx, ConsumeInput{ItemID: "whatever", Quantity: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = svc.Consume(ctx, ConsumeInput{ItemID: "missing", Quantity: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestConsumePublishesMovementEvents(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{5}, []*time.Time{daysFromNow(30)})
	pub.Reset()

	_, err := svc.Consume(ctx, ConsumeInput{ItemID: item.ID, Quantity: 2})
	require.NoError(t, err)

	pub.AssertEventPublished(t, messaging.EventMovementRecorded)
}

func TestConsumeLowStockAlert(t *testing.T) {
	svc, store, pub := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{10}, []*time.Time{daysFromNow(90)})

	reorder := 5
	store.mu.Lock()
	store.items[item.ID].ReorderLevel = &reorder
	store.mu.Unlock()
	pub.Reset()

	// 10 -> 6 stays above the level: no alert
	_, err := svc.Consume(ctx, ConsumeInput{ItemID: item.ID, Quantity: 4})
	require.NoError(t, err)
	for _, e := range pub.PublishedEvents {
		assert.NotEqual(t, messaging.EventStockAlert, e.Type)
	}

	// 6 -> 5 crosses it
	_, err = svc.Consume(ctx, ConsumeInput{ItemID: item.ID, Quantity: 1})
	require.NoError(t, err)
	pub.AssertEventPublished(t, messaging.EventStockAlert)
}

func TestBulkConsumeReportsPerItemOutcomes(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	rich := seedItem(t, svc, []int{20}, []*time.Time{daysFromNow(30)})
	poor := seedItem(t, svc, []int{2}, []*time.Time{daysFromNow(30)})

	outcomes := svc.BulkConsume(ctx, []ConsumeInput{
		{ItemID: rich.ID, Quantity: 5},
		{ItemID: poor.ID, Quantity: 5},
		{ItemID: "00000000-0000-0000-0000-000000000001", Quantity: 1},
	})

	require.Len(t, outcomes, 3)

	assert.Empty(t, outcomes[0].Error)
	require.NotNil(t, outcomes[0].Item)
	assert.Equal(t, 15, outcomes[0].Item.OnHand)

	assert.Equal(t, "INSUFFICIENT_STOCK", outcomes[1].Code)
	assert.Nil(t, outcomes[1].Item)

	assert.Equal(t, "NOT_FOUND", outcomes[2].Code)

	// the first item's consumption stayed committed despite later failures
	detail, err := svc.GetItemWithBatches(ctx, rich.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, detail.OnHand)
}

func TestConcurrentConsumptionNeverOverdraws(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{10}, []*time.Time{daysFromNow(30)})

	var wg sync.WaitGroup
	results := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, results[n] = svc.Consume(ctx, ConsumeInput{ItemID: item.ID, Quantity: 6})
		}(i)
	}
	wg.Wait()

	successes, failures := 0, 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
			failures++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)

	detail, err := svc.GetItemWithBatches(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, detail.OnHand)
	assert.GreaterOrEqual(t, detail.OnHand, 0)
}
