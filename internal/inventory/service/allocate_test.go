package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
	"github.com/pawsuite/pawsuite-backend/pkg/errors"
)

func TestAllocateAndRelease(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{10}, []*time.Time{daysFromNow(30)})

	refID := "7fa85f64-5717-4562-b3fc-2c963f66afa9"
	allocated, err := svc.Allocate(ctx, AllocationInput{ItemID: item.ID, Quantity: 4, ReferenceID: &refID})
	require.NoError(t, err)
	assert.Equal(t, 4, allocated.Allocated)
	assert.Equal(t, 10, allocated.OnHand)

	// batches untouched by a soft reservation
	batches, err := svc.ListBatches(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, batches[0].Quantity)

	released, err := svc.Release(ctx, AllocationInput{ItemID: item.ID, Quantity: 3, ReferenceID: &refID})
	require.NoError(t, err)
	assert.Equal(t, 1, released.Allocated)

	// both directions leave zero-change audit rows
	var markers []*repository.StockMovement
	for _, m := range store.movements {
		if m.Reason == repository.ReasonAllocated || m.Reason == repository.ReasonUnallocated {
			markers = append(markers, m)
		}
	}
	require.Len(t, markers, 2)
	for _, m := range markers {
		assert.Zero(t, m.Change)
		require.NotNil(t, m.ReferenceID)
	}
}

func TestAllocateBeyondFreeStockFailsWithoutMutation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{10}, []*time.Time{daysFromNow(30)})

	_, err := svc.Allocate(ctx, AllocationInput{ItemID: item.ID, Quantity: 6})
	require.NoError(t, err)

	_, err = svc.Allocate(ctx, AllocationInput{ItemID: item.ID, Quantity: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientFreeStock))

	detail, err := svc.GetItemWithBatches(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, detail.Allocated)
	assert.Equal(t, 10, detail.OnHand)
}

func TestReleaseClampsAtZero(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{10}, []*time.Time{daysFromNow(30)})

	_, err := svc.Allocate(ctx, AllocationInput{ItemID: item.ID, Quantity: 2})
	require.NoError(t, err)

	released, err := svc.Release(ctx, AllocationInput{ItemID: item.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Zero(t, released.Allocated)
}

func TestConsumptionClampsAllocationToOnHand(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{10}, []*time.Time{daysFromNow(30)})

	_, err := svc.Allocate(ctx, AllocationInput{ItemID: item.ID, Quantity: 8})
	require.NoError(t, err)

	// consuming below the allocated level drags allocated down with on-hand
	updated, err := svc.Consume(ctx, ConsumeInput{ItemID: item.ID, Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.OnHand)
	assert.Equal(t, 3, updated.Allocated)
	assert.LessOrEqual(t, updated.Allocated, updated.OnHand)
}
