package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandTurnover(t *testing.T) {
	assert.Equal(t, TurnoverExcellent, bandTurnover(12))
	assert.Equal(t, TurnoverExcellent, bandTurnover(20))
	assert.Equal(t, TurnoverHealthy, bandTurnover(6))
	assert.Equal(t, TurnoverHealthy, bandTurnover(11.9))
	assert.Equal(t, TurnoverModerate, bandTurnover(3))
	assert.Equal(t, TurnoverModerate, bandTurnover(5.5))
	assert.Equal(t, TurnoverLow, bandTurnover(2.9))
	assert.Equal(t, TurnoverLow, bandTurnover(0))
}

func TestComputeTurnover(t *testing.T) {
	avg, turns, days := computeTurnover(10, 10, 120)
	assert.Equal(t, 10.0, avg)
	assert.Equal(t, 12.0, turns)
	assert.InDelta(t, 30.42, days, 0.01)

	// no purchases: zero turns, zero days, no division by zero
	avg, turns, days = computeTurnover(10, 10, 0)
	assert.Equal(t, 10.0, avg)
	assert.Zero(t, turns)
	assert.Zero(t, days)

	// empty inventory with purchases still avoids division by zero
	_, turns, days = computeTurnover(0, 0, 50)
	assert.Zero(t, turns)
	assert.Zero(t, days)
}

func TestTurnoverByItem(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{10}, []*time.Time{daysFromNow(90)})

	// backdate the batch so it counts as beginning inventory
	store.mu.Lock()
	for _, b := range store.batches {
		b.CreatedAt = time.Now().AddDate(-2, 0, 0)
	}
	store.mu.Unlock()

	rows, err := svc.TurnoverByItem(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, item.ID, row.ItemID)
	assert.Equal(t, 10, row.BeginningInventory)
	assert.Equal(t, 10, row.EndingInventory)
	assert.Equal(t, 10.0, row.AvgInventory)
	assert.Zero(t, row.TotalPurchased)
	assert.Zero(t, row.TurnsPerYear)
	assert.Zero(t, row.DaysOnShelf)
	assert.Equal(t, TurnoverLow, row.Status)
}

func TestTurnoverCountsPurchasesInWindow(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	item := seedItem(t, svc, []int{10}, []*time.Time{daysFromNow(90)})

	// the seed purchase falls inside the trailing window
	rows, err := svc.TurnoverByItem(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, item.ID, rows[0].ItemID)
	assert.Equal(t, 10, rows[0].TotalPurchased)

	// a window entirely in the past sees no purchases
	from := time.Now().AddDate(-2, 0, 0)
	to := time.Now().AddDate(-1, 0, 0)
	rows, err = svc.TurnoverByItem(ctx, &from, &to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].TotalPurchased)
}
