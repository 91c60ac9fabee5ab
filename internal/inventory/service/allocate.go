package service

import (
	"context"

	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
	"github.com/pawsuite/pawsuite-backend/pkg/actor"
	"github.com/pawsuite/pawsuite-backend/pkg/errors"
)

// AllocationInput describes a soft reservation against an item
type AllocationInput struct {
	ItemID      string
	Quantity    int
	ReferenceID *string
}

// Allocate earmarks quantity against the item's free stock. Batches and
// on-hand are untouched: allocated stock is physically present but reserved
// for a pending appointment or booking. A zero-change ledger row records the
// reservation for audit.
func (s *Service) Allocate(ctx context.Context, input AllocationInput) (*Item, error) {
	if input.Quantity <= 0 {
		return nil, errors.Validation("quantity must be positive")
	}

	unlock := s.locks.Lock(input.ItemID)
	defer unlock.Unlock()

	item, err := s.items.GetByID(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status == repository.StatusDeleted {
		return nil, errors.NotFound("item")
	}

	free := item.OnHand - item.Allocated
	if input.Quantity > free {
		return nil, errors.InsufficientFreeStock(item.ID, input.Quantity, free)
	}

	updated, err := s.items.UpdateAllocated(ctx, input.ItemID, item.Allocated+input.Quantity)
	if err != nil {
		return nil, err
	}

	if err := s.recordMovement(ctx, &repository.StockMovement{
		ItemID:      input.ItemID,
		Change:      0,
		Reason:      repository.ReasonAllocated,
		ReferenceID: input.ReferenceID,
		UserID:      actor.UserID(ctx),
	}, updated); err != nil {
		return nil, err
	}

	return s.enrich(updated), nil
}

// Release returns previously allocated quantity to free stock. Releasing
// more than is allocated clamps at zero rather than erroring; the clamp is
// logged because it usually means a double release upstream.
func (s *Service) Release(ctx context.Context, input AllocationInput) (*Item, error) {
	if input.Quantity <= 0 {
		return nil, errors.Validation("quantity must be positive")
	}

	unlock := s.locks.Lock(input.ItemID)
	defer unlock.Unlock()

	item, err := s.items.GetByID(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status == repository.StatusDeleted {
		return nil, errors.NotFound("item")
	}

	newAllocated := item.Allocated - input.Quantity
	if newAllocated < 0 {
		s.logger.Warn().
			Str("item_id", item.ID).
			Int("allocated", item.Allocated).
			Int("release", input.Quantity).
			Msg("release exceeds allocation, clamping to zero")
		newAllocated = 0
	}

	updated, err := s.items.UpdateAllocated(ctx, input.ItemID, newAllocated)
	if err != nil {
		return nil, err
	}

	if err := s.recordMovement(ctx, &repository.StockMovement{
		ItemID:      input.ItemID,
		Change:      0,
		Reason:      repository.ReasonUnallocated,
		ReferenceID: input.ReferenceID,
		UserID:      actor.UserID(ctx),
	}, updated); err != nil {
		return nil, err
	}

	return s.enrich(updated), nil
}
