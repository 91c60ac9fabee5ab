package service

import (
	"context"

	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
	"github.com/pawsuite/pawsuite-backend/pkg/actor"
	"github.com/pawsuite/pawsuite-backend/pkg/errors"
)

// batchDraw is one batch's share of a planned consumption
type batchDraw struct {
	batchID     string
	take        int
	newQuantity int
}

// planConsumption walks batches in the given order and plans deductions
// until the requested quantity is satisfied. Returns the per-batch draws
// and the unsatisfied remainder. Pure: no state is touched.
func planConsumption(batches []*repository.InventoryBatch, quantity int) ([]batchDraw, int) {
	remaining := quantity
	var draws []batchDraw

	for _, b := range batches {
		if remaining == 0 {
			break
		}
		if b.Quantity <= 0 {
			continue
		}

		take := b.Quantity
		if take > remaining {
			take = remaining
		}

		draws = append(draws, batchDraw{
			batchID:     b.ID,
			take:        take,
			newQuantity: b.Quantity - take,
		})
		remaining -= take
	}

	return draws, remaining
}

// ConsumeInput describes a single consumption request
type ConsumeInput struct {
	ItemID      string
	Quantity    int
	Reason      string
	ReferenceID *string
}

// Consume reduces an item's stock by draining batches nearest-expiry first.
// The quantity is pre-checked against the cached on-hand; if the batch walk
// then falls short the cached aggregate has drifted from the batch truth,
// which is an internal error, not a caller error.
func (s *Service) Consume(ctx context.Context, input ConsumeInput) (*Item, error) {
	if input.Quantity <= 0 {
		return nil, errors.Validation("quantity must be positive")
	}
	if input.Reason == "" {
		input.Reason = repository.ReasonOther
	}

	unlock := s.locks.Lock(input.ItemID)
	defer unlock.Unlock()

	return s.consumeLocked(ctx, input)
}

// consumeLocked runs the consumption under the caller-held item lock.
// Shared with the adjustment engine's decrease path.
func (s *Service) consumeLocked(ctx context.Context, input ConsumeInput) (*Item, error) {
	item, err := s.items.GetByID(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status == repository.StatusDeleted {
		return nil, errors.NotFound("item")
	}

	if input.Quantity > item.OnHand {
		return nil, errors.InsufficientStock(item.ID, input.Quantity, item.OnHand)
	}

	batches, err := s.batches.ListByItem(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}

	draws, shortfall := planConsumption(batches, input.Quantity)
	if shortfall > 0 {
		// The pre-check said enough stock existed but the batches could not
		// cover it: the cached aggregate has drifted. Surface as a bug
		// signal, never as a user error.
		s.logger.Error().
			Str("item_id", item.ID).
			Int("requested", input.Quantity).
			Int("cached_on_hand", item.OnHand).
			Int("shortfall", shortfall).
			Msg("cached aggregate drifted from batch truth during consumption")
		return nil, errors.InternalConsistency(item.ID, shortfall)
	}

	userID := actor.UserID(ctx)
	for _, d := range draws {
		if err := s.batches.UpdateQuantity(ctx, d.batchID, d.newQuantity); err != nil {
			return nil, err
		}

		batchID := d.batchID
		if err := s.recordMovement(ctx, &repository.StockMovement{
			ItemID:      input.ItemID,
			BatchID:     &batchID,
			Change:      -d.take,
			Reason:      input.Reason,
			ReferenceID: input.ReferenceID,
			UserID:      userID,
		}, item); err != nil {
			return nil, err
		}
	}

	updated, err := s.recomputeAggregate(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}

	s.checkLowStockAlert(ctx, item, updated)

	return s.enrich(updated), nil
}

// BulkConsumeOutcome reports one item's result within a bulk consumption
type BulkConsumeOutcome struct {
	ItemID string `json:"item_id"`
	Item   *Item  `json:"item,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

// BulkConsume consumes stock for several items sequentially. There is no
// transaction across items: a failure partway leaves earlier items'
// consumption committed, so outcomes are reported per item rather than
// collapsed into one result.
func (s *Service) BulkConsume(ctx context.Context, inputs []ConsumeInput) []BulkConsumeOutcome {
	outcomes := make([]BulkConsumeOutcome, 0, len(inputs))

	for _, input := range inputs {
		outcome := BulkConsumeOutcome{ItemID: input.ItemID}

		item, err := s.Consume(ctx, input)
		if err != nil {
			outcome.Error = err.Error()
			if appErr, ok := errors.IsAppError(err); ok {
				outcome.Code = appErr.Code
			}
		} else {
			outcome.Item = item
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
