package service

import (
	"context"

	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
	"github.com/pawsuite/pawsuite-backend/pkg/actor"
	"github.com/pawsuite/pawsuite-backend/pkg/errors"
)

// AdjustInput describes a manual stock correction to an absolute on-hand
// value rather than a delta.
type AdjustInput struct {
	ItemID    string
	NewOnHand int
	Reason    string
}

// AdjustStock reconciles the requested on-hand value against the current
// one. An increase synthesizes one undated batch holding the surplus; a
// decrease drains existing batches the same way consumption does, one
// negative ledger row per batch touched. Equal values are a no-op.
func (s *Service) AdjustStock(ctx context.Context, input AdjustInput) (*Item, error) {
	if input.NewOnHand < 0 {
		return nil, errors.Validation("on-hand quantity cannot be negative")
	}
	if input.Reason == "" {
		input.Reason = repository.ReasonManualAdjustment
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

	delta := input.NewOnHand - item.OnHand

	switch {
	case delta == 0:
		return s.enrich(item), nil

	case delta > 0:
		batch := &repository.InventoryBatch{
			ItemID:   input.ItemID,
			Quantity: delta,
		}
		if err := s.batches.Create(ctx, batch); err != nil {
			return nil, err
		}

		if err := s.recordMovement(ctx, &repository.StockMovement{
			ItemID:  input.ItemID,
			BatchID: &batch.ID,
			Change:  delta,
			Reason:  input.Reason,
			UserID:  actor.UserID(ctx),
		}, item); err != nil {
			return nil, err
		}

		updated, err := s.recomputeAggregate(ctx, input.ItemID)
		if err != nil {
			return nil, err
		}

		s.logger.Info().
			Str("item_id", input.ItemID).
			Int("delta", delta).
			Int("on_hand", updated.OnHand).
			Msg("stock adjusted up")

		return s.enrich(updated), nil

	default:
		result, err := s.consumeLocked(ctx, ConsumeInput{
			ItemID:   input.ItemID,
			Quantity: -delta,
			Reason:   input.Reason,
		})
		if err != nil {
			return nil, err
		}

		s.logger.Info().
			Str("item_id", input.ItemID).
			Int("delta", delta).
			Int("on_hand", result.OnHand).
			Msg("stock adjusted down")

		return result, nil
	}
}
