package service

import (
	"context"
	"time"

	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
)

// ExpiringBatchAlert is one expiring batch with its countdown
type ExpiringBatchAlert struct {
	*repository.ExpiringBatch
	DaysUntilExpiry int `json:"days_until_expiry"`
}

// StockSummary is the dashboard rollup of the organisation's stock health
type StockSummary struct {
	TotalItems   int `json:"total_items"`
	Healthy      int `json:"healthy"`
	LowStock     int `json:"low_stock"`
	ExpiringSoon int `json:"expiring_soon"`
	Expired      int `json:"expired"`
}

// LowStockItems lists items at or below their reorder level
func (s *Service) LowStockItems(ctx context.Context) ([]*Item, error) {
	items, err := s.items.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*Item, 0, len(items))
	for _, it := range items {
		result = append(result, s.enrich(it))
	}

	return result, nil
}

// ExpiringBatches lists non-empty batches expiring within the horizon,
// soonest first. Already-expired batches show a negative countdown.
func (s *Service) ExpiringBatches(ctx context.Context, withinDays int) ([]*ExpiringBatchAlert, error) {
	if withinDays <= 0 {
		withinDays = s.cfg.ExpiringSoonDays
	}

	batches, err := s.batches.ListExpiring(ctx, withinDays)
	if err != nil {
		return nil, err
	}

	today := s.now().Truncate(24 * time.Hour)

	alerts := make([]*ExpiringBatchAlert, 0, len(batches))
	for _, b := range batches {
		days := 0
		if b.ExpiryDate != nil {
			days = int(b.ExpiryDate.Truncate(24 * time.Hour).Sub(today).Hours() / 24)
		}
		alerts = append(alerts, &ExpiringBatchAlert{
			ExpiringBatch:   b,
			DaysUntilExpiry: days,
		})
	}

	return alerts, nil
}

// StockSummary rolls up stock health counts across all non-archived items
func (s *Service) StockSummary(ctx context.Context) (*StockSummary, error) {
	items, err := s.allItems(ctx)
	if err != nil {
		return nil, err
	}

	summary := &StockSummary{TotalItems: len(items)}
	for _, item := range items {
		switch s.enrich(item).StockStatus {
		case StockLow:
			summary.LowStock++
		case StockExpiringSoon:
			summary.ExpiringSoon++
		case StockExpired:
			summary.Expired++
		default:
			summary.Healthy++
		}
	}

	return summary, nil
}

// allItems fetches every non-archived item without pagination
func (s *Service) allItems(ctx context.Context) ([]*repository.InventoryItem, error) {
	items, _, err := s.items.List(ctx, repository.ItemFilter{})
	return items, err
}
