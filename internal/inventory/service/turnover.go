package service

import (
	"context"
	"math"
	"time"
)

// Turnover status bands
const (
	TurnoverExcellent = "EXCELLENT"
	TurnoverHealthy   = "HEALTHY"
	TurnoverModerate  = "MODERATE"
	TurnoverLow       = "LOW"
)

// TurnoverRow is one item's turnover figures over the analysis window
type TurnoverRow struct {
	ItemID             string  `json:"item_id"`
	ItemName           string  `json:"item_name"`
	Category           string  `json:"category"`
	BeginningInventory int     `json:"beginning_inventory"`
	EndingInventory    int     `json:"ending_inventory"`
	AvgInventory       float64 `json:"avg_inventory"`
	TotalPurchased     int     `json:"total_purchased"`
	TurnsPerYear       float64 `json:"turns_per_year"`
	DaysOnShelf        float64 `json:"days_on_shelf"`
	Status             string  `json:"status"`
}

// bandTurnover maps turns/year to a status band
func bandTurnover(turnsPerYear float64) string {
	switch {
	case turnsPerYear >= 12:
		return TurnoverExcellent
	case turnsPerYear >= 6:
		return TurnoverHealthy
	case turnsPerYear >= 3:
		return TurnoverModerate
	default:
		return TurnoverLow
	}
}

// computeTurnover derives the analytical figures from the raw inputs.
// Zero average inventory yields zero turns; zero turns yields zero
// days-on-shelf, avoiding both divisions by zero.
func computeTurnover(beginning, ending, purchased int) (avg, turns, days float64) {
	avg = float64(beginning+ending) / 2

	if avg > 0 {
		turns = float64(purchased) / avg
	}
	if turns > 0 {
		days = 365 / turns
	}

	// Round to two decimals for stable presentation
	turns = math.Round(turns*100) / 100
	days = math.Round(days*100) / 100

	return avg, turns, days
}

// TurnoverByItem computes per-item turnover over the given window.
// Ending inventory is the current cached on-hand; beginning inventory is
// reconstructed from batch creation timestamps; purchases come from
// positive PURCHASE ledger rows. The window defaults to the trailing
// configured number of months.
func (s *Service) TurnoverByItem(ctx context.Context, from, to *time.Time) ([]TurnoverRow, error) {
	end := s.now()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, -s.cfg.TurnoverWindowMonths, 0)
	if from != nil {
		start = *from
	}

	items, err := s.allItems(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]TurnoverRow, 0, len(items))
	for _, item := range items {
		beginning, err := s.batches.SumQuantityCreatedBefore(ctx, item.ID, start)
		if err != nil {
			return nil, err
		}

		purchased, err := s.movements.SumPurchases(ctx, item.ID, start, end)
		if err != nil {
			return nil, err
		}

		avg, turns, days := computeTurnover(beginning, item.OnHand, purchased)

		rows = append(rows, TurnoverRow{
			ItemID:             item.ID,
			ItemName:           item.Name,
			Category:           item.Category,
			BeginningInventory: beginning,
			EndingInventory:    item.OnHand,
			AvgInventory:       avg,
			TotalPurchased:     purchased,
			TurnsPerYear:       turns,
			DaysOnShelf:        days,
			Status:             bandTurnover(turns),
		})
	}

	return rows, nil
}
