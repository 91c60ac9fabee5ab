package service

import "time"

// Stock health statuses
const (
	StockHealthy      = "HEALTHY"
	StockLow          = "LOW_STOCK"
	StockExpired      = "EXPIRED"
	StockExpiringSoon = "EXPIRING_SOON"
)

// ClassifyStock computes the display status for an item's current aggregate.
// Expiry checks take precedence over stock-level checks: an item can be
// numerically healthy but expiring. First match wins:
//
//  1. EXPIRED if the nearest expiry is in the past
//  2. EXPIRING_SOON if it falls within soonThresholdDays
//  3. LOW_STOCK if a reorder level is set and onHand <= reorderLevel
//  4. HEALTHY otherwise
func ClassifyStock(onHand int, reorderLevel *int, nearestExpiry *time.Time, soonThresholdDays int, now time.Time) string {
	if nearestExpiry != nil {
		today := now.Truncate(24 * time.Hour)
		expiry := nearestExpiry.Truncate(24 * time.Hour)

		if expiry.Before(today) {
			return StockExpired
		}
		if expiry.Before(today.AddDate(0, 0, soonThresholdDays)) {
			return StockExpiringSoon
		}
	}

	if reorderLevel != nil && onHand <= *reorderLevel {
		return StockLow
	}

	return StockHealthy
}
