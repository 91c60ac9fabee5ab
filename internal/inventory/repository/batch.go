package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pawsuite/pawsuite-backend/pkg/database"
	"github.com/pawsuite/pawsuite-backend/pkg/errors"
	"github.com/pawsuite/pawsuite-backend/pkg/org"
)

// InventoryBatch represents a physical lot of stock for an item. Batches
// carry the expiry dates; consumption drains them in expiry order.
type InventoryBatch struct {
	ID                    string     `db:"id" json:"id"`
	ItemID                string     `db:"item_id" json:"item_id"`
	BatchNumber           *string    `db:"batch_number" json:"batch_number,omitempty"`
	LotNumber             *string    `db:"lot_number" json:"lot_number,omitempty"`
	RegulatoryTrackingID  *string    `db:"regulatory_tracking_id" json:"regulatory_tracking_id,omitempty"`
	ManufactureDate       *time.Time `db:"manufacture_date" json:"manufacture_date,omitempty"`
	ExpiryDate            *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	MinShelfLifeAlertDate *time.Time `db:"min_shelf_life_alert_date" json:"min_shelf_life_alert_date,omitempty"`
	Quantity              int        `db:"quantity" json:"quantity"`
	Allocated             int        `db:"allocated" json:"allocated"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// StockAggregate is the projection derived from an item's batches
type StockAggregate struct {
	OnHand        int        `db:"on_hand"`
	NearestExpiry *time.Time `db:"nearest_expiry"`
}

// ExpiringBatch joins a batch with its item for expiry reporting
type ExpiringBatch struct {
	InventoryBatch
	ItemName string `db:"item_name" json:"item_name"`
}

const batchColumns = `id, item_id, batch_number, lot_number, regulatory_tracking_id,
	       manufacture_date, expiry_date, min_shelf_life_alert_date, quantity, allocated,
	       created_at, updated_at`

// fifoOrder drains batches nearest-expiry first; undated batches go last.
// The id tiebreak keeps the order deterministic for same-day expiries.
const fifoOrder = ` ORDER BY expiry_date ASC NULLS LAST, id ASC`

// BatchRepository handles inventory batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create creates a new batch
func (r *BatchRepository) Create(ctx context.Context, batch *InventoryBatch) error {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return err
	}

	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			INSERT INTO inventory_batches (
				id, org_id, item_id, batch_number, lot_number, regulatory_tracking_id,
				manufacture_date, expiry_date, min_shelf_life_alert_date, quantity, allocated
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at, updated_at
		`

		return r.db.QueryRowxContext(ctx, query,
			batch.ID, orgID, batch.ItemID, batch.BatchNumber, batch.LotNumber,
			batch.RegulatoryTrackingID, batch.ManufactureDate, batch.ExpiryDate,
			batch.MinShelfLifeAlertDate, batch.Quantity, batch.Allocated,
		).Scan(&batch.CreatedAt, &batch.UpdatedAt)
	})
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*InventoryBatch, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var batch InventoryBatch

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `SELECT ` + batchColumns + ` FROM inventory_batches WHERE id = $1`
		return r.db.GetContext(ctx, &batch, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("batch")
	}
	if err != nil {
		return nil, err
	}

	return &batch, nil
}

// ListByItem lists an item's batches in consumption order
func (r *BatchRepository) ListByItem(ctx context.Context, itemID string) ([]*InventoryBatch, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var batches []*InventoryBatch

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `SELECT ` + batchColumns + ` FROM inventory_batches WHERE item_id = $1` + fifoOrder
		return r.db.SelectContext(ctx, &batches, query, itemID)
	})

	if err != nil {
		return nil, err
	}

	return batches, nil
}

// Update updates a batch's descriptive fields and quantity
func (r *BatchRepository) Update(ctx context.Context, batch *InventoryBatch) error {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			UPDATE inventory_batches SET
				batch_number = $2, lot_number = $3, regulatory_tracking_id = $4,
				manufacture_date = $5, expiry_date = $6, min_shelf_life_alert_date = $7,
				quantity = $8, updated_at = NOW()
			WHERE id = $1
		`

		result, err := r.db.ExecContext(ctx, query,
			batch.ID, batch.BatchNumber, batch.LotNumber, batch.RegulatoryTrackingID,
			batch.ManufactureDate, batch.ExpiryDate, batch.MinShelfLifeAlertDate,
			batch.Quantity,
		)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("batch")
		}

		return nil
	})
}

// UpdateQuantity sets a batch's remaining quantity
func (r *BatchRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `UPDATE inventory_batches SET quantity = $2, updated_at = NOW() WHERE id = $1`
		result, err := r.db.ExecContext(ctx, query, id, quantity)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("batch")
		}

		return nil
	})
}

// Delete removes a batch
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM inventory_batches WHERE id = $1`, id)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("batch")
		}

		return nil
	})
}

// Aggregate derives the item's on-hand quantity and nearest expiry from its
// batches. Zero-quantity batches contribute nothing to either figure.
func (r *BatchRepository) Aggregate(ctx context.Context, itemID string) (*StockAggregate, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var agg StockAggregate

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			SELECT
				COALESCE(SUM(quantity), 0) AS on_hand,
				MIN(expiry_date) FILTER (WHERE quantity > 0) AS nearest_expiry
			FROM inventory_batches
			WHERE item_id = $1
		`
		return r.db.GetContext(ctx, &agg, query, itemID)
	})

	if err != nil {
		return nil, err
	}

	return &agg, nil
}

// SumQuantityCreatedBefore sums remaining quantity across batches created
// before the cutoff. Used as the opening-stock estimate for turnover.
func (r *BatchRepository) SumQuantityCreatedBefore(ctx context.Context, itemID string, cutoff time.Time) (int, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return 0, err
	}

	var total int

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			SELECT COALESCE(SUM(quantity), 0)
			FROM inventory_batches
			WHERE item_id = $1 AND created_at < $2
		`
		return r.db.GetContext(ctx, &total, query, itemID, cutoff)
	})

	if err != nil {
		return 0, err
	}

	return total, nil
}

// ListExpiring lists non-empty batches of non-deleted items whose expiry
// falls within the given horizon, soonest first. Already-expired batches
// with remaining stock are included.
func (r *BatchRepository) ListExpiring(ctx context.Context, withinDays int) ([]*ExpiringBatch, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var batches []*ExpiringBatch

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			SELECT b.id, b.item_id, b.batch_number, b.lot_number, b.regulatory_tracking_id,
			       b.manufacture_date, b.expiry_date, b.min_shelf_life_alert_date,
			       b.quantity, b.allocated, b.created_at, b.updated_at,
			       i.name AS item_name
			FROM inventory_batches b
			JOIN inventory_items i ON i.id = b.item_id
			WHERE b.quantity > 0
			  AND b.expiry_date IS NOT NULL
			  AND b.expiry_date <= NOW() + ($1 || ' days')::interval
			  AND i.status <> 'DELETED'
			ORDER BY b.expiry_date ASC, b.id ASC
		`
		return r.db.SelectContext(ctx, &batches, query, withinDays)
	})

	if err != nil {
		return nil, err
	}

	return batches, nil
}
