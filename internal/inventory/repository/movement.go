package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pawsuite/pawsuite-backend/pkg/database"
	"github.com/pawsuite/pawsuite-backend/pkg/org"
)

// Movement reasons
const (
	ReasonAppointmentUsage = "APPOINTMENT_USAGE"
	ReasonManualAdjustment = "MANUAL_ADJUSTMENT"
	ReasonGroomingUsage    = "GROOMING_USAGE"
	ReasonBoardingUsage    = "BOARDING_USAGE"
	ReasonPurchase         = "PURCHASE"
	ReasonAllocated        = "ALLOCATED"
	ReasonUnallocated      = "UNALLOCATED"
	ReasonOther            = "OTHER"
)

// StockMovement is one row of the append-only movement ledger. Rows are
// never updated or deleted; corrections are expressed as new movements.
type StockMovement struct {
	ID          string    `db:"id" json:"id"`
	ItemID      string    `db:"item_id" json:"item_id"`
	BatchID     *string   `db:"batch_id" json:"batch_id,omitempty"`
	Change      int       `db:"change" json:"change"`
	Reason      string    `db:"reason" json:"reason"`
	ReferenceID *string   `db:"reference_id" json:"reference_id,omitempty"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	Note        *string   `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MovementFilter narrows movement listings
type MovementFilter struct {
	Reason string
	From   *time.Time
	To     *time.Time
	Limit  int
}

// MovementRepository handles the stock movement ledger
type MovementRepository struct {
	db *database.DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Create appends a movement to the ledger
func (r *MovementRepository) Create(ctx context.Context, movement *StockMovement) error {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return err
	}

	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			INSERT INTO stock_movements (
				id, org_id, item_id, batch_id, change, reason, reference_id, user_id, note
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at
		`

		return r.db.QueryRowxContext(ctx, query,
			movement.ID, orgID, movement.ItemID, movement.BatchID, movement.Change,
			movement.Reason, movement.ReferenceID, movement.UserID, movement.Note,
		).Scan(&movement.CreatedAt)
	})
}

// CreateAll appends several movements in order. Used for multi-batch
// consumption where one request produces one movement per drained batch.
func (r *MovementRepository) CreateAll(ctx context.Context, movements []*StockMovement) error {
	for _, m := range movements {
		if err := r.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// ListByItem lists an item's movements, newest first
func (r *MovementRepository) ListByItem(ctx context.Context, itemID string, filter MovementFilter) ([]*StockMovement, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var movements []*StockMovement

	where := ` WHERE item_id = $1`
	args := []interface{}{itemID}

	if filter.Reason != "" {
		args = append(args, filter.Reason)
		where += fmt.Sprintf(" AND reason = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			SELECT id, item_id, batch_id, change, reason, reference_id, user_id, note, created_at
			FROM stock_movements` + where + ` ORDER BY created_at DESC, id DESC`

		if filter.Limit > 0 {
			args = append(args, filter.Limit)
			query += fmt.Sprintf(" LIMIT $%d", len(args))
		}

		return r.db.SelectContext(ctx, &movements, query, args...)
	})

	if err != nil {
		return nil, err
	}

	return movements, nil
}

// SumPurchases totals positive PURCHASE movements for an item in a window
func (r *MovementRepository) SumPurchases(ctx context.Context, itemID string, from, to time.Time) (int, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return 0, err
	}

	var total int

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			SELECT COALESCE(SUM(change), 0)
			FROM stock_movements
			WHERE item_id = $1 AND reason = 'PURCHASE' AND change > 0
			  AND created_at >= $2 AND created_at < $3
		`
		return r.db.GetContext(ctx, &total, query, itemID, from, to)
	})

	if err != nil {
		return 0, err
	}

	return total, nil
}
