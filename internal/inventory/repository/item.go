package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pawsuite/pawsuite-backend/pkg/database"
	"github.com/pawsuite/pawsuite-backend/pkg/errors"
	"github.com/pawsuite/pawsuite-backend/pkg/org"
)

// Item status values
const (
	StatusActive  = "ACTIVE"
	StatusHidden  = "HIDDEN"
	StatusDeleted = "DELETED"
)

// Business types
const (
	BusinessTypeHospital = "HOSPITAL"
	BusinessTypeGrooming = "GROOMING"
	BusinessTypeBoarding = "BOARDING"
	BusinessTypeBreeding = "BREEDING"
	BusinessTypeGeneral  = "GENERAL"
)

// Attributes is a schema-less key to scalar map. Keys and value types are
// validated by the external meta-field registry, not by this service.
type Attributes map[string]any

// Value implements driver.Valuer, storing attributes as JSONB
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner
func (a *Attributes) Scan(src any) error {
	if src == nil {
		*a = Attributes{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("attributes: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, a)
}

// InventoryItem represents a stock item. OnHand, Allocated and NearestExpiry
// are a cached projection of the item's batches; the batches are the source
// of truth and the cache is reconciled after every batch mutation.
type InventoryItem struct {
	ID                string      `db:"id" json:"id"`
	Name              string      `db:"name" json:"name"`
	SKU               *string     `db:"sku" json:"sku,omitempty"`
	Description       *string     `db:"description" json:"description,omitempty"`
	BusinessType      string      `db:"business_type" json:"business_type"`
	Category          string      `db:"category" json:"category"`
	SubCategory       *string     `db:"sub_category" json:"sub_category,omitempty"`
	Attributes        Attributes  `db:"attributes" json:"attributes"`
	UnitCostCents     int         `db:"unit_cost_cents" json:"unit_cost_cents"`
	SellingPriceCents int         `db:"selling_price_cents" json:"selling_price_cents"`
	Currency          string      `db:"currency" json:"currency"`
	ReorderLevel      *int        `db:"reorder_level" json:"reorder_level,omitempty"`
	VendorID          *string     `db:"vendor_id" json:"vendor_id,omitempty"`
	Status            string      `db:"status" json:"status"`
	OnHand            int         `db:"on_hand" json:"on_hand"`
	Allocated         int         `db:"allocated" json:"allocated"`
	NearestExpiry     *time.Time  `db:"nearest_expiry" json:"nearest_expiry,omitempty"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

// ItemFilter narrows item listings. Status defaults are applied by the
// service layer (DELETED is excluded unless asked for explicitly).
type ItemFilter struct {
	BusinessType string
	Category     string
	SubCategory  string
	Search       string
	Statuses     []string
	Page         int
	PerPage      int
}

const itemColumns = `id, name, sku, description, business_type, category, sub_category,
	       attributes, unit_cost_cents, selling_price_cents, currency, reorder_level,
	       vendor_id, status, on_hand, allocated, nearest_expiry, created_at, updated_at`

// ItemRepository handles inventory item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create creates a new inventory item
// ORG-ISOLATED: inserts carry the organisation id from context
func (r *ItemRepository) Create(ctx context.Context, item *InventoryItem) error {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return err // Fail-fast if organisation context missing
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Currency == "" {
		item.Currency = "EUR"
	}
	if item.Status == "" {
		item.Status = StatusActive
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			INSERT INTO inventory_items (
				id, org_id, name, sku, description, business_type, category, sub_category,
				attributes, unit_cost_cents, selling_price_cents, currency, reorder_level,
				vendor_id, status, on_hand, allocated, nearest_expiry
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			RETURNING created_at, updated_at
		`

		return r.db.QueryRowxContext(ctx, query,
			item.ID, orgID, item.Name, item.SKU, item.Description, item.BusinessType,
			item.Category, item.SubCategory, item.Attributes, item.UnitCostCents,
			item.SellingPriceCents, item.Currency, item.ReorderLevel, item.VendorID,
			item.Status, item.OnHand, item.Allocated, item.NearestExpiry,
		).Scan(&item.CreatedAt, &item.UpdatedAt)
	})
}

// GetByID gets an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*InventoryItem, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var item InventoryItem

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1`
		return r.db.GetContext(ctx, &item, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("item")
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// List lists inventory items matching the filter
func (r *ItemRepository) List(ctx context.Context, filter ItemFilter) ([]*InventoryItem, int64, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	var items []*InventoryItem

	where := ` WHERE status = ANY($1)`
	args := []interface{}{statusArray(filter.Statuses)}

	if filter.BusinessType != "" {
		args = append(args, filter.BusinessType)
		where += fmt.Sprintf(" AND business_type = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.SubCategory != "" {
		args = append(args, filter.SubCategory)
		where += fmt.Sprintf(" AND sub_category = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (name ILIKE $%d OR sku ILIKE $%d OR description ILIKE $%d)", n, n, n)
	}

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		countQuery := `SELECT COUNT(*) FROM inventory_items` + where
		if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
			return err
		}

		query := `SELECT ` + itemColumns + ` FROM inventory_items` + where + ` ORDER BY name`

		if filter.PerPage > 0 {
			offset := (filter.Page - 1) * filter.PerPage
			if offset < 0 {
				offset = 0
			}
			args = append(args, filter.PerPage, offset)
			query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
		}

		return r.db.SelectContext(ctx, &items, query, args...)
	})

	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Update updates an inventory item's catalog fields. The cached aggregate
// fields are only touched through UpdateAggregate and UpdateAllocated.
func (r *ItemRepository) Update(ctx context.Context, item *InventoryItem) error {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			UPDATE inventory_items SET
				name = $2, sku = $3, description = $4, business_type = $5, category = $6,
				sub_category = $7, attributes = $8, unit_cost_cents = $9,
				selling_price_cents = $10, currency = $11, reorder_level = $12,
				vendor_id = $13, updated_at = NOW()
			WHERE id = $1 AND status <> 'DELETED'
		`

		result, err := r.db.ExecContext(ctx, query,
			item.ID, item.Name, item.SKU, item.Description, item.BusinessType,
			item.Category, item.SubCategory, item.Attributes, item.UnitCostCents,
			item.SellingPriceCents, item.Currency, item.ReorderLevel, item.VendorID,
		)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("item")
		}

		return nil
	})
}

// UpdateStatus transitions an item between ACTIVE, HIDDEN and DELETED.
// Transitions are unconditional: outstanding allocations do not block them.
func (r *ItemRepository) UpdateStatus(ctx context.Context, id, status string) error {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `UPDATE inventory_items SET status = $2, updated_at = NOW() WHERE id = $1`
		result, err := r.db.ExecContext(ctx, query, id, status)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("item")
		}

		return nil
	})
}

// UpdateAggregate refreshes the cached projection after a batch mutation.
// Allocated is item-level authoritative but clamped to the new on-hand so
// the allocated <= on_hand invariant survives consumption below the
// allocated level.
func (r *ItemRepository) UpdateAggregate(ctx context.Context, id string, onHand int, nearestExpiry *time.Time) (*InventoryItem, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var item InventoryItem

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			UPDATE inventory_items SET
				on_hand = $2, allocated = LEAST(allocated, $2), nearest_expiry = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING ` + itemColumns

		return r.db.GetContext(ctx, &item, query, id, onHand, nearestExpiry)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("item")
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// UpdateAllocated sets the item-level allocation counter
func (r *ItemRepository) UpdateAllocated(ctx context.Context, id string, allocated int) (*InventoryItem, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var item InventoryItem

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			UPDATE inventory_items SET allocated = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING ` + itemColumns

		return r.db.GetContext(ctx, &item, query, id, allocated)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("item")
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// ListLowStock lists non-deleted items at or below their reorder level
func (r *ItemRepository) ListLowStock(ctx context.Context) ([]*InventoryItem, error) {
	orgID, err := org.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var items []*InventoryItem

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			SELECT ` + itemColumns + `
			FROM inventory_items
			WHERE status <> 'DELETED' AND reorder_level IS NOT NULL AND on_hand <= reorder_level
			ORDER BY name
		`
		return r.db.SelectContext(ctx, &items, query)
	})

	if err != nil {
		return nil, err
	}

	return items, nil
}

// statusArray renders a status set as a Postgres text array literal
func statusArray(statuses []string) string {
	if len(statuses) == 0 {
		statuses = []string{StatusActive, StatusHidden}
	}
	out := "{"
	for i, s := range statuses {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out + "}"
}
