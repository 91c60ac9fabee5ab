package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// WithOrgRLS executes a function with RLS-based organisation isolation.
//
// Usage in repositories:
//
//	orgID, err := org.OrgID(ctx)
//	if err != nil { return err }
//	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
//	    return r.db.GetContext(ctx, &item, "SELECT * FROM inventory_items WHERE id = $1", id)
//	})
//
// How it works:
//  1. Starts a transaction
//  2. Sets "SET LOCAL search_path TO <service_schema>, public"
//  3. Sets "SET LOCAL app.current_org = '<org-uuid>'"
//  4. RLS policies filter rows: USING (org_id = current_setting('app.current_org')::uuid)
//  5. Commits the transaction, which cleans up the session variables
//
// SET LOCAL is transaction scoped, so pooled connections (PgBouncer) start
// the next request with clean state, and the WITH CHECK side of the policy
// prevents inserting rows for the wrong organisation.
func (db *DB) WithOrgRLS(ctx context.Context, orgID string, fn func(context.Context) error) error {
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		searchPath := db.searchPath
		if searchPath == "" {
			searchPath = "public"
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL search_path TO %s", searchPath)); err != nil {
			return fmt.Errorf("failed to set search_path to %s: %w", searchPath, err)
		}

		// NOTE: SET LOCAL doesn't support parameterized queries ($1), must use fmt.Sprintf.
		// This is safe because orgID is a UUID validated upstream (not user input).
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL app.current_org = '%s'", orgID)); err != nil {
			return fmt.Errorf("failed to set app.current_org to %s: %w", orgID, err)
		}

		// Store transaction in context so DB methods use it
		txCtx := context.WithValue(ctx, txKey{}, tx)

		return fn(txCtx)
	})
}

// getTx extracts transaction from context if present
func (db *DB) getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
