package org

import (
	"context"
	"errors"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const orgIDKey contextKey = "org_id"

// ErrNoOrgInContext is returned when organisation context is missing
var ErrNoOrgInContext = errors.New("no organisation in context")

// WithOrgID adds the organisation ID to the context.
// This should be called by middleware after the gateway has authenticated
// the caller; the core never authenticates on its own.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgIDKey, orgID)
}

// OrgID extracts the organisation ID from context.
// Returns ErrNoOrgInContext if it is not present.
func OrgID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(orgIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoOrgInContext
	}
	return id, nil
}

// MustOrgID extracts the organisation ID and panics if missing.
// Use only where a missing organisation is a programming error.
func MustOrgID(ctx context.Context) string {
	id, err := OrgID(ctx)
	if err != nil {
		panic("organisation ID not found in context")
	}
	return id
}
