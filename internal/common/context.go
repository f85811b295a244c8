package common

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated principal for a request, recovered from
// access-token claims. It is immutable and carried via the request context
// so controllers never re-derive tenant or user from the database.
type Identity struct {
	UserID     uuid.UUID
	TenantID   uuid.UUID
	Role       string
	TenantSlug string
}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the authenticated identity from the request
// context. The second return is false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
