package auth

import (
	"context"
	"time"
)

// Principal is the authenticated admin attached to a request. It is rebuilt
// from storage using the session's user id, so role changes take effect
// without re-issuing tokens once the per-session cache entry expires.
type Principal struct {
	// UserID references admin_users.id
	UserID int64
	// Email of the admin account
	Email string
	// RoleIDs lists local role identifiers currently assigned
	RoleIDs []int64
	// SessionID is the jti of the session token
	SessionID string
	// IssuedAt is when the session token was issued
	IssuedAt time.Time
}

type principalContextKey struct{}

// SetPrincipal stores the authenticated principal on the context for downstream consumers.
func SetPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext retrieves the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}
