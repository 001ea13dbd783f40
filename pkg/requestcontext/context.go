// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the identity context (actor, tenant, cell), the request ID and the
// request time; services read them without importing net/http.
//
//	actor := requestcontext.UserID(ctx)
//	tenant := requestcontext.TenantID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithIdentity(ctx, userID, "tenant-a", "cell-1")
package requestcontext

import (
	"context"
	"time"

	id "caseflow/pkg/domain"
)

type (
	userIDKey      struct{}
	tenantIDKey    struct{}
	cellIDKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyUserID      = userIDKey{}
	ContextKeyTenantID    = tenantIDKey{}
	ContextKeyCellID      = cellIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Identity context (actor, tenant, cell)
// -----------------------------------------------------------------------------

// UserID retrieves the authenticated actor from the context.
// Returns the zero value (nil UUID) if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(ContextKeyUserID).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// TenantID retrieves the caller's tenant.
func TenantID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyTenantID).(string); ok {
		return v
	}
	return ""
}

// CellID retrieves the caller's cell.
func CellID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyCellID).(string); ok {
		return v
	}
	return ""
}

// WithIdentity injects the actor and the tenant/cell pair.
func WithIdentity(ctx context.Context, userID id.UserID, tenantID, cellID string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, ContextKeyTenantID, tenantID)
	return context.WithValue(ctx, ContextKeyCellID, cellID)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
