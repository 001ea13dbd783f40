package testutil

import (
	"context"
	"net/http"
	"time"

	id "caseflow/pkg/domain"
	"caseflow/pkg/requestcontext"
)

// WithIdentity adds the actor, tenant and cell to the request context.
// This simulates what the identity middleware does for authenticated requests.
// If the userID is not a valid UUID, the request is returned unchanged.
func WithIdentity(req *http.Request, userID, tenantID, cellID string) *http.Request {
	parsedUserID, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	ctx := requestcontext.WithIdentity(req.Context(), parsedUserID, tenantID, cellID)
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
