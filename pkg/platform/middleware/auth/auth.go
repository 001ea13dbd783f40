package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "caseflow/pkg/domain"
	request "caseflow/pkg/platform/middleware/request"
	"caseflow/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the identity claims we expect from the JWT validator
type JWTClaims struct {
	UserID   string
	TenantID string
	CellID   string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireIdentity validates the bearer token and stores the actor, tenant
// and cell in the request context.
func RequireIdentity(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil || claims.TenantID == "" || claims.CellID == "" {
				logger.WarnContext(ctx, "unauthorized access - incomplete identity",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Token does not carry a usable identity")
				return
			}

			ctx = requestcontext.WithIdentity(ctx, userID, claims.TenantID, claims.CellID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
