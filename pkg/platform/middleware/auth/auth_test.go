package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"caseflow/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

func TestRequireIdentity(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	const user = "0b7c5c1e-8a47-4f5e-9d2a-3c1f9b2e4d10"

	var gotTenant, gotCell, gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = requestcontext.TenantID(r.Context())
		gotCell = requestcontext.CellID(r.Context())
		gotUser = requestcontext.UserID(r.Context()).String()
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name      string
		header    string
		validator stubValidator
		status    int
	}{
		{"missing header", "", stubValidator{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubValidator{}, http.StatusUnauthorized},
		{"invalid token", "Bearer x", stubValidator{err: errors.New("bad")}, http.StatusUnauthorized},
		{"bad subject", "Bearer x", stubValidator{claims: &JWTClaims{UserID: "nope", TenantID: "T1", CellID: "C1"}}, http.StatusUnauthorized},
		{"missing cell", "Bearer x", stubValidator{claims: &JWTClaims{UserID: user, TenantID: "T1"}}, http.StatusUnauthorized},
		{"valid", "Bearer x", stubValidator{claims: &JWTClaims{UserID: user, TenantID: "T1", CellID: "C1"}}, http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			RequireIdentity(tc.validator, logger)(next).ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	assert.Equal(t, "T1", gotTenant)
	assert.Equal(t, "C1", gotCell)
	assert.Equal(t, user, gotUser)
}
