package models

import (
	dErrors "caseflow/pkg/domain-errors"
)

// Scope is the tenant/cell pair every operation runs under. A case outside
// the caller's scope is reported exactly like a missing case.
type Scope struct {
	TenantID string
	CellID   string
}

func (s Scope) Validate() error {
	if s.TenantID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "tenant is required")
	}
	if s.CellID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "cell is required")
	}
	return nil
}

// Owns reports whether c belongs to the scope.
func (s Scope) Owns(c *Case) bool {
	return c != nil && c.TenantID == s.TenantID && c.CellID == s.CellID
}
