// Package sequence allocates gap-free case number sequences per
// (case type, month, tenant).
package sequence

import (
	"context"
	"fmt"
	"time"

	"caseflow/internal/cases/models"
	dErrors "caseflow/pkg/domain-errors"
)

// KeyPrefix namespaces counter keys in the shared store.
const KeyPrefix = "case_sequence"

// Counter atomically increments key and returns the new value. The key
// must expire after ttl; refreshing the ttl on every increment is allowed.
type Counter interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Allocator turns counter increments into case numbers.
type Allocator struct {
	counter Counter
	ttl     time.Duration
}

func NewAllocator(counter Counter, ttl time.Duration) *Allocator {
	return &Allocator{counter: counter, ttl: ttl}
}

// Key returns the counter key for a case type, month and tenant.
func Key(caseType models.CaseType, yearMonth, tenantID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", KeyPrefix, caseType.Prefix(), yearMonth, tenantID)
}

// Next allocates the next case number for caseType in tenantID's month of now.
// Counter failures and sequence overflow are reported as AllocationFailure.
func (a *Allocator) Next(ctx context.Context, caseType models.CaseType, tenantID string, now time.Time) (string, error) {
	if !caseType.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown case type: %s", caseType)
	}
	yearMonth := models.YearMonth(now)
	seq, err := a.counter.Increment(ctx, Key(caseType, yearMonth, tenantID), a.ttl)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeAllocationFailure, "failed to allocate case number")
	}
	if seq < 1 || seq > models.MaxSequence {
		return "", dErrors.Newf(dErrors.CodeAllocationFailure,
			"case number sequence exhausted for %s %s", caseType, yearMonth)
	}
	return models.CaseNumber{
		CaseType:   caseType,
		YearMonth:  yearMonth,
		Sequence:   seq,
		TenantHash: models.TenantHash(tenantID),
	}.String(), nil
}
