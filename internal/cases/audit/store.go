// Package audit materializes case events into a queryable history log.
//
// In Kafka deployments the Handler consumes the case-events topic; without
// Kafka the Recorder is subscribed directly to the in-memory emitter.
package audit

import (
	"context"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
)

// Store persists audit entries. Append is idempotent by event id.
type Store interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	ListByCase(ctx context.Context, scope models.Scope, caseID id.CaseID) ([]models.AuditEntry, error)
}
