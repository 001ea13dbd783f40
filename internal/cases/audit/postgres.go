package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	txcontext "caseflow/pkg/platform/tx"
)

// PostgresStore persists entries in the case_audit_log table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts an entry keyed by its event id.
// Redelivered events are ignored via ON CONFLICT DO NOTHING.
func (s *PostgresStore) Append(ctx context.Context, entry models.AuditEntry) error {
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadata = b
	}

	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO case_audit_log (
			event_id, event_type, case_id, case_number, case_version,
			status, metadata, occurred_at, tenant_id, cell_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING`,
		uuid.UUID(entry.EventID),
		string(entry.EventType),
		uuid.UUID(entry.CaseID),
		entry.CaseNumber,
		entry.CaseVersion,
		string(entry.Status),
		metadata,
		entry.Timestamp,
		entry.TenantID,
		entry.CellID,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCase(ctx context.Context, scope models.Scope, caseID id.CaseID) ([]models.AuditEntry, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT event_id, event_type, case_id, case_number, case_version,
			   status, metadata, occurred_at, tenant_id, cell_id
		FROM case_audit_log
		WHERE tenant_id = $1 AND cell_id = $2 AND case_id = $3
		ORDER BY case_version ASC, occurred_at ASC`,
		scope.TenantID, scope.CellID, uuid.UUID(caseID),
	)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		var (
			entry              models.AuditEntry
			eventID, entryCase uuid.UUID
			eventType, status  string
			metadata           []byte
		)
		if err := rows.Scan(&eventID, &eventType, &entryCase, &entry.CaseNumber, &entry.CaseVersion,
			&status, &metadata, &entry.Timestamp, &entry.TenantID, &entry.CellID); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.EventID = id.EventID(eventID)
		entry.CaseID = id.CaseID(entryCase)
		entry.EventType = models.EventType(eventType)
		entry.Status = models.Status(status)
		entry.Timestamp = entry.Timestamp.UTC()
		if len(metadata) > 0 && string(metadata) != "{}" {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
