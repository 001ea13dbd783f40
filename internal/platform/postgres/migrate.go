package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	txcontext "caseflow/pkg/platform/tx"
)

// Migration is one forward-only schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrationLockKey serializes concurrent migrators across instances.
const migrationLockKey = 7_420_011

// Migrations is the ordered schema history of the service.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_cases",
		SQL: `
CREATE TABLE IF NOT EXISTS cases (
	id           UUID PRIMARY KEY,
	case_number  TEXT        NOT NULL,
	title        TEXT        NOT NULL,
	description  TEXT        NOT NULL DEFAULT '',
	case_type    TEXT        NOT NULL,
	priority     TEXT        NOT NULL,
	status       TEXT        NOT NULL,
	assigned_to  UUID,
	created_by   UUID        NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	closed_at    TIMESTAMPTZ,
	metadata     JSONB       NOT NULL DEFAULT '{}'::jsonb,
	tags         TEXT[]      NOT NULL DEFAULT '{}',
	version      BIGINT      NOT NULL,
	tenant_id    TEXT        NOT NULL,
	cell_id      TEXT        NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cases_tenant_number ON cases (tenant_id, case_number);
CREATE INDEX IF NOT EXISTS idx_cases_scope_created ON cases (tenant_id, cell_id, created_at DESC, id);
CREATE INDEX IF NOT EXISTS idx_cases_scope_status ON cases (tenant_id, cell_id, status);
CREATE INDEX IF NOT EXISTS idx_cases_tags ON cases USING GIN (tags);
`,
	},
	{
		Version: 2,
		Name:    "create_case_audit_log",
		SQL: `
CREATE TABLE IF NOT EXISTS case_audit_log (
	event_id     UUID PRIMARY KEY,
	event_type   TEXT        NOT NULL,
	case_id      UUID        NOT NULL,
	case_number  TEXT        NOT NULL,
	case_version BIGINT      NOT NULL,
	status       TEXT        NOT NULL,
	metadata     JSONB       NOT NULL DEFAULT '{}'::jsonb,
	occurred_at  TIMESTAMPTZ NOT NULL,
	tenant_id    TEXT        NOT NULL,
	cell_id      TEXT        NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_case_audit_log_case ON case_audit_log (tenant_id, cell_id, case_id, case_version);
`,
	},
}

// Migrate applies pending migrations, each in its own transaction.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT        NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range Migrations {
		applied, err := runMigration(ctx, db, m)
		if err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if applied && logger != nil {
			logger.InfoContext(ctx, "applied migration", "version", m.Version, "name", m.Name)
		}
	}
	return nil
}

func runMigration(ctx context.Context, db *sql.DB, m Migration) (applied bool, err error) {
	err = txcontext.RunInTx(ctx, db, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, db)
		if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}

		var exists bool
		if err := exec.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check migration: %w", err)
		}
		if exists {
			return nil
		}

		if _, err := exec.ExecContext(ctx, m.SQL); err != nil {
			return err
		}
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)`,
			m.Version, m.Name, time.Now().UTC(),
		); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}
