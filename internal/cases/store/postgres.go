package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
	txcontext "caseflow/pkg/platform/tx"
)

const uniqueViolation = "23505"

const caseColumns = `id, case_number, title, description, case_type, priority, status,
	assigned_to, created_by, created_at, updated_at, closed_at, metadata, tags,
	version, tenant_id, cell_id`

// PostgresStore persists cases in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed case registry.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Case) error {
	metadata, err := marshalMetadata(c.Metadata)
	if err != nil {
		return err
	}
	_, err = txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		uuid.UUID(c.ID),
		c.CaseNumber,
		c.Title,
		c.Description,
		string(c.CaseType),
		string(c.Priority),
		string(c.Status),
		nullUserID(c.AssignedTo),
		uuid.UUID(c.CreatedBy.ID),
		c.CreatedAt,
		c.UpdatedAt,
		nullTime(c.ClosedAt),
		metadata,
		pq.Array(tagsOrEmpty(c.Tags)),
		c.Version,
		c.TenantID,
		c.CellID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert case %s: %w", c.CaseNumber, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, scope models.Scope, caseID id.CaseID) (*models.Case, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1 AND tenant_id = $2 AND cell_id = $3`,
		uuid.UUID(caseID), scope.TenantID, scope.CellID,
	)
	return scanOne(row)
}

func (s *PostgresStore) FindByCaseNumber(ctx context.Context, scope models.Scope, number string) (*models.Case, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE case_number = $1 AND tenant_id = $2 AND cell_id = $3`,
		number, scope.TenantID, scope.CellID,
	)
	return scanOne(row)
}

// UpdateIfVersion writes the mutable columns only while the stored version
// equals expectedVersion. Identity and scope columns are never rewritten.
func (s *PostgresStore) UpdateIfVersion(ctx context.Context, c *models.Case, expectedVersion int64) error {
	metadata, err := marshalMetadata(c.Metadata)
	if err != nil {
		return err
	}
	exec := txcontext.ExecutorFrom(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE cases SET
			title = $1, description = $2, priority = $3, status = $4,
			assigned_to = $5, updated_at = $6, closed_at = $7, metadata = $8,
			tags = $9, version = $10
		WHERE id = $11 AND tenant_id = $12 AND cell_id = $13 AND version = $14`,
		c.Title,
		c.Description,
		string(c.Priority),
		string(c.Status),
		nullUserID(c.AssignedTo),
		c.UpdatedAt,
		nullTime(c.ClosedAt),
		metadata,
		pq.Array(tagsOrEmpty(c.Tags)),
		c.Version,
		uuid.UUID(c.ID),
		c.TenantID,
		c.CellID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cases WHERE id = $1 AND tenant_id = $2 AND cell_id = $3)`,
		uuid.UUID(c.ID), c.TenantID, c.CellID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check case existence: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) List(ctx context.Context, scope models.Scope, filter models.ListFilter, offset, limit int) ([]*models.Case, error) {
	where, args := buildWhere(scope, filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE %s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`,
		caseColumns, where, len(args)-1, len(args))
	return s.query(ctx, query, args...)
}

func (s *PostgresStore) Count(ctx context.Context, scope models.Scope, filter models.ListFilter) (int64, error) {
	where, args := buildWhere(scope, filter)
	var n int64
	if err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cases WHERE `+where, args...,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Overdue(ctx context.Context, scope models.Scope, cutoff time.Time, limit int) ([]*models.Case, error) {
	return s.query(ctx, `SELECT `+caseColumns+` FROM cases
		WHERE tenant_id = $1 AND cell_id = $2 AND status = $3 AND created_at < $4
		ORDER BY created_at ASC, id ASC LIMIT $5`,
		scope.TenantID, scope.CellID, string(models.StatusInProgress), cutoff, limit,
	)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Case, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	cases := make([]*models.Case, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return cases, nil
}

// buildWhere renders the scope and filter as ANDed predicates with positional args.
func buildWhere(scope models.Scope, f models.ListFilter) (string, []any) {
	clauses := []string{"tenant_id = $1", "cell_id = $2"}
	args := []any{scope.TenantID, scope.CellID}
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(args))))
	}

	if f.Status != nil {
		add("status = ?", string(*f.Status))
	}
	if f.CaseType != nil {
		add("case_type = ?", string(*f.CaseType))
	}
	if f.Priority != nil {
		add("priority = ?", string(*f.Priority))
	}
	if f.AssignedTo != nil {
		add("assigned_to = ?", uuid.UUID(*f.AssignedTo))
	}
	if f.CreatedBy != nil {
		add("created_by = ?", uuid.UUID(*f.CreatedBy))
	}
	if f.Tag != "" {
		add("? = ANY(tags)", f.Tag)
	}
	if f.Search != "" {
		add(`(title ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\')`, "%"+escapeLike(f.Search)+"%")
	}
	if f.ActiveOnly {
		add("status = ANY(?)", pq.Array(statusCodes(models.StatusOpen, models.StatusInProgress,
			models.StatusPendingReview, models.StatusEscalated)))
	}
	if f.HighPriorityOnly {
		high := models.HighPriorities()
		codes := make([]string, len(high))
		for i, p := range high {
			codes[i] = string(p)
		}
		add("priority = ANY(?)", pq.Array(codes))
	}
	if f.CreatedFrom != nil {
		add("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("created_at <= ?", *f.CreatedTo)
	}
	return strings.Join(clauses, " AND "), args
}

func statusCodes(statuses ...models.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*models.Case, error) {
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return c, err
}

func scanCase(row rowScanner) (*models.Case, error) {
	var (
		c          models.Case
		caseID     uuid.UUID
		createdBy  uuid.UUID
		assignedTo uuid.NullUUID
		closedAt   sql.NullTime
		metadata   []byte
		tags       []string
		caseType   string
		priority   string
		status     string
	)
	err := row.Scan(
		&caseID, &c.CaseNumber, &c.Title, &c.Description, &caseType, &priority, &status,
		&assignedTo, &createdBy, &c.CreatedAt, &c.UpdatedAt, &closedAt, &metadata, pq.Array(&tags),
		&c.Version, &c.TenantID, &c.CellID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan case: %w", err)
	}

	c.ID = id.CaseID(caseID)
	c.CreatedBy = models.UserRef{ID: id.UserID(createdBy)}
	c.CaseType = models.CaseType(caseType)
	c.Priority = models.Priority(priority)
	c.Status = models.Status(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if assignedTo.Valid {
		c.AssignedTo = &models.UserRef{ID: id.UserID(assignedTo.UUID)}
	}
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		c.ClosedAt = &t
	}
	if len(tags) > 0 {
		c.Tags = tags
	}
	if len(metadata) > 0 && string(metadata) != "{}" && string(metadata) != "null" {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode case metadata: %w", err)
		}
	}
	return &c, nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode case metadata: %w", err)
	}
	return b, nil
}

func nullUserID(ref *models.UserRef) uuid.NullUUID {
	if ref == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(ref.ID), Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
