package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/schemaflow/schemaflow/pkg/migration"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// HistoryEntry is one applied migration: which plan ran against which
// source, the resulting schema snapshot, and the observed outcome. Version
// numbers are assigned per source, starting at 1.
type HistoryEntry struct {
	ID              int64           `json:"id"`
	SourceID        string          `json:"source_id"`
	Version         int             `json:"version"`
	PlanID          string          `json:"plan_id"`
	Dialect         schema.Dialect  `json:"dialect"`
	OldSchemaID     string          `json:"old_schema_id,omitempty"`
	NewSchemaID     string          `json:"new_schema_id"`
	Plan            json.RawMessage `json:"plan"`
	Schema          json.RawMessage `json:"schema"`
	StepsApplied    int             `json:"steps_applied"`
	RecordsAffected int64           `json:"records_affected"`
	Duration        time.Duration   `json:"duration"`
	AppliedAt       time.Time       `json:"applied_at"`
}

// NewHistoryEntry snapshots an executed plan and its target schema.
func NewHistoryEntry(plan *migration.Plan, target *schema.Schema, stepsApplied int, recordsAffected int64, duration time.Duration) (*HistoryEntry, error) {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan: %w", err)
	}
	schemaJSON, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return &HistoryEntry{
		SourceID:        plan.SourceID,
		PlanID:          plan.ID,
		Dialect:         plan.Dialect,
		OldSchemaID:     plan.OldSchemaID,
		NewSchemaID:     plan.NewSchemaID,
		Plan:            planJSON,
		Schema:          schemaJSON,
		StepsApplied:    stepsApplied,
		RecordsAffected: recordsAffected,
		Duration:        duration,
		AppliedAt:       time.Now().UTC(),
	}, nil
}

// HistoryStore persists and reads migration history.
type HistoryStore interface {
	Insert(ctx context.Context, entry *HistoryEntry) error
	List(ctx context.Context, sourceID string) ([]*HistoryEntry, error)
	GetVersion(ctx context.Context, sourceID string, version int) (*HistoryEntry, error)
}

// ErrVersionNotFound is returned when a source has no entry at the
// requested version.
var ErrVersionNotFound = fmt.Errorf("history version not found")

// SQLHistoryStore stores history rows in the schema_history table of the
// connected database.
type SQLHistoryStore struct {
	db      *sql.DB
	dialect schema.Dialect
}

// NewSQLHistoryStore creates the store and ensures the schema_history table
// exists.
func NewSQLHistoryStore(db *sql.DB, dialect schema.Dialect) (*SQLHistoryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	store := &SQLHistoryStore{db: db, dialect: dialect}
	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure schema_history table: %w", err)
	}
	return store, nil
}

func (s *SQLHistoryStore) ensureTable() error {
	idColumn := "BIGSERIAL PRIMARY KEY"
	if s.dialect == schema.DialectSQLite {
		idColumn = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS schema_history (
		id %s,
		source_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		plan_id TEXT NOT NULL,
		dialect TEXT NOT NULL,
		old_schema_id TEXT,
		new_schema_id TEXT NOT NULL,
		plan TEXT NOT NULL,
		schema_snapshot TEXT NOT NULL,
		steps_applied INTEGER NOT NULL,
		records_affected BIGINT NOT NULL,
		duration_ms BIGINT NOT NULL,
		applied_at TIMESTAMP NOT NULL,
		UNIQUE (source_id, version)
	);
	CREATE INDEX IF NOT EXISTS idx_schema_history_source ON schema_history(source_id, version DESC);
	`, idColumn)

	_, err := s.db.Exec(query)
	return err
}

// bindVar renders the dialect's positional placeholder.
func (s *SQLHistoryStore) bindVar(i int) string {
	if s.dialect == schema.DialectPostgreSQL {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (s *SQLHistoryStore) bindVars(n int) []interface{} {
	vars := make([]interface{}, n)
	for i := range vars {
		vars[i] = s.bindVar(i + 1)
	}
	return vars
}

// Insert assigns the source's next version number and writes the entry.
// Both happen in one transaction so concurrent inserts cannot claim the
// same version and collide on the (source_id, version) unique constraint.
func (s *SQLHistoryStore) Insert(ctx context.Context, entry *HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history insert: %w", err)
	}
	defer tx.Rollback()

	nextVersion := fmt.Sprintf(
		"SELECT COALESCE(MAX(version), 0) + 1 FROM schema_history WHERE source_id = %s",
		s.bindVar(1))
	if err := tx.QueryRowContext(ctx, nextVersion, entry.SourceID).Scan(&entry.Version); err != nil {
		return fmt.Errorf("failed to compute next history version: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO schema_history (
			source_id, version, plan_id, dialect,
			old_schema_id, new_schema_id, plan, schema_snapshot,
			steps_applied, records_affected, duration_ms, applied_at
		) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.bindVars(12)...)

	args := []interface{}{
		entry.SourceID, entry.Version, entry.PlanID, entry.Dialect.String(),
		entry.OldSchemaID, entry.NewSchemaID, string(entry.Plan), string(entry.Schema),
		entry.StepsApplied, entry.RecordsAffected, entry.Duration.Milliseconds(), entry.AppliedAt,
	}

	if s.dialect == schema.DialectPostgreSQL {
		err := tx.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&entry.ID)
		if err != nil {
			return fmt.Errorf("failed to insert history entry: %w", err)
		}
		return tx.Commit()
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return tx.Commit()
}

const historyColumns = `
	id, source_id, version, plan_id, dialect,
	old_schema_id, new_schema_id, plan, schema_snapshot,
	steps_applied, records_affected, duration_ms, applied_at`

// List returns the source's history, newest version first.
func (s *SQLHistoryStore) List(ctx context.Context, sourceID string) ([]*HistoryEntry, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM schema_history WHERE source_id = %s ORDER BY version DESC",
		historyColumns, s.bindVar(1))

	rows, err := s.db.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := make([]*HistoryEntry, 0)
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// GetVersion returns a single history entry, or ErrVersionNotFound.
func (s *SQLHistoryStore) GetVersion(ctx context.Context, sourceID string, version int) (*HistoryEntry, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM schema_history WHERE source_id = %s AND version = %s",
		historyColumns, s.bindVar(1), s.bindVar(2))

	rows, err := s.db.QueryContext(ctx, query, sourceID, version)
	if err != nil {
		return nil, fmt.Errorf("failed to get history version: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get history version: %w", err)
		}
		return nil, fmt.Errorf("source %q version %d: %w", sourceID, version, ErrVersionNotFound)
	}
	return scanHistoryEntry(rows)
}

func scanHistoryEntry(rows *sql.Rows) (*HistoryEntry, error) {
	entry := &HistoryEntry{}
	var (
		dialect     string
		oldSchemaID sql.NullString
		planJSON    string
		schemaJSON  string
		durationMs  int64
	)

	err := rows.Scan(
		&entry.ID, &entry.SourceID, &entry.Version, &entry.PlanID, &dialect,
		&oldSchemaID, &entry.NewSchemaID, &planJSON, &schemaJSON,
		&entry.StepsApplied, &entry.RecordsAffected, &durationMs, &entry.AppliedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}

	parsed, err := schema.ParseDialect(dialect)
	if err != nil {
		return nil, fmt.Errorf("history entry %d: %w", entry.ID, err)
	}
	entry.Dialect = parsed
	entry.OldSchemaID = oldSchemaID.String
	entry.Plan = json.RawMessage(planJSON)
	entry.Schema = json.RawMessage(schemaJSON)
	entry.Duration = time.Duration(durationMs) * time.Millisecond
	return entry, nil
}
