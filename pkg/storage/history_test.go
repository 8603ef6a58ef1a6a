package storage

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/pkg/migration"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func newHistoryStore(t *testing.T, dialect schema.Dialect) (*SQLHistoryStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_history").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewSQLHistoryStore(db, dialect)
	require.NoError(t, err)
	return store, mock
}

func TestNewSQLHistoryStore_NilDB(t *testing.T) {
	_, err := NewSQLHistoryStore(nil, schema.DialectPostgreSQL)
	require.Error(t, err)
}

func TestSQLHistoryStore_InsertPostgres(t *testing.T) {
	store, mock := newHistoryStore(t, schema.DialectPostgreSQL)

	plan := &migration.Plan{
		ID:          "plan-1",
		SourceID:    "users-src",
		OldSchemaID: "v1",
		NewSchemaID: "v2",
		Dialect:     schema.DialectPostgreSQL,
	}
	target := &schema.Schema{ID: "v2", SourceID: "users-src", Name: "users"}

	entry, err := NewHistoryEntry(plan, target, 3, 42, 1500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "plan-1", entry.PlanID)
	assert.Equal(t, "users-src", entry.SourceID)

	// The version read and the insert share one transaction, so concurrent
	// inserts cannot claim the same version.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM schema_history WHERE source_id = $1")).
		WithArgs("users-src").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(4))
	mock.ExpectQuery("INSERT INTO schema_history").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(17))
	mock.ExpectCommit()

	require.NoError(t, store.Insert(context.Background(), entry))
	assert.Equal(t, 4, entry.Version)
	assert.Equal(t, int64(17), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLHistoryStore_InsertSQLite(t *testing.T) {
	store, mock := newHistoryStore(t, schema.DialectSQLite)

	entry := &HistoryEntry{
		SourceID:    "notes-src",
		PlanID:      "plan-9",
		Dialect:     schema.DialectSQLite,
		NewSchemaID: "v1",
		Plan:        json.RawMessage(`{}`),
		Schema:      json.RawMessage(`{}`),
		AppliedAt:   time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM schema_history WHERE source_id = ?")).
		WithArgs("notes-src").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectExec("INSERT INTO schema_history").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Insert(context.Background(), entry))
	assert.Equal(t, 1, entry.Version)
	assert.Equal(t, int64(5), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLHistoryStore_InsertRollsBackOnFailure(t *testing.T) {
	store, mock := newHistoryStore(t, schema.DialectPostgreSQL)

	entry := &HistoryEntry{
		SourceID:    "users-src",
		PlanID:      "plan-3",
		Dialect:     schema.DialectPostgreSQL,
		NewSchemaID: "v3",
		Plan:        json.RawMessage(`{}`),
		Schema:      json.RawMessage(`{}`),
		AppliedAt:   time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM schema_history WHERE source_id = $1")).
		WithArgs("users-src").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(3))
	mock.ExpectQuery("INSERT INTO schema_history").
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	require.Error(t, store.Insert(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func historyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "source_id", "version", "plan_id", "dialect",
		"old_schema_id", "new_schema_id", "plan", "schema_snapshot",
		"steps_applied", "records_affected", "duration_ms", "applied_at",
	})
}

func TestSQLHistoryStore_ListNewestFirst(t *testing.T) {
	store, mock := newHistoryStore(t, schema.DialectPostgreSQL)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM schema_history WHERE source_id = (.+) ORDER BY version DESC").
		WithArgs("users-src").
		WillReturnRows(historyRows().
			AddRow(2, "users-src", 2, "plan-2", "postgresql", "v1", "v2", `{}`, `{}`, 1, 0, 100, now).
			AddRow(1, "users-src", 1, "plan-1", "postgresql", nil, "v1", `{}`, `{}`, 2, 10, 200, now))

	entries, err := store.List(context.Background(), "users-src")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 2, entries[0].Version)
	assert.Equal(t, 1, entries[1].Version)
	assert.Equal(t, schema.DialectPostgreSQL, entries[0].Dialect)
	assert.Equal(t, "", entries[1].OldSchemaID)
	assert.Equal(t, 200*time.Millisecond, entries[1].Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLHistoryStore_GetVersionNotFound(t *testing.T) {
	store, mock := newHistoryStore(t, schema.DialectPostgreSQL)

	mock.ExpectQuery("SELECT (.+) FROM schema_history WHERE source_id = (.+) AND version = (.+)").
		WithArgs("users-src", 9).
		WillReturnRows(historyRows())

	_, err := store.GetVersion(context.Background(), "users-src", 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVersionNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
