package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/pkg/evolution"
	"github.com/schemaflow/schemaflow/pkg/storage"
)

const planJSON = `{
	"id": "plan-1",
	"source_id": "users-src",
	"new_schema_id": "v2",
	"dialect": "postgresql",
	"steps": [
		{"order": 1, "description": "drop columns: age", "script": "ALTER TABLE \"users\" DROP COLUMN \"age\";"}
	]
}`

func TestRunApply(t *testing.T) {
	dir := t.TempDir()
	planPath := writeFile(t, dir, "plan.json", planJSON)

	t.Run("success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "POST", r.Method)
			require.Equal(t, "/api/v1/execute", r.URL.Path)

			var req executeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.Plan)
			assert.Equal(t, "plan-1", req.Plan.ID)

			json.NewEncoder(w).Encode(evolution.ExecutionResult{
				PlanID:           "plan-1",
				Success:          true,
				StepsApplied:     1,
				HistoryPersisted: true,
				HistoryVersion:   3,
			})
		}))
		defer ts.Close()

		output, err := captureStdout(t, func() error {
			return runApply([]string{"-plan", planPath, "-server", ts.URL})
		})
		require.NoError(t, err)
		assert.Contains(t, output, "Plan plan-1 applied")
		assert.Contains(t, output, "history version 3")
	})

	t.Run("rolled back", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(evolution.ExecutionResult{
				PlanID:     "plan-1",
				RolledBack: true,
				Errors: []evolution.ExecutionError{
					{StepOrder: 1, Description: "drop columns: age", Message: "permission denied"},
				},
			})
		}))
		defer ts.Close()

		output, err := captureStdout(t, func() error {
			return runApply([]string{"-plan", planPath, "-server", ts.URL})
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rolled back")
		assert.Contains(t, output, "permission denied")
	})

	t.Run("server error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer ts.Close()

		err := runApply([]string{"-plan", planPath, "-server", ts.URL})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("missing plan flag", func(t *testing.T) {
		err := runApply(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "-plan file is required")
	})
}

func TestRunHistory(t *testing.T) {
	entry := &storage.HistoryEntry{
		SourceID:     "users-src",
		Version:      2,
		PlanID:       "plan-1",
		StepsApplied: 1,
		AppliedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/history/users-src":
			json.NewEncoder(w).Encode(struct {
				SourceID string                  `json:"source_id"`
				Entries  []*storage.HistoryEntry `json:"entries"`
			}{SourceID: "users-src", Entries: []*storage.HistoryEntry{entry}})
		case "/api/v1/history/users-src/2":
			json.NewEncoder(w).Encode(entry)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	t.Run("list", func(t *testing.T) {
		output, err := captureStdout(t, func() error {
			return runHistory([]string{"-source", "users-src", "-server", ts.URL})
		})
		require.NoError(t, err)
		assert.Contains(t, output, "plan=plan-1")
		assert.Contains(t, output, "2025-06-01")
	})

	t.Run("single version", func(t *testing.T) {
		output, err := captureStdout(t, func() error {
			return runHistory([]string{"-source", "users-src", "-version", "2", "-server", ts.URL})
		})
		require.NoError(t, err)
		assert.Contains(t, output, "v2")
	})

	t.Run("missing source", func(t *testing.T) {
		err := runHistory(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "-source is required")
	})
}
