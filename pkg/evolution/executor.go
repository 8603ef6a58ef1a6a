package evolution

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/schemaflow/schemaflow/pkg/migration"
	"github.com/schemaflow/schemaflow/pkg/observability"
	"github.com/schemaflow/schemaflow/pkg/schema"
	"github.com/schemaflow/schemaflow/pkg/storage"
)

// ExecutionError describes one failed step or transformation.
type ExecutionError struct {
	StepOrder   int    `json:"step_order"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

// ExecutionResult is the outcome of applying one plan. A result with
// Success true and HistoryPersisted false means the migration committed but
// the post-commit history write failed; the database holds the new schema
// either way.
type ExecutionResult struct {
	PlanID                 string           `json:"plan_id"`
	Dialect                schema.Dialect   `json:"dialect"`
	Success                bool             `json:"success"`
	RolledBack             bool             `json:"rolled_back"`
	StepsApplied           int              `json:"steps_applied"`
	TransformationsApplied int              `json:"transformations_applied"`
	RecordsAffected        int64            `json:"records_affected"`
	Duration               time.Duration    `json:"duration"`
	HistoryPersisted       bool             `json:"history_persisted"`
	HistoryVersion         int              `json:"history_version,omitempty"`
	Errors                 []ExecutionError `json:"errors,omitempty"`
}

// executor applies plans inside a single transaction.
type executor struct {
	history storage.HistoryStore
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Execute applies the plan's steps in ascending order, then its data
// transformations, all inside one transaction. The first failure rolls the
// whole transaction back. On commit the outcome is recorded in the history
// store; a history write failure is logged and flagged but does not undo the
// migration.
func (e *executor) Execute(ctx context.Context, db *sql.DB, plan *migration.Plan, target *schema.Schema) (*ExecutionResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	logger := e.logger.WithFields(map[string]interface{}{
		"plan":    plan.ID,
		"dialect": plan.Dialect.String(),
		"source":  plan.SourceID,
	})

	result := &ExecutionResult{PlanID: plan.ID, Dialect: plan.Dialect}
	started := time.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	fail := func(order int, description string, cause error) (*ExecutionResult, error) {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.WithError(rbErr).Error("rollback failed after step failure")
		}
		result.RolledBack = true
		result.Duration = time.Since(started)
		result.Errors = []ExecutionError{{
			StepOrder:   order,
			Description: description,
			Message:     cause.Error(),
		}}

		logger.WithError(cause).WithField("step", order).Error("migration rolled back")
		e.observeMigration(plan.Dialect, "rolled_back", result)

		return result, &StepFailureError{
			PlanID:      plan.ID,
			StepOrder:   order,
			Description: description,
			Err:         cause,
		}
	}

	for _, step := range plan.Steps {
		stepStart := time.Now()
		res, err := tx.ExecContext(ctx, step.Script)
		if e.metrics != nil {
			e.metrics.StepDuration.WithLabelValues(plan.Dialect.String()).
				Observe(time.Since(stepStart).Seconds())
		}
		if err != nil {
			e.observeStep(plan.Dialect, "failure")
			return fail(step.Order, step.Description, err)
		}
		e.observeStep(plan.Dialect, "success")
		result.StepsApplied++
		if res != nil {
			if n, err := res.RowsAffected(); err == nil {
				result.RecordsAffected += n
			}
		}
	}

	for _, tr := range plan.Transformations {
		res, err := tx.ExecContext(ctx, tr.Script)
		if err != nil {
			e.observeStep(plan.Dialect, "failure")
			return fail(tr.Order, tr.Description, err)
		}
		e.observeStep(plan.Dialect, "success")
		result.TransformationsApplied++
		if res != nil {
			if n, err := res.RowsAffected(); err == nil {
				result.RecordsAffected += n
			}
		}
	}

	if err := tx.Commit(); err != nil {
		result.RolledBack = true
		result.Duration = time.Since(started)
		result.Errors = []ExecutionError{{Description: "commit", Message: err.Error()}}
		e.observeMigration(plan.Dialect, "rolled_back", result)
		return result, fmt.Errorf("failed to commit migration: %w", err)
	}

	result.Success = true
	result.Duration = time.Since(started)
	e.observeMigration(plan.Dialect, "success", result)
	logger.WithFields(map[string]interface{}{
		"steps":            result.StepsApplied,
		"transformations":  result.TransformationsApplied,
		"records_affected": result.RecordsAffected,
	}).Info("migration committed")

	e.persistHistory(ctx, plan, target, result)
	return result, nil
}

// persistHistory runs after commit. The migration is already durable, so a
// failure here only degrades the audit trail.
func (e *executor) persistHistory(ctx context.Context, plan *migration.Plan, target *schema.Schema, result *ExecutionResult) {
	if e.history == nil {
		return
	}

	entry, err := storage.NewHistoryEntry(plan, target, result.StepsApplied, result.RecordsAffected, result.Duration)
	if err == nil {
		err = e.history.Insert(ctx, entry)
	}
	if err != nil {
		if e.metrics != nil {
			e.metrics.HistoryWriteFailures.Inc()
		}
		e.logger.WithError(err).WithField("plan", plan.ID).
			Warn("migration committed but history write failed")
		return
	}

	result.HistoryPersisted = true
	result.HistoryVersion = entry.Version
}

func (e *executor) observeStep(d schema.Dialect, status string) {
	if e.metrics != nil {
		e.metrics.MigrationStepsTotal.WithLabelValues(d.String(), status).Inc()
	}
}

func (e *executor) observeMigration(d schema.Dialect, status string, result *ExecutionResult) {
	if e.metrics == nil {
		return
	}
	e.metrics.MigrationsTotal.WithLabelValues(d.String(), status).Inc()
	e.metrics.MigrationDuration.WithLabelValues(d.String()).Observe(result.Duration.Seconds())
	if result.RecordsAffected > 0 {
		e.metrics.RecordsAffectedTotal.WithLabelValues(d.String()).
			Add(float64(result.RecordsAffected))
	}
}
