package migration

import (
	"time"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// Step is one ordered unit of a migration plan. Applying RollbackScript
// after Script restores the prior shape of the table.
type Step struct {
	Order          int    `json:"order"`
	Description    string `json:"description"`
	Script         string `json:"script"`
	RollbackScript string `json:"rollback_script"`
	Breaking       bool   `json:"breaking"`
}

// DataTransformation is one ordered value-rewrite applied after all steps
// succeeded, still inside the migration transaction. Custom-rule
// transformations are not automatically reversible and carry an empty
// rollback script.
type DataTransformation struct {
	Order          int    `json:"order"`
	Description    string `json:"description"`
	FieldName      string `json:"field_name"`
	Script         string `json:"script"`
	RollbackScript string `json:"rollback_script,omitempty"`
	Reversible     bool   `json:"reversible"`
}

// Plan is an ordered, dialect-specific, reversible set of scripts
// transforming a database from one schema version to another.
type Plan struct {
	ID                string               `json:"id"`
	SourceID          string               `json:"source_id"`
	OldSchemaID       string               `json:"old_schema_id,omitempty"`
	NewSchemaID       string               `json:"new_schema_id"`
	Dialect           schema.Dialect       `json:"dialect"`
	Steps             []Step               `json:"steps"`
	Transformations   []DataTransformation `json:"transformations,omitempty"`
	RollbackScript    string               `json:"rollback_script"`
	RequiresDowntime  bool                 `json:"requires_downtime"`
	EstimatedDuration time.Duration        `json:"estimated_duration"`
	CreatedAt         time.Time            `json:"created_at"`
}
