package migration

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schemaflow/schemaflow/pkg/compatibility"
	"github.com/schemaflow/schemaflow/pkg/observability"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// Generator produces a dialect-specific migration plan from two schema
// snapshots.
type Generator interface {
	Dialect() schema.Dialect
	GeneratePlan(oldSchema, newSchema *schema.Schema) (*Plan, error)
}

// perChangeCost is a coarse placeholder for duration estimation, not a
// cost model.
const perChangeCost = 30 * time.Second

// planInput carries everything the dialect hooks need for one generation
// run.
type planInput struct {
	Table     string
	OldSchema *schema.Schema
	NewSchema *schema.Schema
	Changes   []compatibility.Change
}

// dialectHooks are the three specialization points of the shared template:
// step generation, data-transformation generation, and the plan-level
// rollback script.
type dialectHooks interface {
	dialect() schema.Dialect
	generateSteps(in *planInput) []Step
	generateTransformations(in *planInput) []DataTransformation
	generateRollbackScript(in *planInput, steps []Step) string
}

// planner implements the template algorithm shared by every dialect.
type planner struct {
	hooks    dialectHooks
	comparer *compatibility.Comparer
	logger   *observability.Logger
}

func (p *planner) Dialect() schema.Dialect {
	return p.hooks.dialect()
}

// GeneratePlan diffs the two snapshots and assembles the ordered, reversible
// plan for this planner's dialect.
func (p *planner) GeneratePlan(oldSchema, newSchema *schema.Schema) (*Plan, error) {
	if newSchema == nil {
		return nil, fmt.Errorf("new schema is required to generate a plan")
	}

	changes := p.comparer.Compare(oldSchema, newSchema)
	in := &planInput{
		Table:     newSchema.Name,
		OldSchema: oldSchema,
		NewSchema: newSchema,
		Changes:   changes,
	}

	steps := p.hooks.generateSteps(in)
	for i := range steps {
		steps[i].Order = i + 1
	}

	transformations := p.hooks.generateTransformations(in)
	for i := range transformations {
		transformations[i].Order = i + 1
	}

	downtime := false
	for _, change := range changes {
		if change.Breaking {
			downtime = true
			break
		}
	}

	plan := &Plan{
		ID:                uuid.NewString(),
		SourceID:          newSchema.SourceID,
		NewSchemaID:       newSchema.ID,
		Dialect:           p.hooks.dialect(),
		Steps:             steps,
		Transformations:   transformations,
		RollbackScript:    p.hooks.generateRollbackScript(in, steps),
		RequiresDowntime:  downtime,
		EstimatedDuration: time.Duration(len(changes)) * perChangeCost,
		CreatedAt:         time.Now().UTC(),
	}
	if oldSchema != nil {
		plan.OldSchemaID = oldSchema.ID
	}

	p.logger.WithFields(map[string]interface{}{
		"dialect": plan.Dialect.String(),
		"source":  plan.SourceID,
		"changes": len(changes),
		"steps":   len(steps),
	}).Debug("migration plan generated")

	return plan, nil
}

// Factory selects a generator by dialect. It is built once at startup from
// already-constructed collaborators; dialects without an implementation
// fail with UnsupportedDialectError instead of returning a no-op.
type Factory struct {
	generators map[schema.Dialect]Generator
}

// NewFactory wires the implemented dialect generators: PostgreSQL,
// SQL Server, MySQL and SQLite. Oracle has no implementation.
func NewFactory(comparer *compatibility.Comparer, logger *observability.Logger) *Factory {
	if comparer == nil {
		comparer = compatibility.NewComparer()
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	f := &Factory{generators: make(map[schema.Dialect]Generator)}
	for _, hooks := range []dialectHooks{
		postgresDialect{},
		sqlserverDialect{},
		mysqlDialect{},
		sqliteDialect{},
	} {
		f.generators[hooks.dialect()] = &planner{
			hooks:    hooks,
			comparer: comparer,
			logger:   logger.WithField("dialect", hooks.dialect().String()),
		}
	}
	return f
}

// Generator returns the generator for the given dialect.
func (f *Factory) Generator(d schema.Dialect) (Generator, error) {
	gen, ok := f.generators[d]
	if !ok {
		return nil, &UnsupportedDialectError{Dialect: d}
	}
	return gen, nil
}

// Dialects lists the dialects with a wired generator.
func (f *Factory) Dialects() []schema.Dialect {
	dialects := make([]schema.Dialect, 0, len(f.generators))
	for d := schema.DialectPostgreSQL; d <= schema.DialectSQLite; d++ {
		if _, ok := f.generators[d]; ok {
			dialects = append(dialects, d)
		}
	}
	return dialects
}

// stepKindOrder fixes the grouping order of generated steps: additions and
// renames first so later statements can address columns by their final
// names, removals last.
var stepKindOrder = []compatibility.ChangeKind{
	compatibility.ChangeAddField,
	compatibility.ChangeRenameField,
	compatibility.ChangeTypeChanged,
	compatibility.ChangeRequiredChanged,
	compatibility.ChangeDefaultChanged,
	compatibility.ChangeValidationChanged,
	compatibility.ChangeRemoveField,
}

type changeGroup struct {
	kind    compatibility.ChangeKind
	changes []compatibility.Change
}

// groupChanges buckets changes by kind in the fixed step order. Empty
// groups are omitted.
func groupChanges(changes []compatibility.Change) []changeGroup {
	byKind := make(map[compatibility.ChangeKind][]compatibility.Change)
	for _, change := range changes {
		byKind[change.Kind] = append(byKind[change.Kind], change)
	}

	groups := make([]changeGroup, 0, len(byKind))
	for _, kind := range stepKindOrder {
		if bucket, ok := byKind[kind]; ok {
			groups = append(groups, changeGroup{kind: kind, changes: bucket})
		}
	}
	return groups
}

func anyBreaking(changes []compatibility.Change) bool {
	for _, change := range changes {
		if change.Breaking {
			return true
		}
	}
	return false
}

func fieldNames(changes []compatibility.Change) string {
	names := make([]string, 0, len(changes))
	for _, change := range changes {
		names = append(names, change.FieldName)
	}
	return strings.Join(names, ", ")
}

// reverseRollback assembles the plan-level rollback script: each step's
// rollback applied in reverse step order.
func reverseRollback(steps []Step) string {
	scripts := make([]string, 0, len(steps))
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].RollbackScript != "" {
			scripts = append(scripts, steps[i].RollbackScript)
		}
	}
	return strings.Join(scripts, "\n")
}
