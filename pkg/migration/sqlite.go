package migration

import (
	"fmt"
	"strings"

	"github.com/schemaflow/schemaflow/pkg/compatibility"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// sqliteDialect generates SQLite (3.35+) DDL. ALTER TABLE covers column adds
// and renames only, so any other change kind is applied by rebuilding the
// table: create a shadow table in the target shape, copy the rows across,
// drop the original, and rename the shadow into place.
type sqliteDialect struct{}

func (sqliteDialect) dialect() schema.Dialect { return schema.DialectSQLite }

func (sqliteDialect) quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (sqliteDialect) quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// castExpr builds the conversion applied inside a guarded cast. Boolean has
// no CAST form that understands the textual spellings, so that case is a
// membership expression.
func (d sqliteDialect) castExpr(column string, to schema.FieldType) string {
	quoted := d.quoteIdent(column)
	if to == schema.FieldTypeBoolean {
		return fmt.Sprintf("(lower(CAST(%s AS TEXT)) IN ('true','1'))", quoted)
	}
	return fmt.Sprintf("CAST(%s AS %s)", quoted, d.nativeType(to))
}

func (d sqliteDialect) castValueExpr(column string, from, to schema.FieldType) string {
	return guardedCastExpr(d, column, to, d.castExpr(column, to))
}

func (d sqliteDialect) nativeType(t schema.FieldType) string {
	return columnType(schema.DialectSQLite, t)
}

func (d sqliteDialect) generateSteps(in *planInput) []Step {
	if in.OldSchema != nil && d.needsRebuild(in.Changes) {
		return []Step{d.rebuildStep(in)}
	}

	var steps []Step
	for _, group := range groupChanges(in.Changes) {
		var step Step
		switch group.kind {
		case compatibility.ChangeAddField:
			step = d.addStep(in.Table, group.changes)
		case compatibility.ChangeRenameField:
			step = d.renameStep(in.Table, group.changes)
		}
		step.Breaking = anyBreaking(group.changes)
		steps = append(steps, step)
	}
	return steps
}

func (d sqliteDialect) generateTransformations(in *planInput) []DataTransformation {
	return buildTransformations(d, in)
}

func (d sqliteDialect) generateRollbackScript(in *planInput, steps []Step) string {
	return reverseRollback(steps)
}

// canAddNatively reports whether ADD COLUMN accepts the column. SQLite
// rejects a NOT NULL addition without a non-null default.
func canAddNatively(f *schema.Field) bool {
	return !f.Required || f.HasDefault()
}

func (d sqliteDialect) needsRebuild(changes []compatibility.Change) bool {
	for _, change := range changes {
		switch change.Kind {
		case compatibility.ChangeAddField:
			if !canAddNatively(change.NewField) {
				return true
			}
		case compatibility.ChangeRenameField:
		default:
			return true
		}
	}
	return false
}

// columnDef renders one column of a CREATE TABLE in the target shape.
func (d sqliteDialect) columnDef(f *schema.Field) string {
	def := d.quoteIdent(f.Name) + " " + d.nativeType(f.Type)
	if f.Required {
		def += " NOT NULL"
	}
	if f.HasDefault() {
		def += " DEFAULT " + d.quoteLiteral(*f.DefaultValue)
	}
	if len(f.Validation) > 0 {
		def += " CHECK (" + strings.Join(f.Validation, " AND ") + ")"
	}
	return def
}

func (d sqliteDialect) addStep(table string, changes []compatibility.Change) Step {
	t := d.quoteIdent(table)
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;",
			t, d.columnDef(change.NewField)))
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;",
			t, d.quoteIdent(changes[i].NewField.Name)))
	}
	return Step{
		Description:    fmt.Sprintf("add columns: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

func (d sqliteDialect) renameStep(table string, changes []compatibility.Change) Step {
	t := d.quoteIdent(table)
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;",
			t, d.quoteIdent(change.OldField.Name), d.quoteIdent(change.NewField.Name)))
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;",
			t, d.quoteIdent(changes[i].NewField.Name), d.quoteIdent(changes[i].OldField.Name)))
	}
	return Step{
		Description:    fmt.Sprintf("rename columns: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

// rebuildStep folds every change into one shadow-table rebuild. The rollback
// is the mirrored rebuild back to the original shape.
func (d sqliteDialect) rebuildStep(in *planInput) Step {
	forwardSources := map[string]string{}
	rollbackSources := map[string]string{}
	for _, change := range in.Changes {
		if change.Kind == compatibility.ChangeRenameField {
			forwardSources[change.NewField.Name] = change.OldField.Name
			rollbackSources[change.OldField.Name] = change.NewField.Name
		}
	}

	kinds := map[compatibility.ChangeKind]bool{}
	var kindNames []string
	for _, change := range in.Changes {
		if !kinds[change.Kind] {
			kinds[change.Kind] = true
			kindNames = append(kindNames, change.Kind.String())
		}
	}

	return Step{
		Description:    fmt.Sprintf("rebuild table %q to apply: %s", in.Table, strings.Join(kindNames, ", ")),
		Script:         d.rebuildScript(in.Table, in.OldSchema, in.NewSchema, forwardSources),
		RollbackScript: d.rebuildScript(in.Table, in.NewSchema, in.OldSchema, rollbackSources),
		Breaking:       anyBreaking(in.Changes),
	}
}

// rebuildScript rewrites the table from the current shape into the target
// shape. sources maps a target column to the current column carrying its
// data when the names differ; target columns with no counterpart are left to
// their default.
func (d sqliteDialect) rebuildScript(table string, current, target *schema.Schema, sources map[string]string) string {
	t := d.quoteIdent(table)
	shadow := d.quoteIdent(table + "_rebuild")

	var defs []string
	for i := range target.Fields {
		defs = append(defs, d.columnDef(&target.Fields[i]))
	}

	var cols, exprs []string
	for i := range target.Fields {
		f := &target.Fields[i]
		source := f.Name
		if mapped, ok := sources[f.Name]; ok {
			source = mapped
		}
		prior := current.FieldByName(source)
		if prior == nil {
			continue
		}
		cols = append(cols, d.quoteIdent(f.Name))
		if prior.Type != f.Type {
			exprs = append(exprs, d.castValueExpr(source, prior.Type, f.Type))
		} else {
			exprs = append(exprs, d.quoteIdent(source))
		}
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE %s (%s);", shadow, strings.Join(defs, ", ")),
	}
	if len(cols) > 0 {
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s;",
			shadow, strings.Join(cols, ", "), strings.Join(exprs, ", "), t))
	}
	stmts = append(stmts,
		fmt.Sprintf("DROP TABLE %s;", t),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", shadow, t),
	)
	return strings.Join(stmts, "\n")
}
