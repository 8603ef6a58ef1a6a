package migration

import (
	"fmt"
	"strings"

	"github.com/schemaflow/schemaflow/pkg/compatibility"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// mysqlDialect generates MySQL (8.0+) DDL. MODIFY COLUMN rewrites the full
// column definition, so type and nullability statements always restate the
// default as well.
type mysqlDialect struct{}

func (mysqlDialect) dialect() schema.Dialect { return schema.DialectMySQL }

func (mysqlDialect) quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func (mysqlDialect) quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// castExpr builds the conversion applied inside a guarded cast. CAST targets
// are not column types in MySQL: integers convert via SIGNED, and booleans
// have no CAST form at all, so that case is a membership expression.
func (d mysqlDialect) castExpr(column string, to schema.FieldType) string {
	quoted := d.quoteIdent(column)
	switch to {
	case schema.FieldTypeInteger:
		return fmt.Sprintf("CAST(%s AS SIGNED)", quoted)
	case schema.FieldTypeDecimal:
		return fmt.Sprintf("CAST(%s AS DECIMAL(38,9))", quoted)
	case schema.FieldTypeBoolean:
		return fmt.Sprintf("(LOWER(%s) IN ('true','1'))", quoted)
	case schema.FieldTypeDateTime:
		return fmt.Sprintf("CAST(%s AS DATETIME(6))", quoted)
	}
	return quoted
}

func (d mysqlDialect) castValueExpr(column string, from, to schema.FieldType) string {
	return guardedCastExpr(d, column, to, d.castExpr(column, to))
}

func (d mysqlDialect) nativeType(t schema.FieldType) string {
	return columnType(schema.DialectMySQL, t)
}

// columnClause renders the full definition MODIFY COLUMN requires.
func (d mysqlDialect) columnClause(f *schema.Field) string {
	clause := d.nativeType(f.Type)
	if f.Required {
		clause += " NOT NULL"
	} else {
		clause += " NULL"
	}
	if f.HasDefault() {
		clause += " DEFAULT " + d.quoteLiteral(*f.DefaultValue)
	}
	return clause
}

func (d mysqlDialect) generateSteps(in *planInput) []Step {
	var steps []Step
	for _, group := range groupChanges(in.Changes) {
		var step Step
		switch group.kind {
		case compatibility.ChangeAddField:
			step = d.addStep(in.Table, group.changes)
		case compatibility.ChangeRenameField:
			step = d.renameStep(in.Table, group.changes)
		case compatibility.ChangeTypeChanged, compatibility.ChangeRequiredChanged:
			step = d.modifyStep(in.Table, group.kind, group.changes)
		case compatibility.ChangeDefaultChanged:
			step = d.defaultStep(in.Table, group.changes)
		case compatibility.ChangeValidationChanged:
			step = d.validationStep(in.Table, group.changes)
		case compatibility.ChangeRemoveField:
			step = d.removeStep(in.Table, group.changes)
		}
		step.Breaking = anyBreaking(group.changes)
		steps = append(steps, step)
	}
	return steps
}

func (d mysqlDialect) generateTransformations(in *planInput) []DataTransformation {
	return buildTransformations(d, in)
}

func (d mysqlDialect) generateRollbackScript(in *planInput, steps []Step) string {
	return reverseRollback(steps)
}

// addColumnStatements adds a required column with a default in the
// nullable-first order: add, backfill, tighten to NOT NULL.
func (d mysqlDialect) addColumnStatements(table string, f *schema.Field) []string {
	t := d.quoteIdent(table)
	c := d.quoteIdent(f.Name)

	if f.Required && f.HasDefault() {
		lit := d.quoteLiteral(*f.DefaultValue)
		return []string{
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s NULL DEFAULT %s;",
				t, c, d.nativeType(f.Type), lit),
			fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL;", t, c, lit, c),
			fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s;", t, c, d.columnClause(f)),
		}
	}

	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", t, c, d.columnClause(f))}
}

func (d mysqlDialect) dropColumnStatement(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;",
		d.quoteIdent(table), d.quoteIdent(column))
}

func (d mysqlDialect) addStep(table string, changes []compatibility.Change) Step {
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, d.addColumnStatements(table, change.NewField)...)
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, d.dropColumnStatement(table, changes[i].NewField.Name))
	}
	return Step{
		Description:    fmt.Sprintf("add columns: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

func (d mysqlDialect) removeStep(table string, changes []compatibility.Change) Step {
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, d.dropColumnStatement(table, change.OldField.Name))
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, d.addColumnStatements(table, changes[i].OldField)...)
	}
	return Step{
		Description:    fmt.Sprintf("drop columns: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

func (d mysqlDialect) renameStep(table string, changes []compatibility.Change) Step {
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

// modifyStep covers both type and nullability changes; MODIFY COLUMN
// restates the whole definition either way. A type change first NULLs out
// values that would not survive the conversion, since MODIFY COLUMN aborts
// on the first bad value instead of coercing it.
func (d mysqlDialect) modifyStep(table string, kind compatibility.ChangeKind, changes []compatibility.Change) Step {
	t := d.quoteIdent(table)

	modify := func(f *schema.Field) []string {
		var stmts []string
		if kind == compatibility.ChangeTypeChanged {
			if guard, ok := castGuards[schema.DialectMySQL][f.Type]; ok {
				c := d.quoteIdent(f.Name)
				stmts = append(stmts, fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s IS NOT NULL AND NOT (%s);",
					t, c, c, strings.ReplaceAll(guard, "%s", c)))
			}
		}
		if f.Required && f.HasDefault() {
			stmts = append(stmts, fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL;",
				t, d.quoteIdent(f.Name), d.quoteLiteral(*f.DefaultValue), d.quoteIdent(f.Name)))
		}
		return append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s;",
			t, d.quoteIdent(f.Name), d.columnClause(f)))
	}

	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, modify(change.NewField)...)
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, modify(changes[i].OldField)...)
	}

	desc := "change column types"
	if kind == compatibility.ChangeRequiredChanged {
		desc = "change nullability"
	}
	return Step{
		Description:    fmt.Sprintf("%s: %s", desc, fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

func (d mysqlDialect) defaultStatement(table string, f *schema.Field) string {
	t := d.quoteIdent(table)
	c := d.quoteIdent(f.Name)
	if !f.HasDefault() {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", t, c)
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;",
		t, c, d.quoteLiteral(*f.DefaultValue))
}

func (d mysqlDialect) defaultStep(table string, changes []compatibility.Change) Step {
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, d.defaultStatement(table, change.NewField))
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, d.defaultStatement(table, changes[i].OldField))
	}
	return Step{
		Description:    fmt.Sprintf("change defaults: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

func (d mysqlDialect) checkStatements(table string, oldField, newField *schema.Field) []string {
	t := d.quoteIdent(table)
	name := d.quoteIdent(fmt.Sprintf("chk_%s_%s", table, newField.Name))
	var stmts []string
	if oldField != nil && len(oldField.Validation) > 0 {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP CHECK %s;", t, name))
	}
	if len(newField.Validation) > 0 {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);",
			t, name, strings.Join(newField.Validation, " AND ")))
	}
	return stmts
}

func (d mysqlDialect) validationStep(table string, changes []compatibility.Change) Step {
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, d.checkStatements(table, change.OldField, change.NewField)...)
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, d.checkStatements(table, changes[i].NewField, changes[i].OldField)...)
	}
	return Step{
		Description:    fmt.Sprintf("change validation constraints: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}
