package migration

import (
	"fmt"
	"strings"

	"github.com/schemaflow/schemaflow/pkg/compatibility"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// sqlserverDialect generates T-SQL. SQL Server names default constraints,
// so any statement that alters a defaulted column must first discover the
// constraint name from catalog views at run time and drop it; the discovery
// is embedded in the generated script, not resolved at generation time.
type sqlserverDialect struct{}

func (sqlserverDialect) dialect() schema.Dialect { return schema.DialectSQLServer }

func (sqlserverDialect) quoteIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

func (sqlserverDialect) quoteLiteral(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// castValueExpr uses TRY_CONVERT, which yields NULL for values that do not
// survive the conversion. No separate guard expression is needed.
func (d sqlserverDialect) castValueExpr(column string, from, to schema.FieldType) string {
	return fmt.Sprintf("TRY_CONVERT(%s, %s)", d.nativeType(to), d.quoteIdent(column))
}

func (d sqlserverDialect) nativeType(t schema.FieldType) string {
	return columnType(schema.DialectSQLServer, t)
}

func (d sqlserverDialect) generateSteps(in *planInput) []Step {
	var steps []Step
	for _, group := range groupChanges(in.Changes) {
		var step Step
		switch group.kind {
		case compatibility.ChangeAddField:
			step = d.addStep(in.Table, group.changes)
		case compatibility.ChangeRenameField:
			step = d.renameStep(in.Table, group.changes)
		case compatibility.ChangeTypeChanged:
			step = d.typeStep(in.Table, group.changes)
		case compatibility.ChangeRequiredChanged:
			step = d.requiredStep(in.Table, group.changes)
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

func (d sqlserverDialect) generateTransformations(in *planInput) []DataTransformation {
	return buildTransformations(d, in)
}

func (d sqlserverDialect) generateRollbackScript(in *planInput, steps []Step) string {
	return reverseRollback(steps)
}

// varSuffix sanitizes a column name into a T-SQL variable suffix so that
// several discovery blocks can share one batch.
func varSuffix(column string) string {
	var b strings.Builder
	for _, r := range column {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// dropDefaultConstraint emits the runtime lookup of the column's default
// constraint name followed by a conditional drop.
func (d sqlserverDialect) dropDefaultConstraint(table, column string) string {
	v := "@df_" + varSuffix(column)
	return fmt.Sprintf(`DECLARE %s sysname;
SELECT %s = dc.name FROM sys.default_constraints dc
JOIN sys.columns c ON c.default_object_id = dc.object_id
WHERE dc.parent_object_id = OBJECT_ID(N'%s') AND c.name = N'%s';
IF %s IS NOT NULL EXEC(N'ALTER TABLE %s DROP CONSTRAINT [' + %s + N']');`,
		v, v, table, column, v, d.quoteIdent(table), v)
}

func (d sqlserverDialect) defaultConstraintName(table, column string) string {
	return d.quoteIdent(fmt.Sprintf("DF_%s_%s", table, column))
}

func (d sqlserverDialect) addDefaultConstraint(table string, f *schema.Field) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s DEFAULT %s FOR %s;",
		d.quoteIdent(table), d.defaultConstraintName(table, f.Name),
		d.quoteLiteral(*f.DefaultValue), d.quoteIdent(f.Name))
}

func (d sqlserverDialect) alterColumnStatement(table string, f *schema.Field) string {
	nullability := "NULL"
	if f.Required {
		nullability = "NOT NULL"
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s %s;",
		d.quoteIdent(table), d.quoteIdent(f.Name), d.nativeType(f.Type), nullability)
}

// addColumnStatements sequences a required column with a default as add
// nullable, attach the default constraint, backfill, then tighten to
// NOT NULL. SQL Server rejects a bare NOT NULL addition on a non-empty
// table without this path.
func (d sqlserverDialect) addColumnStatements(table string, f *schema.Field) []string {
	t := d.quoteIdent(table)
	c := d.quoteIdent(f.Name)

	if f.Required && f.HasDefault() {
		lit := d.quoteLiteral(*f.DefaultValue)
		return []string{
			fmt.Sprintf("ALTER TABLE %s ADD %s %s NULL;", t, c, d.nativeType(f.Type)),
			d.addDefaultConstraint(table, f),
			fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL;", t, c, lit, c),
			d.alterColumnStatement(table, f),
		}
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD %s %s", t, c, d.nativeType(f.Type))
	if f.HasDefault() {
		stmt += fmt.Sprintf(" CONSTRAINT %s DEFAULT %s",
			d.defaultConstraintName(table, f.Name), d.quoteLiteral(*f.DefaultValue))
	}
	if f.Required {
		stmt += " NOT NULL"
	}
	return []string{stmt + ";"}
}

// dropColumnStatements drops the default constraint (by discovery) before
// the column itself.
func (d sqlserverDialect) dropColumnStatements(table, column string) []string {
	return []string{
		d.dropDefaultConstraint(table, column),
		fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", d.quoteIdent(table), d.quoteIdent(column)),
	}
}

func (d sqlserverDialect) addStep(table string, changes []compatibility.Change) Step {
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, d.addColumnStatements(table, change.NewField)...)
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, d.dropColumnStatements(table, changes[i].NewField.Name)...)
	}
	return Step{
		Description:    fmt.Sprintf("add columns: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

func (d sqlserverDialect) removeStep(table string, changes []compatibility.Change) Step {
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, d.dropColumnStatements(table, change.OldField.Name)...)
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

func (d sqlserverDialect) renameStep(table string, changes []compatibility.Change) Step {
	rename := func(from, to string) string {
		return fmt.Sprintf("EXEC sp_rename N'%s.%s', N'%s', 'COLUMN';", table, from, to)
	}

	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, rename(change.OldField.Name, change.NewField.Name))
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, rename(changes[i].NewField.Name, changes[i].OldField.Name))
	}
	return Step{
		Description:    fmt.Sprintf("rename columns: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

// alterWithDefaultHandling drops the existing default constraint by
// discovery, alters the column, then recreates the default declared on the
// target shape.
func (d sqlserverDialect) alterWithDefaultHandling(table string, f *schema.Field) []string {
	stmts := []string{
		d.dropDefaultConstraint(table, f.Name),
	}
	if f.Required && f.HasDefault() {
		stmts = append(stmts, fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL;",
			d.quoteIdent(table), d.quoteIdent(f.Name),
			d.quoteLiteral(*f.DefaultValue), d.quoteIdent(f.Name)))
	}
	stmts = append(stmts, d.alterColumnStatement(table, f))
	if f.HasDefault() {
		stmts = append(stmts, d.addDefaultConstraint(table, f))
	}
	return stmts
}

// lossyCast reports whether converting to the type can fail on bad values.
// String-like targets accept anything; CLR types reject TRY_CONVERT
// entirely, so neither gets a sanitizing pass.
func lossyCast(to schema.FieldType) bool {
	switch to {
	case schema.FieldTypeInteger, schema.FieldTypeDecimal,
		schema.FieldTypeBoolean, schema.FieldTypeDateTime:
		return true
	}
	return false
}

// sanitizeStatement NULLs out the values ALTER COLUMN would choke on, so a
// type change lands bad values as NULL instead of aborting the transaction.
func (d sqlserverDialect) sanitizeStatement(table string, f *schema.Field) string {
	t := d.quoteIdent(table)
	c := d.quoteIdent(f.Name)
	return fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s IS NOT NULL AND TRY_CONVERT(%s, %s) IS NULL;",
		t, c, c, d.nativeType(f.Type), c)
}

func (d sqlserverDialect) typeStep(table string, changes []compatibility.Change) Step {
	alter := func(f *schema.Field) []string {
		var stmts []string
		if lossyCast(f.Type) {
			stmts = append(stmts, d.sanitizeStatement(table, f))
		}
		return append(stmts, d.alterWithDefaultHandling(table, f)...)
	}

	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, alter(change.NewField)...)
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, alter(changes[i].OldField)...)
	}
	return Step{
		Description:    fmt.Sprintf("change column types: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

func (d sqlserverDialect) requiredStep(table string, changes []compatibility.Change) Step {
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, d.alterWithDefaultHandling(table, change.NewField)...)
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, d.alterWithDefaultHandling(table, changes[i].OldField)...)
	}
	return Step{
		Description:    fmt.Sprintf("change nullability: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

func (d sqlserverDialect) defaultStatements(table string, f *schema.Field) []string {
	stmts := []string{d.dropDefaultConstraint(table, f.Name)}
	if f.HasDefault() {
		stmts = append(stmts, d.addDefaultConstraint(table, f))
	}
	return stmts
}

func (d sqlserverDialect) defaultStep(table string, changes []compatibility.Change) Step {
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, d.defaultStatements(table, change.NewField)...)
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, d.defaultStatements(table, changes[i].OldField)...)
	}
	return Step{
		Description:    fmt.Sprintf("change defaults: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}

func (d sqlserverDialect) checkStatements(table string, f *schema.Field) []string {
	name := fmt.Sprintf("CK_%s_%s", table, f.Name)
	stmts := []string{fmt.Sprintf("IF OBJECT_ID(N'%s', N'C') IS NOT NULL ALTER TABLE %s DROP CONSTRAINT %s;",
		name, d.quoteIdent(table), d.quoteIdent(name))}
	if len(f.Validation) > 0 {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);",
			d.quoteIdent(table), d.quoteIdent(name), strings.Join(f.Validation, " AND ")))
	}
	return stmts
}

func (d sqlserverDialect) validationStep(table string, changes []compatibility.Change) Step {
	var forward, rollback []string
	for _, change := range changes {
		forward = append(forward, d.checkStatements(table, change.NewField)...)
	}
	for i := len(changes) - 1; i >= 0; i-- {
		rollback = append(rollback, d.checkStatements(table, changes[i].OldField)...)
	}
	return Step{
		Description:    fmt.Sprintf("change validation constraints: %s", fieldNames(changes)),
		Script:         strings.Join(forward, "\n"),
		RollbackScript: strings.Join(rollback, "\n"),
	}
}
