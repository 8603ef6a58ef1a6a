package migration

import (
	"fmt"
	"strings"

	"github.com/schemaflow/schemaflow/pkg/compatibility"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// valueDialect is the surface a dialect exposes to the shared
// data-transformation builder: identifier/literal escaping and the guarded
// cast expression.
type valueDialect interface {
	dialect() schema.Dialect
	quoteIdent(string) string
	quoteLiteral(string) string
	castValueExpr(column string, from, to schema.FieldType) string
}

// buildTransformations assembles the value-rewrite scripts for one plan:
// one guarded cast per type change, then the custom migration rules of
// fields with BehaviorCustom, in new-schema declaration order.
func buildTransformations(d valueDialect, in *planInput) []DataTransformation {
	var out []DataTransformation

	for _, change := range in.Changes {
		if change.Kind != compatibility.ChangeTypeChanged || change.OldField == nil || change.NewField == nil {
			continue
		}
		from, to := change.OldField.Type, change.NewField.Type
		out = append(out, DataTransformation{
			Description: fmt.Sprintf("cast %q values from %s to %s; values failing the check become NULL",
				change.FieldName, from, to),
			FieldName: change.FieldName,
			Script:    castRewrite(d, in.Table, change.FieldName, from, to),
			// The rollback is the forward rewrite with the types swapped.
			// Generators rely on this symmetry.
			RollbackScript: castRewrite(d, in.Table, change.FieldName, to, from),
			Reversible:     true,
		})
	}

	if in.NewSchema != nil {
		for i := range in.NewSchema.Fields {
			f := &in.NewSchema.Fields[i]
			if f.Behavior != schema.BehaviorCustom || len(f.MigrationRules) == 0 {
				continue
			}
			for _, rule := range f.MigrationRules {
				out = append(out, customRuleTransformation(d, in.Table, f.Name, rule))
			}
		}
	}

	return out
}

// castRewrite builds the guarded UPDATE for one column cast. Calling it
// with from and to swapped yields the rollback rewrite.
func castRewrite(d valueDialect, table, column string, from, to schema.FieldType) string {
	return fmt.Sprintf("UPDATE %s SET %s = %s;",
		d.quoteIdent(table), d.quoteIdent(column), d.castValueExpr(column, from, to))
}

// guardedCastExpr is the default castValueExpr: apply the dialect's cast
// behind a validity check, yielding NULL for values that would not survive
// it. Target types without a registered guard pass through uncast.
func guardedCastExpr(d valueDialect, column string, to schema.FieldType, cast string) string {
	quoted := d.quoteIdent(column)
	guard, ok := castGuards[d.dialect()][to]
	if !ok {
		return quoted
	}
	cond := strings.ReplaceAll(guard, "%s", quoted)
	return fmt.Sprintf("CASE WHEN %s THEN %s ELSE NULL END", cond, cast)
}

func customRuleTransformation(d valueDialect, table, field string, rule schema.MigrationRule) DataTransformation {
	t := DataTransformation{
		FieldName:  field,
		Reversible: false,
	}
	quotedTable := d.quoteIdent(table)
	quotedField := d.quoteIdent(field)

	switch rule.Kind {
	case schema.RuleReplace:
		t.Description = fmt.Sprintf("rule %q: replace %q with %q in %q",
			rule.Name, rule.From, rule.To, field)
		t.Script = fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s;",
			quotedTable, quotedField, d.quoteLiteral(rule.To), quotedField, d.quoteLiteral(rule.From))
	case schema.RuleTransform:
		t.Description = fmt.Sprintf("rule %q: custom transform of %q", rule.Name, field)
		t.Script = rule.Script
	case schema.RuleMap:
		t.Description = fmt.Sprintf("rule %q: map %d enumerated values of %q",
			rule.Name, len(rule.Mappings), field)
		var branches strings.Builder
		for _, m := range rule.Mappings {
			fmt.Fprintf(&branches, " WHEN %s THEN %s", d.quoteLiteral(m.From), d.quoteLiteral(m.To))
		}
		// Unmatched values pass through unchanged.
		t.Script = fmt.Sprintf("UPDATE %s SET %s = CASE %s%s ELSE %s END;",
			quotedTable, quotedField, quotedField, branches.String(), quotedField)
	}

	return t
}
