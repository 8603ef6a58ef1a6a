package compatibility

import (
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// Validator judges schema transitions against the new schema's declared
// evolution strategy. Validation is total: it never panics and never
// returns an error.
type Validator struct {
	comparer *Comparer
}

// NewValidator creates a validator on top of the given comparer.
func NewValidator(comparer *Comparer) *Validator {
	if comparer == nil {
		comparer = NewComparer()
	}
	return &Validator{comparer: comparer}
}

// Validate evaluates the transition from oldSchema to newSchema. Either
// side may be nil: a nil old schema is a brand-new schema (always valid), a
// nil new schema is a deletion (always invalid).
func (v *Validator) Validate(oldSchema, newSchema *schema.Schema) (result *ValidationResult) {
	result = &ValidationResult{Valid: true, Issues: make([]Issue, 0)}

	defer func() {
		if r := recover(); r != nil {
			result = &ValidationResult{
				Valid:           false,
				BreakingChanges: true,
				Issues: []Issue{{
					Type:     IssueOther,
					Message:  fmt.Sprintf("validation failed: %v", r),
					Breaking: true,
				}},
			}
		}
	}()

	if newSchema == nil {
		if oldSchema == nil {
			return result
		}
		result.Valid = false
		result.BreakingChanges = true
		result.addIssue(Issue{
			Type:     IssueOther,
			Message:  "schema deleted: all consumers of the source break",
			Breaking: true,
		})
		return result
	}

	if oldSchema == nil {
		// Brand-new schema, nothing to evolve from.
		return result
	}

	v.checkStrategyTransition(oldSchema, newSchema, result)

	changes := v.comparer.Compare(oldSchema, newSchema)
	strict := newSchema.Strategy == schema.NoEvolution || newSchema.Strategy == schema.Additive

	for _, change := range changes {
		if isImmutable(change) {
			result.Valid = false
			result.BreakingChanges = true
			result.addIssue(Issue{
				Type:      IssueOther,
				FieldName: change.FieldName,
				Message:   fmt.Sprintf("immutable field changed: %s", change.Description),
				Breaking:  true,
			})
			continue
		}

		if change.Breaking {
			result.BreakingChanges = true
			if strict {
				result.Valid = false
				result.addIssue(Issue{
					Type:      issueTypeFor(change.Kind),
					FieldName: change.FieldName,
					Message: fmt.Sprintf("%s not permitted under %s strategy",
						change.Description, newSchema.Strategy),
					Breaking: true,
				})
			} else {
				result.RequiresMigration = true
			}
			continue
		}

		// A non-breaking required addition still needs a backfill pass.
		if change.Kind == ChangeAddField && change.NewField != nil && change.NewField.Required {
			result.RequiresMigration = true
		}
	}

	v.checkDeprecationLifts(oldSchema, newSchema, result)

	return result
}

// checkStrategyTransition enforces monotonic movement through the strategy
// lattice. A schema may keep its strategy or widen it; NoEvolution may
// never be left, and narrowing is never allowed.
func (v *Validator) checkStrategyTransition(oldSchema, newSchema *schema.Schema, result *ValidationResult) {
	if oldSchema.Strategy == newSchema.Strategy {
		return
	}
	if oldSchema.Strategy < newSchema.Strategy && oldSchema.Strategy != schema.NoEvolution {
		return
	}
	result.Valid = false
	result.BreakingChanges = true
	result.addIssue(Issue{
		Type: IssueIncompatibleEvolutionStrategy,
		Message: fmt.Sprintf("evolution strategy cannot change from %s to %s",
			oldSchema.Strategy, newSchema.Strategy),
		Breaking: true,
	})
}

// checkDeprecationLifts emits a non-breaking advisory when a field that was
// deprecated in the old schema is no longer marked deprecated.
func (v *Validator) checkDeprecationLifts(oldSchema, newSchema *schema.Schema, result *ValidationResult) {
	for i := range oldSchema.Fields {
		oldField := &oldSchema.Fields[i]
		if oldField.Behavior != schema.BehaviorDeprecated {
			continue
		}
		newField := newSchema.FieldByName(oldField.Name)
		if newField != nil && newField.Behavior != schema.BehaviorDeprecated {
			result.addIssue(Issue{
				Type:      IssueOther,
				FieldName: oldField.Name,
				Message:   fmt.Sprintf("field %q is no longer deprecated", oldField.Name),
				Breaking:  false,
			})
		}
	}
}

// isImmutable reports whether the change touches a field whose declared
// behavior forbids any change. The old schema's marking is authoritative;
// additions consult the new side.
func isImmutable(change Change) bool {
	if change.OldField != nil {
		return change.OldField.Behavior == schema.BehaviorImmutable
	}
	if change.NewField != nil && change.Kind != ChangeAddField {
		return change.NewField.Behavior == schema.BehaviorImmutable
	}
	return false
}

func issueTypeFor(kind ChangeKind) IssueType {
	switch kind {
	case ChangeRemoveField:
		return IssueFieldRemoved
	case ChangeTypeChanged:
		return IssueFieldTypeChanged
	case ChangeRequiredChanged:
		return IssueRequiredAdded
	case ChangeValidationChanged:
		return IssueValidationChanged
	default:
		return IssueOther
	}
}
