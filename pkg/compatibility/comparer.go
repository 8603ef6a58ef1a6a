package compatibility

import (
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// AddFieldPolicy decides whether adding the given field to an existing
// schema is a breaking change.
type AddFieldPolicy func(f *schema.Field) bool

// DefaultAddFieldPolicy treats an addition as breaking when the field is
// required and has no usable default: an unconditional NOT NULL addition
// cannot be satisfied by existing rows. An empty-string default does not
// count as usable, existing consumers writing rows without the field still
// break on it.
func DefaultAddFieldPolicy(f *schema.Field) bool {
	if !f.Required {
		return false
	}
	return f.DefaultValue == nil || *f.DefaultValue == ""
}

// Comparer computes the ordered set of changes between two schema
// snapshots. The zero-configuration Comparer from NewComparer uses
// DefaultAddFieldPolicy.
type Comparer struct {
	addFieldPolicy AddFieldPolicy
}

// NewComparer creates a new comparer.
func NewComparer() *Comparer {
	return &Comparer{addFieldPolicy: DefaultAddFieldPolicy}
}

// SetAddFieldPolicy overrides the breaking-change rule for field additions.
// A nil policy restores the default.
func (c *Comparer) SetAddFieldPolicy(policy AddFieldPolicy) {
	if policy == nil {
		policy = DefaultAddFieldPolicy
	}
	c.addFieldPolicy = policy
}

// Compare diffs two schema snapshots. The old schema may be nil, in which
// case every field of the new schema is an addition. The result is
// deterministic: new-schema fields are visited in declaration order, with a
// fixed sub-order of attribute changes per field, followed by removals in
// old-schema declaration order.
func (c *Comparer) Compare(oldSchema, newSchema *schema.Schema) []Change {
	changes := make([]Change, 0)
	if newSchema == nil {
		return changes
	}

	if oldSchema == nil {
		for i := range newSchema.Fields {
			changes = append(changes, c.addChange(&newSchema.Fields[i]))
		}
		return changes
	}

	// Old fields consumed by a name or rename match.
	matched := make(map[string]bool, len(oldSchema.Fields))

	for i := range newSchema.Fields {
		newField := &newSchema.Fields[i]

		oldField := oldSchema.FieldByName(newField.Name)
		if oldField == nil && newField.Supersedes != "" {
			// Rename detection: the new field supersedes an old field whose
			// name is not otherwise present in the new schema.
			if prior := oldSchema.FieldByName(newField.Supersedes); prior != nil && newSchema.FieldByName(newField.Supersedes) == nil {
				oldField = prior
				changes = append(changes, Change{
					Kind:      ChangeRenameField,
					FieldName: newField.Name,
					OldField:  prior,
					NewField:  newField,
					Breaking:  true,
					Description: fmt.Sprintf("field %q renamed to %q",
						prior.Name, newField.Name),
				})
			}
		}

		if oldField == nil {
			changes = append(changes, c.addChange(newField))
			continue
		}

		matched[oldField.Name] = true
		changes = append(changes, compareMatched(oldField, newField)...)
	}

	for i := range oldSchema.Fields {
		oldField := &oldSchema.Fields[i]
		if matched[oldField.Name] {
			continue
		}
		changes = append(changes, Change{
			Kind:      ChangeRemoveField,
			FieldName: oldField.Name,
			OldField:  oldField,
			Breaking:  true,
			Description: fmt.Sprintf("field %q (%s) removed",
				oldField.Name, oldField.Type),
		})
	}

	return changes
}

func (c *Comparer) addChange(f *schema.Field) Change {
	desc := fmt.Sprintf("field %q (%s) added", f.Name, f.Type)
	if f.Required {
		desc = fmt.Sprintf("required field %q (%s) added", f.Name, f.Type)
	}
	return Change{
		Kind:        ChangeAddField,
		FieldName:   f.Name,
		NewField:    f,
		Breaking:    c.addFieldPolicy(f),
		Description: desc,
	}
}

// compareMatched diffs two matched field snapshots in a fixed attribute
// order: type, required, default, validation.
func compareMatched(oldField, newField *schema.Field) []Change {
	var changes []Change

	if oldField.Type != newField.Type {
		changes = append(changes, Change{
			Kind:      ChangeTypeChanged,
			FieldName: newField.Name,
			OldField:  oldField,
			NewField:  newField,
			Breaking:  true,
			Description: fmt.Sprintf("field %q type changed from %s to %s",
				newField.Name, oldField.Type, newField.Type),
		})
	}

	if oldField.Required != newField.Required {
		direction := "optional"
		if newField.Required {
			direction = "required"
		}
		changes = append(changes, Change{
			Kind:      ChangeRequiredChanged,
			FieldName: newField.Name,
			OldField:  oldField,
			NewField:  newField,
			Breaking:  newField.Required && !oldField.Required,
			Description: fmt.Sprintf("field %q became %s",
				newField.Name, direction),
		})
	}

	if !equalDefault(oldField.DefaultValue, newField.DefaultValue) {
		changes = append(changes, Change{
			Kind:      ChangeDefaultChanged,
			FieldName: newField.Name,
			OldField:  oldField,
			NewField:  newField,
			Breaking:  false,
			Description: fmt.Sprintf("field %q default changed from %s to %s",
				newField.Name, describeDefault(oldField.DefaultValue),
				describeDefault(newField.DefaultValue)),
		})
	}

	if !equalRules(oldField.Validation, newField.Validation) {
		changes = append(changes, Change{
			Kind:      ChangeValidationChanged,
			FieldName: newField.Name,
			OldField:  oldField,
			NewField:  newField,
			Breaking:  moreRestrictive(oldField.Validation, newField.Validation),
			Description: fmt.Sprintf("field %q validation rules changed",
				newField.Name),
		})
	}

	return changes
}

func equalDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func describeDefault(v *string) string {
	if v == nil {
		return "<none>"
	}
	return fmt.Sprintf("%q", *v)
}

func equalRules(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// moreRestrictive reports whether the new rule set is strictly more
// restrictive than the old: it introduces rules the old set did not have.
// Dropping rules only loosens validation and cannot break stored data.
func moreRestrictive(oldRules, newRules []string) bool {
	existing := make(map[string]bool, len(oldRules))
	for _, rule := range oldRules {
		existing[rule] = true
	}
	for _, rule := range newRules {
		if !existing[rule] {
			return true
		}
	}
	return false
}
