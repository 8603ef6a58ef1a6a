package compatibility

import (
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// ChangeKind identifies the kind of a detected schema change.
type ChangeKind int

const (
	ChangeAddField ChangeKind = iota
	ChangeRemoveField
	ChangeRenameField
	ChangeTypeChanged
	ChangeRequiredChanged
	ChangeDefaultChanged
	ChangeValidationChanged
)

var changeKindNames = []string{
	"add_field", "remove_field", "rename_field", "change_type",
	"change_required", "change_default", "change_validation",
}

func (k ChangeKind) String() string {
	if k < 0 || int(k) >= len(changeKindNames) {
		return "unknown"
	}
	return changeKindNames[k]
}

func (k ChangeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ChangeKind) UnmarshalText(b []byte) error {
	for i, name := range changeKindNames {
		if name == string(b) {
			*k = ChangeKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown change kind: %s", b)
}

// Change is one detected difference between two schema versions. OldField
// and NewField are snapshots of the field on each side; either may be nil
// depending on the kind.
type Change struct {
	Kind        ChangeKind    `json:"kind"`
	FieldName   string        `json:"field_name"`
	OldField    *schema.Field `json:"old_field,omitempty"`
	NewField    *schema.Field `json:"new_field,omitempty"`
	Breaking    bool          `json:"breaking"`
	Description string        `json:"description"`
}

// IssueType classifies a validation issue.
type IssueType int

const (
	IssueFieldRemoved IssueType = iota
	IssueFieldTypeChanged
	IssueRequiredAdded
	IssueValidationChanged
	IssueIncompatibleEvolutionStrategy
	IssueOther
)

var issueTypeNames = []string{
	"field_removed", "field_type_changed", "required_added",
	"validation_changed", "incompatible_evolution_strategy", "other",
}

func (t IssueType) String() string {
	if t < 0 || int(t) >= len(issueTypeNames) {
		return "unknown"
	}
	return issueTypeNames[t]
}

func (t IssueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *IssueType) UnmarshalText(b []byte) error {
	for i, name := range issueTypeNames {
		if name == string(b) {
			*t = IssueType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown issue type: %s", b)
}

// Issue is one itemized finding of a validation run.
type Issue struct {
	Type      IssueType `json:"type"`
	FieldName string    `json:"field_name,omitempty"`
	Message   string    `json:"message"`
	Breaking  bool      `json:"breaking"`
}

// ValidationResult is the structured outcome of validating a schema
// transition. An invalid result is not an error condition; it itemizes why
// the transition violates the declared evolution strategy.
type ValidationResult struct {
	Valid             bool    `json:"valid"`
	BreakingChanges   bool    `json:"breaking_changes"`
	RequiresMigration bool    `json:"requires_migration"`
	Issues            []Issue `json:"issues"`
}

func (r *ValidationResult) addIssue(issue Issue) {
	r.Issues = append(r.Issues, issue)
}
