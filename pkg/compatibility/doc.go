// Package compatibility provides schema diffing and evolution-policy
// validation for safe schema evolution.
//
// # Overview
//
// The Comparer computes the ordered, deterministic set of Changes between two
// schema snapshots. The Validator consumes that change set and judges it
// against the new schema's declared evolution strategy, producing a
// structured ValidationResult instead of raising errors.
//
// # Change detection
//
// Fields are matched by name, falling back to the field's Supersedes link
// when names differ (rename detection). The comparison is pure: identical
// inputs always produce an identical, identically-ordered change list.
//
// Seven change kinds are detected:
//
// AddField: a field exists only in the new schema. Breaking when the field
// is required and carries no usable default, since existing rows cannot
// satisfy an unconditional NOT NULL addition. This policy is overridable
// via Comparer.SetAddFieldPolicy.
//
// RemoveField: a field exists only in the old schema. Always breaking.
//
// RenameField: a new field supersedes an old field of a different name.
// Always breaking, because consumers addressing the old name break.
//
// ChangeType: the semantic type changed. Always breaking.
//
// ChangeRequired: the required flag changed. Breaking only for the
// false→true direction, where existing rows may violate the constraint.
//
// ChangeDefault: the default value changed. Never breaking.
//
// ChangeValidation: the validation rule set changed. Breaking only when the
// new rule set is strictly more restrictive than the old one.
//
// # Validation
//
// Strategy transitions must respect the lattice
//
//	NoEvolution ⊂ Additive ⊂ NonBreaking ⊂ FullEvolution
//
// A schema may keep its strategy or widen it, except that NoEvolution may
// never be left. Narrowing (e.g. leaving FullEvolution) is always an
// IncompatibleEvolutionStrategy issue.
//
// Validation never panics and never returns an error: internal failures are
// converted into an invalid result carrying one issue with the error text.
package compatibility
