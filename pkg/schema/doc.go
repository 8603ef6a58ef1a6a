// Package schema defines the logical data model shared by the comparison,
// validation, migration-planning and execution layers.
//
// A Schema is an ordered collection of Fields plus the evolution policy the
// schema's owner has declared for it. Schemas are immutable value objects:
// this package only describes them, it never mutates them. The evolution
// engine consumes pairs of snapshots (old, new) and derives everything else.
//
// # Evolution strategies
//
// Strategies form a lattice from most to least restrictive:
//
//	NoEvolution ⊂ Additive ⊂ NonBreaking ⊂ FullEvolution
//
// NoEvolution: the schema is frozen. Any change at all is rejected.
//
// Additive: only non-breaking additions are allowed. Removals, renames and
// type changes are rejected.
//
// NonBreaking: breaking changes are allowed but flagged as requiring a
// data migration.
//
// FullEvolution: anything goes; breaking changes still require a migration
// but never invalidate the transition.
//
// # Dialects
//
// Dialect enumerates the relational engines the migration planner can target.
// The set is closed; adding an engine means adding a generator implementation
// and wiring it through the factory in pkg/migration.
package schema
