// Package migration turns a schema diff into an ordered, reversible,
// dialect-specific plan.
//
// A shared planner template handles diffing, step ordering, rollback
// assembly and duration estimation; per-dialect hook implementations
// (PostgreSQL, SQL Server, MySQL, SQLite) contribute only the DDL and the
// value-rewrite expressions. Generators are selected through a Factory keyed
// by dialect; dialects without an implementation yield
// UnsupportedDialectError.
package migration
