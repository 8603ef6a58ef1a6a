// Package evolution is the façade over schema diffing, policy validation,
// plan generation and plan execution.
//
// Service exposes the whole lifecycle: Compare and Validate work on schema
// snapshots, GeneratePlan produces dialect-specific plans through the
// migration factory (memoized in an LRU cache), Execute applies a plan in a
// single all-or-nothing transaction and records the outcome in the history
// store after commit.
package evolution
