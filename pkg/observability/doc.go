// Package observability provides structured logging, Prometheus metrics,
// health checks and graceful shutdown for the schema evolution engine.
//
// Logging uses stdlib slog with a JSON handler; loggers flow through
// context so request-scoped fields (request_id) attach automatically.
//
// Metrics cover the engine's pipeline end to end: comparisons, validations,
// plan generation per dialect, migration execution and rollback outcomes,
// and history cache effectiveness. All metrics live in an explicit registry
// so tests can assert on them without global state.
//
// The HealthChecker pings the migration target database and the optional
// history cache; readiness degrades rather than fails when only the cache
// is down.
package observability
