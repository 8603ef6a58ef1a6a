// Package storage provides database connectivity and the migration history
// store.
//
// Connector opens database/sql handles for the supported dialects.
// SQLHistoryStore persists one row per executed migration in the
// schema_history table, with full plan and schema snapshots as JSON.
// RedisHistoryCache is an optional read-through cache in front of a
// HistoryStore.
package storage
