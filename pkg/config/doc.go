// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	SCHEMAFLOW_HOST="0.0.0.0"
//	SCHEMAFLOW_PORT="8080"
//	SCHEMAFLOW_HEALTH_PORT="9090"
//	SCHEMAFLOW_READ_TIMEOUT="15s"
//	SCHEMAFLOW_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	SCHEMAFLOW_DB_DIALECT="postgresql"  # postgresql, sqlite
//	SCHEMAFLOW_DB_URL="postgres://localhost/schemaflow"
//	SCHEMAFLOW_DB_MAX_CONNS="20"
//	SCHEMAFLOW_DB_CONNECT_TIMEOUT="5s"
//
// History cache settings:
//
//	SCHEMAFLOW_CACHE_ENABLED="true"
//	SCHEMAFLOW_REDIS_ADDR="localhost:6379"
//	SCHEMAFLOW_CACHE_TTL="5m"
//
// Observability settings:
//
//	SCHEMAFLOW_LOG_LEVEL="info"  # debug, info, warn, error
//	SCHEMAFLOW_METRICS_ENABLED="true"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Dialect: %s\n", cfg.Database.Dialect)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/storage: Uses database configuration
//   - pkg/observability: Uses observability configuration
package config
