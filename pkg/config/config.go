package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schemaflow/schemaflow/pkg/observability"
	"github.com/schemaflow/schemaflow/pkg/schema"
	"github.com/schemaflow/schemaflow/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database storage.Config

	// History cache configuration
	Cache CacheConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// CacheConfig holds the Redis history cache settings
type CacheConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Cache:         loadCacheConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SCHEMAFLOW_HOST", "0.0.0.0"),
		Port:            getEnv("SCHEMAFLOW_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SCHEMAFLOW_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SCHEMAFLOW_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SCHEMAFLOW_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SCHEMAFLOW_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SCHEMAFLOW_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() storage.Config {
	dialect, err := schema.ParseDialect(getEnv("SCHEMAFLOW_DB_DIALECT", "postgresql"))
	if err != nil {
		dialect = schema.DialectPostgreSQL
	}

	cfg := storage.DefaultConfig(dialect, getEnv("SCHEMAFLOW_DB_URL", ""))
	if maxConns := getEnvInt("SCHEMAFLOW_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxOpenConns = maxConns
	}
	if idleConns := getEnvInt("SCHEMAFLOW_DB_IDLE_CONNS", 0); idleConns > 0 {
		cfg.MaxIdleConns = idleConns
	}
	if lifetime := getEnvDuration("SCHEMAFLOW_DB_CONN_LIFETIME", 0); lifetime > 0 {
		cfg.ConnMaxLifetime = lifetime
	}
	if timeout := getEnvDuration("SCHEMAFLOW_DB_CONNECT_TIMEOUT", 0); timeout > 0 {
		cfg.ConnectTimeout = timeout
	}
	return cfg
}

// loadCacheConfig loads the history cache configuration from environment
func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:       getEnvBool("SCHEMAFLOW_CACHE_ENABLED", false),
		RedisAddr:     getEnv("SCHEMAFLOW_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("SCHEMAFLOW_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SCHEMAFLOW_REDIS_DB", 0),
		TTL:           getEnvDuration("SCHEMAFLOW_CACHE_TTL", 5*time.Minute),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("SCHEMAFLOW_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("SCHEMAFLOW_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database URL is required (SCHEMAFLOW_DB_URL)")
	}
	switch c.Database.Dialect {
	case schema.DialectPostgreSQL, schema.DialectSQLite:
	default:
		return fmt.Errorf("dialect %s has no bundled driver (use postgresql or sqlite)", c.Database.Dialect)
	}

	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("redis address is required when the history cache is enabled")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
