package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Bundled database/sql drivers.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// Config for a database connection.
type Config struct {
	Dialect schema.Dialect
	DSN     string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultConfig returns sensible connection defaults for the dialect.
func DefaultConfig(dialect schema.Dialect, dsn string) Config {
	return Config{
		Dialect:         dialect,
		DSN:             dsn,
		MaxOpenConns:    20,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

// driverNames maps dialects to their registered database/sql driver.
// MySQL and SQL Server plans are generated but executed through external
// tooling, so no driver is bundled for them.
var driverNames = map[schema.Dialect]string{
	schema.DialectPostgreSQL: "postgres",
	schema.DialectSQLite:     "sqlite3",
}

// Connector opens database handles for migration execution and history
// persistence.
type Connector struct {
	cfg Config
}

// NewConnector creates a connector for the given configuration.
func NewConnector(cfg Config) *Connector {
	return &Connector{cfg: cfg}
}

// Dialect returns the dialect this connector opens connections for.
func (c *Connector) Dialect() schema.Dialect {
	return c.cfg.Dialect
}

// Connect opens and pings a database handle.
func (c *Connector) Connect(ctx context.Context) (*sql.DB, error) {
	driver, ok := driverNames[c.cfg.Dialect]
	if !ok {
		return nil, fmt.Errorf("no bundled driver for dialect %s", c.cfg.Dialect)
	}

	db, err := sql.Open(driver, c.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", c.cfg.Dialect, err)
	}

	db.SetMaxOpenConns(c.cfg.MaxOpenConns)
	db.SetMaxIdleConns(c.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)

	pingCtx := ctx
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", c.cfg.Dialect, err)
	}

	return db, nil
}
