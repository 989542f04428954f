// Package database provides the corpus database client, schema migrations,
// and health checks. Postgres is the production backend (via the pgx
// driver); SQLite serves local smoke runs and tests, where the search layer
// falls back to its non-FTS query path.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for database/sql
	_ "modernc.org/sqlite"             // register pure-Go sqlite driver
)

//go:embed migrations
var migrationsFS embed.FS

//go:embed schema_sqlite.sql
var sqliteSchema string

// Supported dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Client wraps the corpus database connection with dialect information the
// search layer branches on.
type Client struct {
	db      *sql.DB
	dialect string
}

// DB returns the underlying connection pool.
func (c *Client) DB() *sql.DB { return c.db }

// Dialect returns the backend dialect.
func (c *Client) Dialect() string { return c.dialect }

// SupportsFullText reports whether the backend has ranked full-text search
// (the generated tsvector columns added by migration 2).
func (c *Client) SupportsFullText() bool { return c.dialect == DialectPostgres }

// Placeholder renders the n-th (1-based) SQL placeholder for the dialect.
func (c *Client) Placeholder(n int) string {
	if c.dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Close closes the connection pool.
func (c *Client) Close() error { return c.db.Close() }

// NewClient connects to Postgres, configures the pool, and applies pending
// migrations.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Client{db: db, dialect: DialectPostgres}, nil
}

// NewClientFromDSN connects to Postgres with a raw connection string and
// applies pending migrations. Used by tests driving a container database.
func NewClientFromDSN(ctx context.Context, dsn string) (*Client, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := runMigrations(db, ""); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Client{db: db, dialect: DialectPostgres}, nil
}

// OpenSQLite opens (or creates) a SQLite corpus database and installs the
// schema. Intended for local smoke runs and connector tests.
func OpenSQLite(ctx context.Context, dsn string) (*Client, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// The sqlite driver serializes writes; a single connection avoids
	// table-lock errors from concurrent statements.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to install sqlite schema: %w", err)
	}
	return &Client{db: db, dialect: DialectSQLite}, nil
}

// runMigrations applies embedded SQL migrations with golang-migrate. The
// files are compiled into the binary so deployments need no external
// migration assets.
func runMigrations(db *sql.DB, dbName string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{DatabaseName: dbName})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
