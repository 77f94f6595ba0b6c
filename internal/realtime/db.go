package realtime

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Schema version tracking:
// 1 - nodes table
// 2 - index on nodes.rev for change feeds
// 3 - revision counter shared by every process using the database
const currentSchemaVersion = 3

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		path  TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		rev   BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS revision (
		id  INTEGER PRIMARY KEY,
		rev BIGINT NOT NULL
	)`,
}

// Config selects and tunes the SQL backend.
type Config struct {
	Driver string // DriverSQLite (default) or DriverPostgres
	DSN    string // file path for sqlite3, conninfo or URL for postgres

	// Pool settings, postgres only. SQLite always uses one connection.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Option configures a DB.
type Option func(*DB)

// WithKeys overrides the Push key generator.
func WithKeys(g KeyGenerator) Option {
	return func(d *DB) {
		d.keys = g
	}
}

// DB is a realtime database handle. Safe for concurrent use.
type DB struct {
	db     *sql.DB
	driver string
	clock  *Clock
	keys   KeyGenerator
	hub    *hub
}

// Open connects to the configured backend, applies the schema and
// migrations, and reads the current revision. Idempotent.
func Open(ctx context.Context, cfg Config, opts ...Option) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("open %s: empty dsn", driver)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	switch driver {
	case DriverSQLite:
		// SQLite only supports one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	case DriverPostgres:
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	d := &DB{
		db:     db,
		driver: driver,
		keys:   UUIDv7Keys{},
		hub:    newHub(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.applySchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	var rev int64
	if err := db.QueryRowContext(ctx, "SELECT rev FROM revision WHERE id = 1").Scan(&rev); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read revision: %w", err)
	}
	d.clock = NewClockAt(rev)

	slog.Debug("realtime database open", "driver", driver, "rev", rev)
	return d, nil
}

// Close stops all listeners and closes the connection.
func (d *DB) Close() error {
	d.hub.closeAll()
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SQL returns the underlying handle, for packages that keep their own
// tables next to the tree (auth accounts).
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Driver returns the driver name in use.
func (d *DB) Driver() string {
	return d.driver
}

// Revision returns the highest write revision this handle has seen: the
// stored revision at Open, then its own writes. Writes by other processes
// are not reflected until they reach this handle.
func (d *DB) Revision() int64 {
	return d.clock.Current()
}

// Rebind rewrites ? placeholders for the active driver.
func (d *DB) Rebind(query string) string {
	return Rebind(d.driver, query)
}

// Rebind rewrites ? placeholders to $N for postgres and leaves them
// unchanged for sqlite3. Queries must not contain a literal '?'.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func (d *DB) applySchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}
	return d.runMigrations(ctx)
}

// runMigrations applies incremental migrations based on schema_version.
func (d *DB) runMigrations(ctx context.Context) error {
	var version sql.NullInt64
	if err := d.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	if version.Int64 >= currentSchemaVersion {
		return nil
	}

	if version.Int64 < 2 {
		if _, err := d.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_nodes_rev ON nodes(rev)`); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}

	if version.Int64 < 3 {
		// WHERE true keeps SQLite from reading ON CONFLICT as a join clause.
		_, err := d.db.ExecContext(ctx, `
			INSERT INTO revision (id, rev)
			SELECT 1, COALESCE(MAX(rev), 0) FROM nodes WHERE true
			ON CONFLICT (id) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("migrate to v3: %w", err)
		}
	}

	if _, err := d.db.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, d.Rebind("INSERT INTO schema_version (version) VALUES (?)"), currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}

	return nil
}
