// Package sqlite implements the session ledger and the dashboard session
// store on an embedded SQLite file. Timestamps are stored as Unix milliseconds.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite handle.
type DB struct {
	db *sql.DB
}

// Open opens (creating when needed) the database file named by cfg.
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	dsn := cfg.DSN()
	if dsn == "" {
		return nil, errors.New("database URL is required")
	}
	if path := filePath(dsn); path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{db: db}, nil
}

func filePath(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "file:")
	path, _, _ := strings.Cut(dsn, "?")
	return path
}

func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

var dialect = database.Dialect{
	Name: "sqlite",
	CreateTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`,
	Insert: "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
}

// Migrate applies the embedded migrations that have not been applied yet.
func (d *DB) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return database.Migrate(ctx, d.db, sub, dialect)
}

// MigrationsApplied returns the applied migration versions in order.
func (d *DB) MigrationsApplied(ctx context.Context) ([]string, error) {
	return database.AppliedMigrations(ctx, d.db)
}

// Initialize opens the database, migrates it and registers it as the active
// database backend. The returned DB must be closed by the caller.
func Initialize(cfg *config.DatabaseConfig) (*DB, error) {
	d, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(context.Background()); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	Register(d)
	return d, nil
}

// Register makes the repositories of d the active database backend.
func Register(d *DB) {
	ledger := NewLedgerRepository(d)
	sessions := NewSessionRepository(d)
	database.RegisterBackend("sqlite",
		func() database.SessionLedger { return ledger },
		func() database.WebSessionStore { return sessions },
	)
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
