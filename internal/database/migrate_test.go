package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

var testDialect = Dialect{
	Name:        "test",
	CreateTable: `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)`,
	Insert:      "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_AppliesInOrderOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"002_index.sql": {Data: []byte("CREATE INDEX idx_sessions_subject ON sessions(subject);")},
		"001_init.sql":  {Data: []byte("CREATE TABLE sessions (id INTEGER PRIMARY KEY, subject TEXT);")},
		"README.md":     {Data: []byte("not a migration")},
	}

	if err := Migrate(ctx, db, fsys, testDialect); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := Migrate(ctx, db, fsys, testDialect); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	applied, err := AppliedMigrations(ctx, db)
	if err != nil {
		t.Fatalf("AppliedMigrations() error = %v", err)
	}
	if strings.Join(applied, ",") != "001_init.sql,002_index.sql" {
		t.Errorf("unexpected migrations %v", applied)
	}
}

func TestMigrate_FailedMigrationIsNotRecorded(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"001_init.sql":   {Data: []byte("CREATE TABLE sessions (id INTEGER PRIMARY KEY);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE oops (")},
	}

	if err := Migrate(ctx, db, fsys, testDialect); err == nil || !strings.Contains(err.Error(), "002_broken.sql") {
		t.Fatalf("expected failure naming the broken migration, got %v", err)
	}

	applied, err := AppliedMigrations(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 1 || applied[0] != "001_init.sql" {
		t.Errorf("unexpected migrations %v", applied)
	}
}
