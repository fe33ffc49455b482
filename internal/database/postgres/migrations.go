package postgres

import (
	"context"
	"embed"
	"io/fs"

	"github.com/kozaktomas/attendance/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var dialect = database.Dialect{
	Name: "postgres",
	CreateTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`,
	Insert: "INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)",
}

// Migrate applies the ledger schema.
func (p *Pool) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return database.Migrate(ctx, p.db, sub, dialect)
}

func (p *Pool) MigrationsApplied(ctx context.Context) ([]string, error) {
	return database.AppliedMigrations(ctx, p.db)
}
