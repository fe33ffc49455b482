package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := &config.DatabaseConfig{URL: "sqlite:" + filepath.Join(t.TempDir(), "db", "ledger.db")}
	d, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return d
}

func TestMigrate_Idempotent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	if err := d.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	applied, err := d.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("MigrationsApplied() error = %v", err)
	}
	if len(applied) != 1 || applied[0] != "001_init.sql" {
		t.Errorf("unexpected migrations: %v", applied)
	}
}

func TestLedgerRepository(t *testing.T) {
	repo := NewLedgerRepository(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, subject := range []string{"Math", "Math", "Physics"} {
		rec, err := repo.RecordSession(ctx, database.SessionRecord{
			Subject:    subject,
			FileName:   fmt.Sprintf("%s_%d.csv", subject, i),
			Students:   i + 1,
			Source:     database.SourceWeb,
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("RecordSession() error = %v", err)
		}
		if rec.ID == 0 {
			t.Error("expected ID to be assigned")
		}
	}

	recs, err := repo.ListSessions(ctx, "Math", 10)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 Math sessions, got %d", len(recs))
	}
	if recs[0].FileName != "Math_1.csv" || !recs[0].RecordedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("unexpected newest record: %+v", recs[0])
	}
	if recs[0].Source != database.SourceWeb || recs[0].Students != 2 {
		t.Errorf("fields not round-tripped: %+v", recs[0])
	}

	all, err := repo.ListSessions(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(all) != 2 || all[0].Subject != "Physics" {
		t.Errorf("unexpected limited list: %+v", all)
	}

	if n, err := repo.CountSessions(ctx, ""); err != nil || n != 3 {
		t.Errorf("CountSessions() = %d, %v; want 3", n, err)
	}
	if n, err := repo.CountSessions(ctx, "Physics"); err != nil || n != 1 {
		t.Errorf("CountSessions(Physics) = %d, %v; want 1", n, err)
	}
}

func TestLedgerRepository_Defaults(t *testing.T) {
	repo := NewLedgerRepository(openTestDB(t))
	ctx := context.Background()

	rec, err := repo.RecordSession(ctx, database.SessionRecord{Subject: "Art", FileName: "Art_x.csv"})
	if err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}
	if rec.Source != database.SourceCLI {
		t.Errorf("expected cli source, got %s", rec.Source)
	}
	if rec.RecordedAt.IsZero() {
		t.Error("expected RecordedAt to be set")
	}

	// Same file again updates in place.
	if _, err := repo.RecordSession(ctx, database.SessionRecord{Subject: "Art", FileName: "Art_x.csv", Students: 4}); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}
	recs, _ := repo.ListSessions(ctx, "Art", 10)
	if len(recs) != 1 || recs[0].Students != 4 {
		t.Errorf("expected one updated record, got %+v", recs)
	}
}

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	if err := repo.Save(ctx, database.WebSession{ID: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, database.WebSession{ID: "old", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Get(ctx, "live")
	if err != nil || got == nil {
		t.Fatalf("Get(live) = %v, %v", got, err)
	}
	if !got.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("unexpected expiry: %v", got.ExpiresAt)
	}
	if got, _ := repo.Get(ctx, "old"); got != nil {
		t.Error("expired session must not be returned")
	}
	if got, _ := repo.Get(ctx, "missing"); got != nil {
		t.Error("missing session must not be returned")
	}

	n, err := repo.DeleteExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpired() = %d, %v; want 1", n, err)
	}

	if err := repo.Delete(ctx, "live"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := repo.Get(ctx, "live"); got != nil {
		t.Error("deleted session must not be returned")
	}
}

func TestInitialize_RegistersBackend(t *testing.T) {
	database.Reset()
	t.Cleanup(database.Reset)

	cfg := &config.DatabaseConfig{URL: "sqlite:" + filepath.Join(t.TempDir(), "ledger.db")}
	d, err := Initialize(cfg)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer d.Close()

	if database.BackendName() != "sqlite" {
		t.Errorf("expected sqlite backend, got %q", database.BackendName())
	}
	ledger, err := database.GetSessionLedger()
	if err != nil {
		t.Fatalf("GetSessionLedger() error = %v", err)
	}
	if _, err := ledger.CountSessions(context.Background(), ""); err != nil {
		t.Errorf("CountSessions() error = %v", err)
	}
	if _, err := database.GetWebSessionStore(); err != nil {
		t.Errorf("GetWebSessionStore() error = %v", err)
	}
}
