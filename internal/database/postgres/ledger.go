package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// LedgerRepository records persisted attendance sessions.
type LedgerRepository struct {
	pool *Pool
}

func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// RecordSession inserts rec. Recording the same file twice updates the counts.
func (r *LedgerRepository) RecordSession(ctx context.Context, rec database.SessionRecord) (database.SessionRecord, error) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	if rec.Source == "" {
		rec.Source = database.SourceCLI
	}

	query := `
		INSERT INTO attendance_sessions (subject, file_name, students, unknown, source, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (file_name) DO UPDATE SET
			students = EXCLUDED.students,
			unknown = EXCLUDED.unknown
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		rec.Subject, rec.FileName, rec.Students, rec.Unknown, rec.Source, rec.RecordedAt,
	).Scan(&rec.ID)
	if err != nil {
		return rec, fmt.Errorf("record session: %w", err)
	}
	return rec, nil
}

// ListSessions returns the newest records first.
func (r *LedgerRepository) ListSessions(ctx context.Context, subject string, limit int) ([]database.SessionRecord, error) {
	query := `
		SELECT id, subject, file_name, students, unknown, source, recorded_at
		FROM attendance_sessions
		WHERE $1 = '' OR subject = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []database.SessionRecord
	for rows.Next() {
		var rec database.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.Subject, &rec.FileName, &rec.Students, &rec.Unknown, &rec.Source, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// CountSessions counts records, optionally for one subject.
func (r *LedgerRepository) CountSessions(ctx context.Context, subject string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM attendance_sessions WHERE $1 = '' OR subject = $1", subject,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
