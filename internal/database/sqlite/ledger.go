package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// LedgerRepository records persisted attendance sessions.
type LedgerRepository struct {
	d *DB
}

func NewLedgerRepository(d *DB) *LedgerRepository {
	return &LedgerRepository{d: d}
}

// RecordSession inserts rec. Recording the same file twice updates the counts.
func (r *LedgerRepository) RecordSession(ctx context.Context, rec database.SessionRecord) (database.SessionRecord, error) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	if rec.Source == "" {
		rec.Source = database.SourceCLI
	}

	err := r.d.db.QueryRowContext(ctx, `
		INSERT INTO attendance_sessions (subject, file_name, students, unknown, source, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (file_name) DO UPDATE SET
			students = excluded.students,
			unknown = excluded.unknown
		RETURNING id
	`, rec.Subject, rec.FileName, rec.Students, rec.Unknown, rec.Source, rec.RecordedAt.UnixMilli(),
	).Scan(&rec.ID)
	if err != nil {
		return rec, fmt.Errorf("record session: %w", err)
	}
	return rec, nil
}

// ListSessions returns the newest records first.
func (r *LedgerRepository) ListSessions(ctx context.Context, subject string, limit int) ([]database.SessionRecord, error) {
	rows, err := r.d.db.QueryContext(ctx, `
		SELECT id, subject, file_name, students, unknown, source, recorded_at
		FROM attendance_sessions
		WHERE ? = '' OR subject = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, subject, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []database.SessionRecord
	for rows.Next() {
		var rec database.SessionRecord
		var recordedAt int64
		if err := rows.Scan(&rec.ID, &rec.Subject, &rec.FileName, &rec.Students, &rec.Unknown, &rec.Source, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.RecordedAt = fromMillis(recordedAt)
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
	err := r.d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attendance_sessions WHERE ? = '' OR subject = ?", subject, subject,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
