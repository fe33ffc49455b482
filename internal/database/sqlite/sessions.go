package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// SessionRepository provides SQLite-backed dashboard session storage
type SessionRepository struct {
	d   *DB
	now func() time.Time
}

func NewSessionRepository(d *DB) *SessionRepository {
	return &SessionRepository{d: d, now: time.Now}
}

// Save stores a session, replacing any session with the same ID
func (r *SessionRepository) Save(ctx context.Context, s database.WebSession) error {
	_, err := r.d.db.ExecContext(ctx, `
		INSERT INTO web_sessions (id, created_at, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, s.ID, s.CreatedAt.UnixMilli(), s.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID, returns nil if not found or expired
func (r *SessionRepository) Get(ctx context.Context, id string) (*database.WebSession, error) {
	var s database.WebSession
	var created, expires int64
	err := r.d.db.QueryRowContext(ctx,
		"SELECT id, created_at, expires_at FROM web_sessions WHERE id = ? AND expires_at > ?",
		id, r.now().UnixMilli(),
	).Scan(&s.ID, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.CreatedAt = fromMillis(created)
	s.ExpiresAt = fromMillis(expires)
	return &s, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.d.db.ExecContext(ctx, "DELETE FROM web_sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired sessions and returns the count deleted
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.d.db.ExecContext(ctx, "DELETE FROM web_sessions WHERE expires_at <= ?", r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return count, nil
}
