package database

import (
	"context"
)

// SessionLedger indexes persisted attendance sessions for the dashboard history.
type SessionLedger interface {
	// RecordSession stores rec and returns it with ID filled in
	RecordSession(ctx context.Context, rec SessionRecord) (SessionRecord, error)
	// ListSessions returns the newest records first; an empty subject lists all subjects
	ListSessions(ctx context.Context, subject string, limit int) ([]SessionRecord, error)
	// CountSessions returns the number of records, optionally for one subject
	CountSessions(ctx context.Context, subject string) (int, error)
}

// WebSessionStore persists dashboard logins.
type WebSessionStore interface {
	Save(ctx context.Context, s WebSession) error
	// Get returns nil when the session does not exist or has expired
	Get(ctx context.Context, id string) (*WebSession, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes expired sessions and returns how many were deleted
	DeleteExpired(ctx context.Context) (int64, error)
}
