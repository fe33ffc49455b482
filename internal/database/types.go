package database

import (
	"time"
)

// Where a session record came from.
const (
	SourceCLI = "cli"
	SourceWeb = "web"
)

// SessionRecord is the ledger entry written after an attendance session file
// has been persisted. The CSV file stays authoritative.
type SessionRecord struct {
	ID         int64     `json:"id"`
	Subject    string    `json:"subject"`
	FileName   string    `json:"file_name"`
	Students   int       `json:"students"` // recognized roster students
	Unknown    int       `json:"unknown"`  // faces recorded as Unknown
	RecordedAt time.Time `json:"recorded_at"`
	Source     string    `json:"source"` // SourceCLI or SourceWeb
}

// WebSession is a dashboard login persisted across restarts.
type WebSession struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *WebSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
