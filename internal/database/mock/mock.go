// Package mock provides in-memory implementations of the database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// MockSessionLedger is an in-memory database.SessionLedger
type MockSessionLedger struct {
	mu      sync.RWMutex
	records []database.SessionRecord
	nextID  int64

	// Error injection
	RecordError error
	ListError   error
	CountError  error
}

func NewMockSessionLedger() *MockSessionLedger {
	return &MockSessionLedger{nextID: 1}
}

// RecordSession stores rec, replacing a record with the same file name
func (m *MockSessionLedger) RecordSession(ctx context.Context, rec database.SessionRecord) (database.SessionRecord, error) {
	if m.RecordError != nil {
		return rec, m.RecordError
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	if rec.Source == "" {
		rec.Source = database.SourceCLI
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.records {
		if cur.FileName == rec.FileName {
			m.records[i].Students = rec.Students
			m.records[i].Unknown = rec.Unknown
			return m.records[i], nil
		}
	}
	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, rec)
	return rec, nil
}

// ListSessions returns the newest records first
func (m *MockSessionLedger) ListSessions(ctx context.Context, subject string, limit int) ([]database.SessionRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.SessionRecord
	for _, rec := range m.records {
		if subject == "" || rec.Subject == subject {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountSessions counts records, optionally for one subject
func (m *MockSessionLedger) CountSessions(ctx context.Context, subject string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, rec := range m.records {
		if subject == "" || rec.Subject == subject {
			n++
		}
	}
	return n, nil
}

// Records returns a copy of everything recorded
func (m *MockSessionLedger) Records() []database.SessionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.SessionRecord(nil), m.records...)
}

// MockWebSessionStore is an in-memory database.WebSessionStore
type MockWebSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]database.WebSession
	Now      func() time.Time

	SaveError error
	GetError  error
}

func NewMockWebSessionStore() *MockWebSessionStore {
	return &MockWebSessionStore{sessions: make(map[string]database.WebSession), Now: time.Now}
}

func (m *MockWebSessionStore) Save(ctx context.Context, s database.WebSession) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MockWebSessionStore) Get(ctx context.Context, id string) (*database.WebSession, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || s.Expired(m.Now()) {
		return nil, nil
	}
	return &s, nil
}

func (m *MockWebSessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MockWebSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := m.Now()
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included
func (m *MockWebSessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

var (
	_ database.SessionLedger   = (*MockSessionLedger)(nil)
	_ database.WebSessionStore = (*MockWebSessionStore)(nil)
)
