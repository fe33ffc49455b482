package handlers

import (
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/samples"
)

const statsCacheTTL = 30 * time.Second

// statsCache holds cached stats with expiry
type statsCache struct {
	mu        sync.RWMutex
	data      *StatsResponse
	expiresAt time.Time
}

func (c *statsCache) get() (*StatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *StatsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler handles the dashboard quick stats
type StatsHandler struct {
	config *config.Config
	store  *samples.Store
	cache  statsCache
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(cfg *config.Config, store *samples.Store) *StatsHandler {
	return &StatsHandler{
		config: cfg,
		store:  store,
	}
}

// StatsResponse represents the stats response
type StatsResponse struct {
	Students       int    `json:"students"`
	TrainingImages int    `json:"training_images"`
	Subjects       int    `json:"subjects"`
	Sessions       int    `json:"sessions"`
	ModelTrained   bool   `json:"model_trained"`
	ModelUpdated   string `json:"model_updated,omitempty"`
	ModelSize      string `json:"model_size,omitempty"`
	LastSession    string `json:"last_session,omitempty"`
}

// Get returns the stats, served from a short cache unless ?refresh=true
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		h.cache.invalidate()
	}
	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	stats, err := h.compute(r)
	if err != nil {
		respondFailure(w, err)
		return
	}
	h.cache.set(stats)
	respondJSON(w, http.StatusOK, stats)
}

func (h *StatsHandler) compute(r *http.Request) (*StatsResponse, error) {
	stats := &StatsResponse{}
	storage := h.config.Storage

	students, err := roster.Load(storage.RosterPath)
	if err != nil && !errors.Is(err, roster.ErrRosterNotFound) {
		return nil, err
	}
	stats.Students = len(students)

	if err := h.store.Walk(func(string, string) error {
		stats.TrainingImages++
		return nil
	}); err != nil {
		return nil, err
	}

	if info, err := os.Stat(storage.ModelPath); err == nil {
		stats.ModelTrained = true
		stats.ModelUpdated = humanize.Time(info.ModTime())
		stats.ModelSize = humanize.Bytes(uint64(info.Size()))
	}

	subjects, err := attendance.ListSubjects(storage.AttendanceDir)
	if err != nil {
		return nil, err
	}
	stats.Subjects = len(subjects)

	if ledger, err := database.GetSessionLedger(); err == nil {
		if stats.Sessions, err = ledger.CountSessions(r.Context(), ""); err != nil {
			return nil, err
		}
		if recent, err := ledger.ListSessions(r.Context(), "", 1); err == nil && len(recent) > 0 {
			stats.LastSession = humanize.Time(recent[0].RecordedAt)
		}
		return stats, nil
	}

	for _, subject := range subjects {
		sessions, err := attendance.ListSessions(storage.AttendanceDir, subject)
		if err != nil {
			continue
		}
		stats.Sessions += len(sessions)
	}
	return stats, nil
}
