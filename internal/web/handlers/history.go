package handlers

import (
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
)

// HistoryHandler serves the session ledger
type HistoryHandler struct{}

func NewHistoryHandler() *HistoryHandler {
	return &HistoryHandler{}
}

// HistoryEntry is a ledger record with a human readable age
type HistoryEntry struct {
	database.SessionRecord
	Age string `json:"age"`
}

// HistoryResponse lists ledger records, newest first
type HistoryResponse struct {
	Enabled  bool           `json:"enabled"`
	Sessions []HistoryEntry `json:"sessions"`
}

// List returns recent sessions, optionally for ?subject= and up to ?limit=
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if !database.IsInitialized() {
		respondJSON(w, http.StatusOK, HistoryResponse{Sessions: []HistoryEntry{}})
		return
	}
	ledger, err := database.GetSessionLedger()
	if err != nil {
		respondFailure(w, err)
		return
	}

	limit := constants.DefaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, constants.MaxHistoryLimit)
	}

	recs, err := ledger.ListSessions(r.Context(), r.URL.Query().Get("subject"), limit)
	if err != nil {
		respondFailure(w, err)
		return
	}

	resp := HistoryResponse{Enabled: true, Sessions: make([]HistoryEntry, 0, len(recs))}
	for _, rec := range recs {
		resp.Sessions = append(resp.Sessions, HistoryEntry{SessionRecord: rec, Age: humanize.Time(rec.RecordedAt)})
	}
	respondJSON(w, http.StatusOK, resp)
}
