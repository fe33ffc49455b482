package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/constants"
)

// SubjectsHandler exposes session files and their aggregate summary
type SubjectsHandler struct {
	config *config.Config
}

// NewSubjectsHandler creates a new subjects handler
func NewSubjectsHandler(cfg *config.Config) *SubjectsHandler {
	return &SubjectsHandler{config: cfg}
}

// SubjectResponse is one subject folder
type SubjectResponse struct {
	Name     string `json:"name"`
	Sessions int    `json:"sessions"`
}

// List returns every subject folder with its session count
func (h *SubjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	dir := h.config.Storage.AttendanceDir
	names, err := attendance.ListSubjects(dir)
	if err != nil {
		respondFailure(w, err)
		return
	}

	out := make([]SubjectResponse, 0, len(names))
	for _, name := range names {
		sessions, err := attendance.ListSessions(dir, name)
		if err != nil {
			log.Warnf("subjects: listing %s: %v", sanitizeForLog(name), err)
		}
		out = append(out, SubjectResponse{Name: name, Sessions: len(sessions)})
	}
	respondJSON(w, http.StatusOK, out)
}

// Sessions lists the session files of a subject
func (h *SubjectsHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := attendance.ListSessions(h.config.Storage.AttendanceDir, chi.URLParam(r, "subject"))
	if err != nil {
		respondFailure(w, err)
		return
	}
	if sessions == nil {
		sessions = []attendance.SessionInfo{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

// Session returns the parsed content of one session file
func (h *SubjectsHandler) Session(w http.ResponseWriter, r *http.Request) {
	subject, err := attendance.ValidateSubject(chi.URLParam(r, "subject"))
	if err != nil {
		respondFailure(w, err)
		return
	}
	file := chi.URLParam(r, "file")
	if file != filepath.Base(file) || !strings.HasSuffix(file, ".csv") || file == constants.SummaryFileName {
		respondError(w, http.StatusBadRequest, "invalid session file name")
		return
	}

	session, err := attendance.ReadSession(filepath.Join(h.config.Storage.AttendanceDir, subject, file))
	if errors.Is(err, os.ErrNotExist) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "session file is not readable")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// SummaryResponse is the aggregate table as the dashboard renders it
type SummaryResponse struct {
	Subject  string               `json:"subject"`
	Columns  []string             `json:"columns"`
	Rows     []SummaryRowResponse `json:"rows"`
	Skipped  []string             `json:"skipped,omitempty"`
	Saved    bool                 `json:"saved"`
	Advisory string               `json:"advisory,omitempty"`
}

// SummaryRowResponse is one student line of the summary
type SummaryRowResponse struct {
	Enrollment string    `json:"enrollment"`
	Name       string    `json:"name"`
	Values     []float64 `json:"values"`
	Attendance string    `json:"attendance"`
}

func newSummaryResponse(s *attendance.Summary, saved bool) SummaryResponse {
	columns := append([]string{attendance.EnrollmentColumn, attendance.NameColumn}, s.Sessions...)
	columns = append(columns, attendance.SummaryColumn)
	rows := make([]SummaryRowResponse, 0, len(s.Rows))
	for _, row := range s.Rows {
		rows = append(rows, SummaryRowResponse{
			Enrollment: row.Enrollment,
			Name:       row.Name,
			Values:     row.Values,
			Attendance: row.Attendance(),
		})
	}
	return SummaryResponse{
		Subject: s.Subject,
		Columns: columns,
		Rows:    rows,
		Skipped: s.Skipped,
		Saved:   saved,
	}
}

// Summary computes the aggregate without writing it
func (h *SubjectsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := attendance.Summarize(h.config.Storage.AttendanceDir, chi.URLParam(r, "subject"))
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newSummaryResponse(s, false))
}

// SaveSummary computes the aggregate and writes attendance.csv
func (h *SubjectsHandler) SaveSummary(w http.ResponseWriter, r *http.Request) {
	s, err := attendance.Aggregate(h.config.Storage.AttendanceDir, chi.URLParam(r, "subject"))
	if err != nil {
		respondFailure(w, err)
		return
	}
	resp := newSummaryResponse(s, true)
	resp.Advisory = "Attendance summary saved for " + s.Subject + "."
	respondJSON(w, http.StatusOK, resp)
}

// SummaryCSV downloads the aggregate as CSV without touching the stored file
func (h *SubjectsHandler) SummaryCSV(w http.ResponseWriter, r *http.Request) {
	s, err := attendance.Summarize(h.config.Storage.AttendanceDir, chi.URLParam(r, "subject"))
	if err != nil {
		respondFailure(w, err)
		return
	}
	data, err := s.CSV()
	if err != nil {
		respondFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.Subject+`_`+constants.SummaryFileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
