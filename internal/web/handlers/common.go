package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/logging"
	"github.com/kozaktomas/attendance/internal/notify"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/samples"
	"github.com/kozaktomas/attendance/internal/training"
	"github.com/kozaktomas/attendance/internal/vision"
)

var log = logging.Log

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// ErrorResponse is the body of every failed request. Advisory is the sentence
// shown (and optionally spoken) to the operator.
type ErrorResponse struct {
	Error    string `json:"error"`
	Advisory string `json:"advisory,omitempty"`
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondFailure maps err to a status code and sends it with its advisory.
func respondFailure(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("handlers: %v", err)
	}
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Advisory: notify.Message(err)})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, attendance.ErrMissingSubject),
		errors.Is(err, attendance.ErrInvalidSubject),
		errors.Is(err, roster.ErrMissingInput),
		errors.Is(err, roster.ErrNonNumericEnrollment),
		errors.Is(err, roster.ErrInvalidEnrollment),
		errors.Is(err, roster.ErrInvalidName),
		errors.Is(err, samples.ErrNotAnImage):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrSubjectNotFound),
		errors.Is(err, attendance.ErrNoSessionFiles),
		errors.Is(err, roster.ErrRosterNotFound),
		errors.Is(err, vision.ErrModelNotFound),
		errors.Is(err, training.ErrNoTrainingImages):
		return http.StatusNotFound
	case errors.Is(err, roster.ErrDuplicateEnrollment),
		errors.Is(err, attendance.ErrSessionExists):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrNoFaces),
		errors.Is(err, roster.ErrCorruptRoster):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vision.ErrUnavailable),
		errors.Is(err, vision.ErrCameraUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// sendSSEEvent writes one server-sent event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
