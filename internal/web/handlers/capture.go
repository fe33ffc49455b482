package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/capture"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/notify"
	"github.com/kozaktomas/attendance/internal/vision"
)

// CaptureHandler runs attendance windows as background jobs
type CaptureHandler struct {
	config     *config.Config
	backend    vision.Backend
	jobManager *JobManager
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(cfg *config.Config, backend vision.Backend, jm *JobManager) *CaptureHandler {
	return &CaptureHandler{
		config:     cfg,
		backend:    backend,
		jobManager: jm,
	}
}

// CaptureRequest represents a capture start request
type CaptureRequest struct {
	Subject         string  `json:"subject"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Start starts a capture job for one subject
func (h *CaptureHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	subject, err := attendance.ValidateSubject(req.Subject)
	if err != nil {
		respondFailure(w, err)
		return
	}

	duration := h.config.Vision.SessionDuration
	if req.DurationSeconds > 0 {
		duration = time.Duration(req.DurationSeconds * float64(time.Second))
	}

	job, err := h.jobManager.CreateJob(uuid.New().String(), subject, duration)
	if errors.Is(err, ErrJobRunning) {
		respondJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Advisory: "Another attendance session is running."})
		return
	}
	if err != nil {
		respondFailure(w, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job.setCancel(cancel)
	go h.runCaptureJob(ctx, cancel, job, duration)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.ID(),
		"subject": subject,
		"status":  string(JobStatusPending),
	})
}

// Active returns the running capture job, or null
func (h *CaptureHandler) Active(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.Active()
	if job == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

func (h *CaptureHandler) lookup(w http.ResponseWriter, r *http.Request) *CaptureJob {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return nil
	}
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return job
}

// Status returns the status of a capture job
func (h *CaptureHandler) Status(w http.ResponseWriter, r *http.Request) {
	if job := h.lookup(w, r); job != nil {
		respondJSON(w, http.StatusOK, job.Snapshot())
	}
}

// Events streams job events via SSE
func (h *CaptureHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job.(*CaptureJob).Snapshot()
		},
	)
}

// Stop ends the capture window early and saves what was recognized
func (h *CaptureHandler) Stop(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	if isJobTerminal(job.GetStatus()) {
		respondError(w, http.StatusConflict, "job already finished")
		return
	}
	job.Stop()
	respondJSON(w, http.StatusOK, map[string]bool{"stopping": true})
}

// Cancel aborts a capture job without saving. The job stays active until the
// camera is released.
func (h *CaptureHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	if isJobTerminal(job.GetStatus()) {
		respondError(w, http.StatusConflict, "job already finished")
		return
	}
	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runCaptureJob runs the capture window in the background
func (h *CaptureHandler) runCaptureJob(ctx context.Context, cancel context.CancelFunc, job *CaptureJob, duration time.Duration) {
	defer cancel()

	subject := job.Snapshot().Subject
	job.update(func(s *CaptureState) {
		if s.Status == JobStatusPending {
			s.Status = JobStatusRunning
		}
	})
	job.SendEvent(JobEvent{Type: "started", Message: fmt.Sprintf("Taking attendance for %s", subject)})

	session, err := capture.TakeAttendance(ctx, h.config, h.backend, capture.Request{
		Subject:  subject,
		Duration: duration,
		Stop:     job.stop,
		OnMatch: func(e attendance.Entry, m vision.Match) {
			job.update(func(s *CaptureState) { s.Recognized = append(s.Recognized, e) })
			job.SendEvent(JobEvent{Type: "recognized", Message: e.Name, Data: e})
		},
	})
	completed := time.Now()

	if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
		job.update(func(s *CaptureState) {
			s.Status = JobStatusCancelled
			s.CompletedAt = &completed
		})
		log.Infof("capture: job %s cancelled", job.ID())
		job.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user", Data: job.Snapshot()})
		return
	}
	if err != nil {
		advisory := notify.Message(err)
		job.update(func(s *CaptureState) {
			s.Status = JobStatusFailed
			s.Error = err.Error()
			s.Advisory = advisory
			s.CompletedAt = &completed
		})
		log.Warnf("capture: job %s failed: %v", job.ID(), err)
		job.SendEvent(JobEvent{Type: "failed", Message: advisory, Data: job.Snapshot()})
		return
	}

	if err := database.RecordAttendance(context.Background(), session, database.SourceWeb); err != nil {
		log.Warnf("capture: failed to record session in ledger: %v", err)
	}

	advisory := fmt.Sprintf("Attendance saved for %s.", subject)
	job.update(func(s *CaptureState) {
		s.Status = JobStatusCompleted
		s.Session = session
		s.Advisory = advisory
		s.CompletedAt = &completed
	})
	job.SendEvent(JobEvent{Type: "completed", Message: advisory, Data: job.Snapshot()})
}
