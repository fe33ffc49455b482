package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
)

// ErrJobRunning is returned when a capture is requested while another one
// still owns the camera.
var ErrJobRunning = errors.New("a capture session is already running")

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// CaptureState is the JSON view of a capture job.
type CaptureState struct {
	ID          string              `json:"id"`
	Subject     string              `json:"subject"`
	Duration    float64             `json:"duration_seconds"`
	Status      JobStatus           `json:"status"`
	Recognized  []attendance.Entry  `json:"recognized"`
	Error       string              `json:"error,omitempty"`
	Advisory    string              `json:"advisory,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Session     *attendance.Session `json:"session,omitempty"`
}

// CaptureJob is one attendance window running in the background.
type CaptureJob struct {
	EventBroadcaster

	state    CaptureState
	stop     chan struct{}
	stopOnce sync.Once
}

func (j *CaptureJob) ID() string {
	return j.state.ID
}

// GetStatus returns the current job status (implements SSEJob).
func (j *CaptureJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state.Status
}

func (j *CaptureJob) update(fn func(s *CaptureState)) {
	j.mu.Lock()
	fn(&j.state)
	j.mu.Unlock()
}

// Stop ends the capture window early; what was recognized so far is saved.
func (j *CaptureJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
	j.SendEvent(JobEvent{Type: "stopping", Message: "Capture stopped by operator"})
}

// Snapshot returns a copy safe to encode while the job is running.
func (j *CaptureJob) Snapshot() CaptureState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	s := j.state
	s.Recognized = append([]attendance.Entry{}, j.state.Recognized...)
	return s
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job context. Nothing is saved; the job turns cancelled
// and sends its cancelled event once the worker has released the camera.
func (b *EventBroadcaster) Cancel() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (b *EventBroadcaster) setCancel(cancel context.CancelFunc) {
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager keeps capture jobs. Only one may be active at a time because
// the camera is exclusive.
type JobManager struct {
	jobs   map[string]*CaptureJob
	active string
	mu     sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*CaptureJob),
	}
}

// CreateJob registers a new pending job, or fails with ErrJobRunning.
func (m *JobManager) CreateJob(id, subject string, duration time.Duration) (*CaptureJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.jobs[m.active]; ok && !isJobTerminal(cur.GetStatus()) {
		return nil, ErrJobRunning
	}

	job := &CaptureJob{
		state: CaptureState{
			ID:        id,
			Subject:   subject,
			Duration:  duration.Seconds(),
			Status:    JobStatusPending,
			StartedAt: time.Now(),
		},
		stop: make(chan struct{}),
	}
	m.jobs[id] = job
	m.active = id
	return job, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *CaptureJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// Active returns the job holding the camera, or nil.
func (m *JobManager) Active() *CaptureJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[m.active]
	if !ok || isJobTerminal(job.GetStatus()) {
		return nil
	}
	return job
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*CaptureJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*CaptureJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
