// Package mock provides mock implementations of vision interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kozaktomas/attendance/internal/vision"
)

// MockBackend is a mock implementation of vision.Backend
type MockBackend struct {
	mu sync.Mutex

	// Frames are replayed by every observer opened from this backend.
	Frames [][]vision.Match
	// FrameErrors injects an error at a frame index.
	FrameErrors map[int]error
	// Idle is slept on each Observe call once Frames are exhausted.
	Idle time.Duration
	// CloseDelay is slept by observer Close, holding the camera open.
	CloseDelay time.Duration

	// Error injection
	NewTrainerError error
	TrainError      error
	SaveError       error
	OpenCameraError error

	// Recorded calls
	Trained     []vision.Sample
	OpenedModel string
	Options     vision.CameraOptions
	Closed      bool

	open           int
	maxOpen        int
	trainersClosed int
}

// NewMockBackend creates a backend that replays the given frames.
func NewMockBackend(frames ...[]vision.Match) *MockBackend {
	return &MockBackend{Frames: frames, Idle: time.Millisecond}
}

func (m *MockBackend) NewTrainer() (vision.Trainer, error) {
	if m.NewTrainerError != nil {
		return nil, m.NewTrainerError
	}
	return &mockTrainer{backend: m}, nil
}

func (m *MockBackend) OpenCamera(modelPath string, opts vision.CameraOptions) (vision.Observer, error) {
	if m.OpenCameraError != nil {
		return nil, m.OpenCameraError
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", vision.ErrModelNotFound, modelPath)
	}
	m.mu.Lock()
	m.OpenedModel = modelPath
	m.Options = opts
	m.open++
	m.maxOpen = max(m.maxOpen, m.open)
	m.mu.Unlock()
	return &MockObserver{Frames: m.Frames, Errors: m.FrameErrors, Idle: m.Idle, backend: m}, nil
}

// TrainersClosed returns how many trainers were closed.
func (m *MockBackend) TrainersClosed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trainersClosed
}

// MaxOpen returns the largest number of observers that were open at once.
func (m *MockBackend) MaxOpen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxOpen
}

func (m *MockBackend) released() {
	m.mu.Lock()
	m.open--
	m.mu.Unlock()
}

func (m *MockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// TrainedSamples returns the samples passed to the last Train call.
func (m *MockBackend) TrainedSamples() []vision.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Trained
}

type mockTrainer struct {
	backend *MockBackend
	trained bool
}

func (t *mockTrainer) Train(samples []vision.Sample) error {
	if t.backend.TrainError != nil {
		return t.backend.TrainError
	}
	t.backend.mu.Lock()
	t.backend.Trained = samples
	t.backend.mu.Unlock()
	t.trained = true
	return nil
}

func (t *mockTrainer) Close() error {
	t.backend.mu.Lock()
	t.backend.trainersClosed++
	t.backend.mu.Unlock()
	return nil
}

func (t *mockTrainer) Save(path string) error {
	if t.backend.SaveError != nil {
		return t.backend.SaveError
	}
	if !t.trained {
		return fmt.Errorf("not trained")
	}
	return os.WriteFile(path, fmt.Appendf(nil, "labels: %d\n", len(t.backend.TrainedSamples())), 0o644)
}

// MockObserver is a mock implementation of vision.Observer
type MockObserver struct {
	mu     sync.Mutex
	Frames [][]vision.Match
	Errors map[int]error
	Idle   time.Duration
	next   int
	closed bool

	backend *MockBackend
}

func (o *MockObserver) Observe(ctx context.Context) ([]vision.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	i := o.next
	o.next++
	o.mu.Unlock()

	if i >= len(o.Frames) {
		if err, ok := o.Errors[i]; ok {
			return nil, err
		}
		if o.Idle > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.Idle):
			}
		}
		return nil, nil
	}
	return o.Frames[i], o.Errors[i]
}

func (o *MockObserver) Close() error {
	if o.backend != nil {
		time.Sleep(o.backend.CloseDelay)
	}
	o.mu.Lock()
	wasClosed := o.closed
	o.closed = true
	o.mu.Unlock()
	if o.backend != nil && !wasClosed {
		o.backend.released()
	}
	return nil
}

// IsClosed reports whether Close was called.
func (o *MockObserver) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
