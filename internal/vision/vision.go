// Package vision wraps the face detector, the LBPH recognizer and the camera.
// The OpenCV implementation is compiled with the "opencv" build tag; without it
// every operation fails with ErrUnavailable so the rest of the tool still works.
package vision

import (
	"context"
	"errors"
	"image"

	"github.com/kozaktomas/attendance/internal/logging"
)

var log = logging.Log

var (
	ErrUnavailable       = errors.New("face recognition is not available in this build")
	ErrModelNotFound     = errors.New("model not found")
	ErrModelUnreadable   = errors.New("model file is unreadable")
	ErrCameraUnavailable = errors.New("unable to access camera")
	ErrStopped           = errors.New("stopped by operator")
)

// Sample is one grayscale training image labelled with an enrollment number.
type Sample struct {
	Label int
	Image *image.Gray
}

// Match is one face found in a camera frame. Lower Distance means a closer match.
type Match struct {
	Label    int             `json:"label"`
	Distance float64         `json:"distance"`
	Box      image.Rectangle `json:"box"`
}

// Trainer builds a recognizer from labelled samples. Close releases the
// native recognizer.
type Trainer interface {
	Train(samples []Sample) error
	Save(path string) error
	Close() error
}

// Observer yields the faces recognized in the next camera frame.
type Observer interface {
	Observe(ctx context.Context) ([]Match, error)
	Close() error
}

// CameraOptions configures OpenCamera.
type CameraOptions struct {
	Device    int
	Preview   bool
	Threshold float64 // used only to colour preview boxes
	Labels    map[int]string
}

// Backend creates trainers and camera observers.
type Backend interface {
	NewTrainer() (Trainer, error)
	OpenCamera(modelPath string, opts CameraOptions) (Observer, error)
	Close() error
}

// Available reports whether this binary was built with OpenCV support.
func Available() bool {
	return available
}
