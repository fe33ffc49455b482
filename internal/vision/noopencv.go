//go:build !opencv

package vision

import "github.com/kozaktomas/attendance/internal/config"

const available = false

type unavailable struct{}

// New returns a backend whose operations fail with ErrUnavailable.
func New(cfg config.VisionConfig) (Backend, error) {
	log.Debugf("vision: built without opencv, cascade %s ignored", cfg.CascadePath)
	return unavailable{}, nil
}

func (unavailable) NewTrainer() (Trainer, error) {
	return nil, ErrUnavailable
}

func (unavailable) OpenCamera(string, CameraOptions) (Observer, error) {
	return nil, ErrUnavailable
}

func (unavailable) Close() error {
	return nil
}
