package capture

import (
	"context"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/vision"
)

// Request describes one "take attendance" action.
type Request struct {
	Subject  string
	Duration time.Duration
	Preview  bool
	Stop     <-chan struct{}
	OnMatch  func(attendance.Entry, vision.Match)
}

// TakeAttendance validates the subject, loads the roster, opens the camera,
// runs one window and writes the session file.
func TakeAttendance(ctx context.Context, cfg *config.Config, backend vision.Backend, req Request) (*attendance.Session, error) {
	subject, err := attendance.ValidateSubject(req.Subject)
	if err != nil {
		return nil, err
	}

	students, err := roster.Load(cfg.Storage.RosterPath)
	if err != nil {
		return nil, err
	}

	labels := make(map[int]string, len(students))
	for _, s := range students {
		labels[int(s.Enrollment)] = s.Name
	}

	obs, err := backend.OpenCamera(cfg.Storage.ModelPath, vision.CameraOptions{
		Device:    cfg.Vision.CameraDevice,
		Preview:   req.Preview,
		Threshold: cfg.Vision.ConfidenceThreshold,
		Labels:    labels,
	})
	if err != nil {
		return nil, err
	}
	defer obs.Close()

	duration := req.Duration
	if duration <= 0 {
		duration = cfg.Vision.SessionDuration
	}

	start := time.Now()
	entries, err := Run(ctx, obs, students, Options{
		Duration:  duration,
		Threshold: cfg.Vision.ConfidenceThreshold,
		Stop:      req.Stop,
		OnMatch:   req.OnMatch,
	})
	if err != nil {
		return nil, &attendance.SubjectError{Subject: subject, Err: err}
	}

	log.Infof("capture: %s window finished after %s", subject, time.Since(start).Round(time.Millisecond))
	return attendance.WriteSession(cfg.Storage.AttendanceDir, subject, time.Now(), entries)
}
