// Package capture runs one attendance window over a camera observer.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/logging"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/vision"
)

var log = logging.Log

// Options bounds a capture window.
type Options struct {
	Duration  time.Duration
	Threshold float64
	// Stop ends the window early; entries seen so far are kept.
	Stop <-chan struct{}
	// OnMatch is called once per newly recognized student.
	OnMatch func(attendance.Entry, vision.Match)
	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

func (o *Options) defaults() {
	if o.Duration <= 0 {
		o.Duration = 20 * time.Second
	}
	if o.Threshold <= 0 {
		o.Threshold = constants.DefaultConfidenceThreshold
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Run polls the observer until the window elapses or Stop fires. A match is
// accepted when its distance is below the threshold; labels missing from the
// roster are recorded under the unknown name. Cancelling ctx aborts the
// window and nothing is returned.
func Run(ctx context.Context, obs vision.Observer, students []roster.Student, opts Options) ([]attendance.Entry, error) {
	opts.defaults()
	names := roster.Index(students)
	deadline := opts.Now().Add(opts.Duration)

	seen := make(map[int64]bool)
	var entries []attendance.Entry

	for opts.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stopped(opts.Stop) {
			log.Debug("capture: stopped early")
			break
		}

		matches, err := obs.Observe(ctx)
		for _, m := range matches {
			if m.Distance >= opts.Threshold {
				continue
			}
			id := int64(m.Label)
			if seen[id] {
				continue
			}
			seen[id] = true
			e := attendance.Entry{Enrollment: id, Name: constants.UnknownStudentName}
			if st, ok := names[id]; ok {
				e.Name = st.Name
			}
			entries = append(entries, e)
			log.Debugf("capture: %d %s (distance %.1f)", e.Enrollment, e.Name, m.Distance)
			if opts.OnMatch != nil {
				opts.OnMatch(e, m)
			}
		}

		if errors.Is(err, vision.ErrStopped) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
	}

	if len(entries) == 0 {
		return nil, attendance.ErrNoFaces
	}
	return entries, nil
}

func stopped(stop <-chan struct{}) bool {
	if stop == nil {
		return false
	}
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
