package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance/internal/constants"
)

// readGuard paces a camera that returns empty frames and gives up after
// too many in a row.
type readGuard struct {
	limit   int
	backoff time.Duration
	failed  int
}

func newReadGuard() readGuard {
	return readGuard{limit: constants.MaxFailedReads, backoff: constants.FailedReadBackoff}
}

// fail records an empty frame. It sleeps for the backoff and returns nil, or
// ErrCameraUnavailable once the limit is reached.
func (g *readGuard) fail(ctx context.Context) error {
	g.failed++
	if g.failed >= g.limit {
		return fmt.Errorf("%w: %d empty frames in a row", ErrCameraUnavailable, g.failed)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(g.backoff):
		return nil
	}
}

func (g *readGuard) reset() {
	g.failed = 0
}
