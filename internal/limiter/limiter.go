// Package limiter enforces the one-successful-call-per-window rule that
// the Monobank personal API documents for its endpoints. Windows are
// tracked independently per tool name.
package limiter

import (
	"context"
	"time"
)

// DefaultWindow matches the documented Monobank limit of one request
// per endpoint per 60 seconds.
const DefaultWindow = 60 * time.Second

// Decision is the outcome of an admission check. RetryAfter is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter admits at most one successful invocation per tool per window.
//
// CheckAndReserve and RecordSuccess form a two-phase protocol: an admitted
// caller holds a reservation until it either records success (which starts
// the window) or releases (after an upstream failure, which leaves the
// window unconsumed). While a reservation is held, concurrent calls for
// the same tool are denied.
type Limiter interface {
	CheckAndReserve(ctx context.Context, tool string) (Decision, error)
	RecordSuccess(ctx context.Context, tool string, at time.Time) error
	Release(ctx context.Context, tool string) error
}

// Clock abstracts time so window arithmetic is testable without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the real time.
var SystemClock Clock = systemClock{}

// ceilSeconds rounds a duration up to whole seconds, never below one.
func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}
