// internal/common/clock/clock.go
package clock

import "time"

// Clock abstracts the time source so recency scoring and cache expiry can be
// tested against fixed instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// New returns a Clock backed by the system clock.
func New() Clock {
	return systemClock{}
}

// Fixed is a Clock pinned to a settable instant. Not safe for concurrent
// mutation; tests advance it between assertions.
type Fixed struct {
	Instant time.Time
}

func (f *Fixed) Now() time.Time { return f.Instant }

// Advance moves the fixed instant forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.Instant = f.Instant.Add(d)
}

// NewFixed returns a Fixed clock pinned to t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{Instant: t}
}
