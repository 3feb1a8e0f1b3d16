package refreshingcache

import (
	"time"
)

// Clock tells the time a load completed, and how long ago the last attempt was made for producer backoff.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls the function.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock. It is the default.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock returns a Clock that always reports t, which keeps Stats.LoadedAt deterministic.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time {
		return t
	})
}
