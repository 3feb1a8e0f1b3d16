package refresher

import (
	"context"
	"time"
)

// Refresher is anything that can reload its state on demand.
// Implementations must be thread-safe.
type Refresher interface {
	// Refresh reloads the state and returns the error of the load, if any.
	Refresh(context.Context) error
}

// RefresherFunc is a function type that implements the Refresher interface.
type RefresherFunc func(context.Context) error

// Refresh calls the function.
func (f RefresherFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// IntervalRefresher is a background refresher that calls Refresh on its target at a fixed interval.
//
// Calls never overlap: a tick that fires while the previous Refresh is still running is dropped.
type IntervalRefresher struct {
	target            Refresher
	interval          time.Duration
	onBackgroundError func(error)
}

// NewIntervalRefresher creates a new IntervalRefresher.
// The interval must be positive.
// onBackgroundError receives the errors returned by the target while the refresher is running.
func NewIntervalRefresher(target Refresher, interval time.Duration, onBackgroundError func(error)) *IntervalRefresher {
	if interval <= 0 {
		panic("interval must be positive")
	}
	return &IntervalRefresher{
		target:            target,
		interval:          interval,
		onBackgroundError: onBackgroundError,
	}
}

// LaunchBackgroundRefresher starts Run in a new goroutine.
// The background refresher can be stopped by canceling the context passed to LaunchBackgroundRefresher.
func (r *IntervalRefresher) LaunchBackgroundRefresher(ctx context.Context) {
	go r.Run(ctx)
}

// Run refreshes the target at the fixed interval and blocks until ctx is cancelled.
func (r *IntervalRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			err := r.target.Refresh(ctx)
			if err != nil && ctx.Err() == nil && r.onBackgroundError != nil {
				r.onBackgroundError(err)
			}
		}
	}
}
