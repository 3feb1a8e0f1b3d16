package producer

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bool64/ctxd"
	"golang.org/x/sync/semaphore"

	refreshingcache "github.com/karupanerura/refreshing-cache"
)

// BackoffStrategy returns the minimum delay between the last attempt and the next one
// after the given number of consecutive errors.
type BackoffStrategy func(consecutiveErrors uint) time.Duration

// NewBalancedBackoffStrategy returns an exponential strategy growing roughly like the Fibonacci sequence
// from initial up to final, with 5% jitter.
func NewBalancedBackoffStrategy(initial, final time.Duration) BackoffStrategy {
	const goldenRatio = 1.618033988749895
	return NewClampedExponentialBackoffWithJitter(initial, goldenRatio, final, 0.05)
}

// NewClampedExponentialBackoffWithJitter returns a strategy that does not delay the retry after the first error,
// then waits initial, initial*base, initial*base^2 and so on, clamped to final.
// Each delay is randomized by up to the jitter ratio in both directions.
func NewClampedExponentialBackoffWithJitter(initial time.Duration, base float64, final time.Duration, jitter float64) BackoffStrategy {
	initialAsFloat := float64(initial)
	finalAsFloat := float64(final)
	return func(consecutiveErrors uint) time.Duration {
		const firstErrorWithDelay uint = 2
		if consecutiveErrors < firstErrorWithDelay {
			return 0
		}
		raw := math.Pow(base, float64(consecutiveErrors-firstErrorWithDelay)) * initialAsFloat
		clamped := math.Min(raw, finalAsFloat)
		withJitter := clamped * (1 + jitter*(2*rand.Float64()-1)) //nolint:gosec
		return time.Duration(withJitter)
	}
}

// Backoff is a decorator for a refreshingcache.Producer that delays invocations after consecutive errors,
// so a failing upstream is not hammered by refreshes or cold retries.
// Invocations are serialized. A caller waiting for the previous invocation gives up when its context is done,
// so an invocation abandoned by a load timeout does not pile up the later ones.
type Backoff[V refreshingcache.ValueConstraint] struct {
	// Producer is the underlying producer that this decorator wraps.
	Producer refreshingcache.Producer[V]

	// Strategy decides the delay after consecutive errors.
	Strategy BackoffStrategy

	// Clock is used to measure the time since the last attempt.
	// refreshingcache.SystemClock is used if it is nil.
	Clock refreshingcache.Clock

	initOnce          sync.Once
	sem               *semaphore.Weighted
	lastAttempt       time.Time
	consecutiveErrors atomic.Uint64
}

var _ refreshingcache.Producer[struct{}] = (*Backoff[struct{}])(nil)

// Produce waits for the backoff delay if the previous invocations failed, then invokes the underlying producer.
// If ctx is done while waiting, the underlying producer is not invoked and the context error is returned.
func (p *Backoff[V]) Produce(ctx context.Context) (V, error) {
	p.initOnce.Do(func() {
		p.sem = semaphore.NewWeighted(1)
	})
	if err := p.sem.Acquire(ctx, 1); err != nil {
		var zero V
		return zero, ctxd.WrapError(ctx, err, "interrupted while waiting for the previous invocation")
	}
	defer p.sem.Release(1)

	clock := p.Clock
	if clock == nil {
		clock = refreshingcache.SystemClock
	}

	if n := p.consecutiveErrors.Load(); n > 0 {
		delay := p.Strategy(uint(n)) - clock.Now().Sub(p.lastAttempt)
		if err := sleep(ctx, delay); err != nil {
			var zero V
			return zero, ctxd.WrapError(ctx, err, "interrupted while backing off", "consecutiveErrors", n, "delay", delay)
		}
	}

	p.lastAttempt = clock.Now()
	value, err := p.Producer.Produce(ctx)
	if err != nil {
		p.consecutiveErrors.Add(1)
		return value, err
	}
	p.consecutiveErrors.Store(0)
	return value, nil
}

// ConsecutiveErrors returns the number of invocations that failed in a row.
func (p *Backoff[V]) ConsecutiveErrors() uint {
	return uint(p.consecutiveErrors.Load())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
