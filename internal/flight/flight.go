// Package flight runs a single producer invocation and publishes its outcome.
package flight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/karupanerura/refreshing-cache/internal/panicutil"
)

var (
	// ErrTimeout is returned by Invoke when the invocation outlives its timeout.
	ErrTimeout = errors.New("producer invocation timed out")

	// ErrGoexit is returned by Invoke when the producer calls runtime.Goexit.
	ErrGoexit = errors.New("runtime.Goexit is called in producer")
)

type outcome[V any] struct {
	value V
	err   error
}

// Invoke calls fn exactly once in its own goroutine and waits for the outcome.
//
// A non-positive timeout disables the timeout.
// When the timeout elapses first, Invoke returns an error matching both ErrTimeout and
// context.DeadlineExceeded; fn keeps running with a cancelled context and its late outcome is discarded.
// When ctx is cancelled first, Invoke returns the context error.
func Invoke[V any](ctx context.Context, fn func(context.Context) (V, error), timeout time.Duration) (V, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, timeout, ErrTimeout)
		defer cancel()
	}

	ch := make(chan outcome[V], 1)
	go func() {
		guard := panicutil.Guard{
			OnGoexit: func() {
				ch <- outcome[V]{err: ErrGoexit}
			},
		}
		value, err := panicutil.Call(guard, func() (V, error) {
			return fn(ctx)
		})
		ch <- outcome[V]{value: value, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil && isTimeout(ctx) {
			return o.value, timeoutError(timeout)
		}
		return o.value, o.err
	case <-ctx.Done():
		var zero V
		if isTimeout(ctx) {
			return zero, timeoutError(timeout)
		}
		return zero, ctx.Err()
	}
}

func isTimeout(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrTimeout)
}

func timeoutError(timeout time.Duration) error {
	return fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, context.DeadlineExceeded)
}

// Call is a latch for one load.
// Err must not be read before Done is closed.
type Call struct {
	done chan struct{}
	err  error
}

// NewCall returns a pending Call.
func NewCall() *Call {
	return &Call{done: make(chan struct{})}
}

// Finish publishes the error of the load and releases everyone waiting on Done.
// It must be called exactly once.
func (c *Call) Finish(err error) {
	c.err = err
	close(c.done)
}

// Done returns a channel that is closed when the load finishes.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Err returns the error of the load.
func (c *Call) Err() error {
	return c.err
}
