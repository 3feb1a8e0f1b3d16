package refreshingcache

import (
	"errors"

	"github.com/karupanerura/refreshing-cache/internal/flight"
)

var (
	// ErrClosed is returned by operations on a closed Cache, and delivered to callers still queued when it is closed.
	ErrClosed = errors.New("cache closed")

	// ErrLoadTimeout is delivered when a producer invocation outlives the load timeout.
	// Errors matching ErrLoadTimeout also match context.DeadlineExceeded.
	ErrLoadTimeout = flight.ErrTimeout

	// ErrProducerGoexit is delivered when a producer calls runtime.Goexit.
	ErrProducerGoexit = flight.ErrGoexit
)
