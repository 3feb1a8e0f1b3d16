package refreshingcache

import (
	"context"
)

// ValueConstraint is an interface for value constraints.
type ValueConstraint interface {
	any
}

// Producer is an interface for computing the value held by a Cache.
// Implementations must be thread-safe if they are shared between caches.
type Producer[V ValueConstraint] interface {
	// Produce computes the value.
	// It must yield exactly one outcome per call: a value, or an error.
	// When an error is returned, the value is ignored.
	Produce(context.Context) (V, error)
}

// ProducerFunc is a function type that implements the Producer interface.
type ProducerFunc[V ValueConstraint] func(context.Context) (V, error)

// Produce calls the function.
func (f ProducerFunc[V]) Produce(ctx context.Context) (V, error) {
	return f(ctx)
}

// Result is the outcome delivered to a caller of Cache.GetAsync.
type Result[V ValueConstraint] struct {
	// Value is the cached value. It is the zero value of V when Err is not nil.
	Value V

	// Err is the error delivered to the caller, if any.
	Err error
}
