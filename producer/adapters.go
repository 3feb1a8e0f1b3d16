package producer

import (
	"context"

	"github.com/goccy/go-reflect"
	"golang.org/x/sync/singleflight"

	refreshingcache "github.com/karupanerura/refreshing-cache"
)

// ErrorObserver is a decorator for a refreshingcache.Producer that reports errors to OnError.
// The error is still returned to the cache.
type ErrorObserver[V refreshingcache.ValueConstraint] struct {
	// Producer is the underlying producer that this decorator wraps.
	Producer refreshingcache.Producer[V]

	// OnError is a function that is called when the producer fails.
	OnError func(error)
}

var _ refreshingcache.Producer[struct{}] = (*ErrorObserver[struct{}])(nil)

// Produce invokes the underlying producer and passes its error to OnError if it is set.
func (p *ErrorObserver[V]) Produce(ctx context.Context) (V, error) {
	value, err := p.Producer.Produce(ctx)
	if err != nil && p.OnError != nil {
		p.OnError(err)
	}
	return value, err
}

// Coalesce is a producer that shares one invocation of Producer between concurrent callers.
// It is useful when several caches are backed by the same expensive upstream.
// The context of the caller that started the invocation is used for it.
type Coalesce[V refreshingcache.ValueConstraint] struct {
	Producer refreshingcache.Producer[V]

	group singleflight.Group
}

var _ refreshingcache.Producer[struct{}] = (*Coalesce[struct{}])(nil)

// Produce invokes the underlying producer, or waits for the outstanding invocation and returns its outcome.
func (p *Coalesce[V]) Produce(ctx context.Context) (V, error) {
	v, err, _ := p.group.Do("", func() (any, error) {
		return p.Producer.Produce(ctx)
	})

	// v is a nil interface when V is an interface type and the producer returned nil
	value, _ := v.(V)
	return value, err
}

// Lint is a producer that is used for linting purposes.
// It validates the behavior of the producer implementation, ensuring it properly follows the Producer contract.
// In particular, it checks that Produce returns the zero value together with an error.
type Lint[V refreshingcache.ValueConstraint] struct {
	Producer refreshingcache.Producer[V]
}

var _ refreshingcache.Producer[struct{}] = (*Lint[struct{}])(nil)

// Produce invokes the underlying producer and panics if it returns both a value and an error.
func (p *Lint[V]) Produce(ctx context.Context) (V, error) {
	value, err := p.Producer.Produce(ctx)
	if err != nil && !isZero(value) {
		panic("must return the zero value with an error")
	}
	return value, err
}

func isZero(v any) bool {
	rv := reflect.ValueOf(v)
	return !rv.IsValid() || rv.IsZero()
}
