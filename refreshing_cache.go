package refreshingcache

import (
	"context"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/sourcegraph/conc"

	"github.com/karupanerura/refreshing-cache/internal/flight"
	"github.com/karupanerura/refreshing-cache/refresher"
)

const (
	// MetricLoad counts producer invocations.
	MetricLoad = "refreshingcache_load"

	// MetricLoadFailed counts failed producer invocations.
	MetricLoadFailed = "refreshingcache_load_failed"

	// MetricHit counts callers served without waiting.
	MetricHit = "refreshingcache_hit"

	// MetricWait counts callers queued behind the first load.
	MetricWait = "refreshingcache_wait"
)

// loadState is the lifecycle of the first load only.
type loadState uint8

const (
	stateNotStarted loadState = iota
	stateInFlight
	stateSettled
)

// Stats is a snapshot of the cache bookkeeping.
type Stats struct {
	// Loads is the number of producer invocations started.
	Loads uint64

	// Failures is the number of producer invocations that failed.
	Failures uint64

	// LoadedAt is the time of the last successful load, or the zero time if there is none.
	LoadedAt time.Time
}

// Cache memoizes the value of a single Producer and optionally refreshes it in the background.
//
// Callers arriving before the first load completes are queued behind that single load,
// unless the cache was seeded with WithInitialValue.
// Afterwards callers are served the cached value immediately, and background refreshes
// replace it silently when they succeed.
//
// A failed load never overwrites the cached value. The error of the last load is delivered
// to callers while no value exists; once a value exists, it is delivered to one caller only
// and the cached value is served again afterwards.
// Until the first successful load, every call triggers a new load if none is outstanding.
type Cache[V ValueConstraint] struct {
	producer Producer[V]
	options  options[V]

	//nolint:containedctx
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu        sync.Mutex
	value     V
	hasValue  bool
	lastErr   error
	state     loadState
	coldStart bool
	waiters   []chan Result[V]
	current   *flight.Call
	closed    bool
	stats     Stats
}

var _ refresher.Refresher = (*Cache[struct{}])(nil)

// New creates a new Cache for the producer.
// The cache must be closed by Close to stop the background refresh.
func New[V ValueConstraint](producer Producer[V], opts ...Option[V]) *Cache[V] {
	options := defaultOptions[V]()
	for _, o := range opts {
		o.apply(&options)
	}

	ctx, cancel := context.WithCancel(options.context())
	c := &Cache[V]{
		producer:  producer,
		options:   options,
		ctx:       ctx,
		cancel:    cancel,
		coldStart: true,
	}
	if options.seeded {
		c.value = options.initialValue
		c.hasValue = true
	}

	if options.eager {
		c.mu.Lock()
		c.triggerLoad()
		c.mu.Unlock()
	}

	if options.refreshInterval > 0 {
		r := refresher.NewIntervalRefresher(c, options.refreshInterval, c.onBackgroundError)
		c.wg.Go(func() {
			r.Run(ctx)
		})
	}
	return c
}

// GetAsync returns a channel that receives exactly one Result.
//
// The result is available immediately unless the first load is in progress and the cache has no seed,
// in which case it is delivered when the first load completes.
// The channel is buffered, so the caller may abandon it.
func (c *Cache[V]) GetAsync() <-chan Result[V] {
	ch := make(chan Result[V], 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		ch <- Result[V]{Err: ErrClosed}
		return ch
	}

	if c.coldStart {
		c.triggerLoad()
	}

	if c.state == stateInFlight {
		if c.options.seeded {
			c.track(MetricHit)
			ch <- Result[V]{Value: c.value}
			return ch
		}
		c.track(MetricWait)
		c.waiters = append(c.waiters, ch)
		return ch
	}

	if c.lastErr != nil {
		err := c.lastErr
		if c.hasValue {
			c.lastErr = nil
		}
		ch <- Result[V]{Err: err}
		return ch
	}

	c.track(MetricHit)
	ch <- Result[V]{Value: c.value}
	return ch
}

// Get returns the cached value, waiting for the first load if necessary.
// If ctx is done while waiting, the context error is returned.
func (c *Cache[V]) Get(ctx context.Context) (V, error) {
	ch := c.GetAsync()
	select {
	case r := <-ch:
		return r.Value, r.Err
	default:
	}

	select {
	case r := <-ch:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero V
		return zero, ctxd.WrapError(ctx, ctx.Err(), "interrupted while waiting for the first load", "name", c.options.name)
	}
}

// Peek returns the cached value without triggering a load.
// ok is false if the cache has neither a loaded value nor a seed.
func (c *Cache[V]) Peek() (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.hasValue
}

// Refresh loads a new value and waits for the load to complete.
// If a load is already in progress, Refresh waits for that load instead of starting another one.
// It returns the error of the load; the cached value is kept when the load fails.
func (c *Cache[V]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	joined := c.current != nil
	call := c.triggerLoad()
	c.mu.Unlock()

	if joined {
		c.options.logger.Debug(ctx, "joining in-flight load", "name", c.options.name)
	}

	select {
	case <-call.Done():
		return call.Err()
	case <-ctx.Done():
		return ctxd.WrapError(ctx, ctx.Err(), "interrupted while waiting for refresh", "name", c.options.name)
	}
}

// Stats returns a snapshot of the cache bookkeeping.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close stops the background refresh, cancels the context of the outstanding load,
// and fails queued callers with ErrClosed.
// It waits for the background goroutines to finish. Close is idempotent.
func (c *Cache[V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	waiters := c.waiters
	c.waiters = nil
	for _, w := range waiters {
		w <- Result[V]{Err: ErrClosed}
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

// triggerLoad starts a load unless one is outstanding, and returns the outstanding load.
// c.mu must be held.
func (c *Cache[V]) triggerLoad() *flight.Call {
	if c.current != nil {
		return c.current
	}

	call := flight.NewCall()
	c.current = call
	if c.state == stateNotStarted {
		c.state = stateInFlight
	}
	c.stats.Loads++
	c.track(MetricLoad)

	c.wg.Go(func() {
		c.options.logger.Debug(c.ctx, "loading value", "name", c.options.name)
		value, err := flight.Invoke(c.ctx, c.producer.Produce, c.options.loadTimeout)
		c.complete(call, value, err)
	})
	return call
}

// complete records the outcome of a load and settles the first load.
func (c *Cache[V]) complete(call *flight.Call, value V, err error) {
	c.mu.Lock()
	c.current = nil
	if c.closed {
		c.mu.Unlock()
		call.Finish(ErrClosed)
		return
	}

	if err != nil {
		c.lastErr = err
		c.stats.Failures++
		c.track(MetricLoadFailed)
		c.options.logger.Warn(c.ctx, "failed to load value", "error", err, "name", c.options.name)
	} else {
		c.value = value
		c.hasValue = true
		c.coldStart = false
		c.lastErr = nil
		c.stats.LoadedAt = c.options.clock.Now()
	}

	if c.state == stateInFlight {
		c.state = stateSettled
		waiters := c.waiters
		c.waiters = nil
		for i, w := range waiters {
			if err != nil {
				w <- Result[V]{Err: err}
				continue
			}

			v := c.value
			if i != 0 {
				// note: the first receiver shares the cached value to avoid an unnecessary clone.
				v = c.options.cloner.CloneValue(v)
			}
			w <- Result[V]{Value: v}
		}
	}
	c.mu.Unlock()

	call.Finish(err)
}

func (c *Cache[V]) onBackgroundError(err error) {
	c.options.logger.Debug(c.ctx, "background refresh failed", "error", err, "name", c.options.name)
}

func (c *Cache[V]) track(metric string) {
	c.options.stats.Add(c.ctx, metric, 1, "name", c.options.name)
}
