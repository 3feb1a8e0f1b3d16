package refreshingcache

import (
	"context"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// Option is the interface for the options of the Cache.
type Option[V ValueConstraint] interface {
	apply(*options[V])
}

type optionFunc[V ValueConstraint] func(*options[V])

func (f optionFunc[V]) apply(o *options[V]) {
	f(o)
}

// WithRefreshInterval enables the background refresh.
// The producer is invoked every interval for the lifetime of the cache, starting one interval after New.
// A zero or negative interval disables the background refresh, which is the default.
func WithRefreshInterval[V ValueConstraint](interval time.Duration) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.refreshInterval = interval
	})
}

// WithInitialValue seeds the cache with a value.
// Callers arriving before the first load completes get the seed immediately instead of waiting for the load.
func WithInitialValue[V ValueConstraint](value V) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.initialValue = value
		o.seeded = true
	})
}

// WithEagerLoad makes New start the first load, so the cache warms up before the first Get.
// By default the first load is started by the first Get (or Refresh, or timer tick).
func WithEagerLoad[V ValueConstraint]() Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.eager = true
	})
}

// WithLoadTimeout bounds each producer invocation.
// A load that outlives the timeout fails with an error matching ErrLoadTimeout.
// A zero or negative timeout disables it, which is the default.
func WithLoadTimeout[V ValueConstraint](timeout time.Duration) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.loadTimeout = timeout
	})
}

// WithCloner sets the value cloner used for callers queued behind the first load.
// The first queued caller receives the loaded value itself and the rest receive clones.
// The default value cloner is NopValueCloner.
func WithCloner[V ValueConstraint](cloner ValueCloner[V]) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		if cloner != nil {
			o.cloner = cloner
		}
	})
}

// WithBackgroundContextProvider sets the provider of the base context of loads.
// The context is cancelled when the cache is closed.
// The default is context.Background.
func WithBackgroundContextProvider[V ValueConstraint](provider func() context.Context) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.context = provider
	})
}

// WithClock sets the clock used to timestamp successful loads.
func WithClock[V ValueConstraint](clock Clock) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.clock = clock
	})
}

// WithName sets the name added to logs and stats.
func WithName[V ValueConstraint](name string) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.name = name
	})
}

// WithLogger sets the contextualized logger. Nil keeps the no-op logger.
func WithLogger[V ValueConstraint](logger ctxd.Logger) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		if logger != nil {
			o.logger = logger
		}
	})
}

// WithStats sets the metrics collector. Nil keeps the no-op collector.
func WithStats[V ValueConstraint](tracker stats.Tracker) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		if tracker != nil {
			o.stats = tracker
		}
	})
}

type options[V ValueConstraint] struct {
	refreshInterval time.Duration
	loadTimeout     time.Duration
	initialValue    V
	seeded          bool
	eager           bool
	cloner          ValueCloner[V]
	context         func() context.Context
	clock           Clock
	name            string
	logger          ctxd.Logger
	stats           stats.Tracker
}

func defaultOptions[V ValueConstraint]() options[V] {
	return options[V]{
		cloner:  NopValueCloner[V]{},
		context: context.Background,
		clock:   SystemClock,
		logger:  ctxd.NoOpLogger{},
		stats:   stats.NoOp{},
	}
}
