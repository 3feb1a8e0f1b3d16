// Package refreshingcache provides a cache for the value of a single producer function.
//
// A Cache invokes its Producer once for all callers arriving during the first load,
// serves the cached value afterwards, and can refresh the value at a fixed interval in the background.
// A failed refresh never replaces a value that was loaded before.
//
// The cache can be configured with options:
//   - WithRefreshInterval: Enables the background refresh
//   - WithInitialValue: Serves a seed value while the first load is in progress
//   - WithEagerLoad: Starts the first load in New instead of in the first Get
//   - WithLoadTimeout: Fails loads that take too long with ErrLoadTimeout
//   - WithCloner: Gives each caller queued behind the first load its own copy of the value
//   - WithLogger, WithStats, WithName: Reports loads and failures
//
// The producer package provides adapters for producers, and the refresher package
// provides the interval trigger used for the background refresh.
package refreshingcache
