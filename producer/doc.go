// Package producer provides adapters for implementing and decorating refreshingcache.Producer.
//
// The adapters wrap a producer to observe its errors, to back off after consecutive failures,
// to share one invocation between several caches, or to check that it follows the Producer contract.
package producer
