// Package refresher provides background triggers that keep a refreshable value up-to-date.
//
// An IntervalRefresher calls Refresh on its target at a fixed interval until its context is cancelled.
// The first call happens one interval after the refresher starts, so a target that loads lazily
// is not forced to load at start-up.
package refresher
