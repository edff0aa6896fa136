// Package metrics holds the worker's operator-facing counters.
//
// Counters are injected into components rather than held as process
// globals so unit tests can assert on them deterministically.
package metrics

import "sync/atomic"

// Counters tracks monotonically increasing totals for the consumption
// loop. All methods are safe for concurrent use.
type Counters struct {
	requeued    atomic.Int64
	discarded   atomic.Int64
	processed   atomic.Int64
	rateLimited atomic.Int64
}

// NewCounters creates a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// IncRequeued records one action re-published for retry.
func (c *Counters) IncRequeued() { c.requeued.Add(1) }

// IncDiscarded records one action terminally discarded.
func (c *Counters) IncDiscarded() { c.discarded.Add(1) }

// IncProcessed records one action executed successfully.
func (c *Counters) IncProcessed() { c.processed.Add(1) }

// IncRateLimited records one action deferred by its rate-limit window.
func (c *Counters) IncRateLimited() { c.rateLimited.Add(1) }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requeued    int64 `json:"requeued"`
	Discarded   int64 `json:"discarded"`
	Processed   int64 `json:"processed"`
	RateLimited int64 `json:"rate_limited"`
}

// Snapshot returns the current totals.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Requeued:    c.requeued.Load(),
		Discarded:   c.discarded.Load(),
		Processed:   c.processed.Load(),
		RateLimited: c.rateLimited.Load(),
	}
}
