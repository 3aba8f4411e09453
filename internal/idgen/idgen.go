// Package idgen provides monotonically increasing integer counters used to
// assign peer and task identifiers. IDs are never reused within a
// generator's lifetime.
package idgen

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// NewCorrelationID returns a globally unique string, used by
// tracing.StartTaskSpan to tag each traced hop with its own grep anchor
// — unlike the per-tier Counters below, it never needs to be dense or
// restored from a checkpoint.
var NewCorrelationID = func() string { return uuid.New().String() }

// Counter is a concurrency-safe monotonically increasing counter.
type Counter struct {
	value int64
}

// Next returns the next value in the sequence, starting at 0.
func (c *Counter) Next() int {
	return int(atomic.AddInt64(&c.value, 1) - 1)
}

// NextSerial returns the next value in the sequence, starting at 1 — used
// for task serial numbers, which the wire grammar renders as positive
// integers (":U1", ":P0:1", ...).
func (c *Counter) NextSerial() int {
	return int(atomic.AddInt64(&c.value, 1))
}

// Current returns how many values have been issued, without advancing
// the counter: the most recent NextSerial value, or one more than the
// most recent Next value. Useful for checkpoint snapshots.
func (c *Counter) Current() int {
	return int(atomic.LoadInt64(&c.value))
}

// Reset sets the counter's internal value, used when restoring from a
// checkpoint so that newly issued IDs never collide with recovered ones.
func (c *Counter) Reset(value int) {
	atomic.StoreInt64(&c.value, int64(value))
}
