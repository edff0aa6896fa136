// Package clock provides time abstraction for testability.
//
// Instead of calling time.Now() directly, code should take a Clock and
// call its Now(). This lets tests inject fixed or stepped times and keeps
// window arithmetic (rate-limit resets, participant timeouts)
// deterministic.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// RealClock uses the actual system time.
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock returns a predetermined time. Useful for unit tests.
type FixedClock struct {
	Time time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time {
	return c.Time
}

// StepClock returns a predetermined time and advances it by Step on every
// call. Useful for tests that need distinct but ordered timestamps.
type StepClock struct {
	mu   sync.Mutex
	time time.Time
	step time.Duration
}

// NewStepClock creates a StepClock starting at start, advancing by step.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{time: start, step: step}
}

// Now returns the current step time and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.time
	c.time = c.time.Add(c.step)
	return now
}
