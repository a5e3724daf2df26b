package mtp40f

import (
	"time"
)

// Clock is a coarse monotonic millisecond clock. Millis wraps around like a hardware
// tick counter; all comparisons are done with unsigned subtraction.
type Clock interface {
	Millis() uint32
}

// SystemClock counts milliseconds since it was created, using the monotonic reading of
// time.Now.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a clock starting at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Millis returns the milliseconds elapsed since the clock was created, truncated to 32 bits.
func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds()) //nolint:gosec // wraps like a tick counter
}

// sleepYield returns a yield function that gives up the processor for d.
func sleepYield(d time.Duration) func() {
	return func() { time.Sleep(d) }
}
