// Package pool provides reusable timers for periodic loops.
package pool

import (
	"sync"
	"time"
)

var timers sync.Pool

// GetTimer returns a stopped-and-drained timer from the pool armed to fire after d,
// or a new one if the pool is empty. Return it with PutTimer when done.
func GetTimer(d time.Duration) *time.Timer {
	t, ok := timers.Get().(*time.Timer)
	if !ok {
		return time.NewTimer(d)
	}

	t.Reset(d)

	return t
}

// PutTimer stops t, drains a pending tick and returns it to the pool.
// t must not be used afterwards.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timers.Put(t)
}
