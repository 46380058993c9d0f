package utils

import (
	"sync/atomic"
	"time"
)

// NewThrottle returns a func that runs fn at most once per interval,
// dropping calls in between. The first call always runs.
func NewThrottle(interval time.Duration) func(func()) {
	var lastCall atomic.Value
	lastCall.Store(time.Time{})
	return func(fn func()) {
		now := time.Now()
		if now.Sub(lastCall.Load().(time.Time)) < interval {
			return
		}
		lastCall.Store(now)
		fn()
	}
}
