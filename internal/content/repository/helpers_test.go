package repository

import (
	"sync"
	"time"
)

var testEpoch = time.Date(2026, 1, 16, 9, 30, 0, 0, time.UTC)

// fixedClock always returns the same instant, forcing tie-breaks.
func fixedClock() Clock {
	return func() time.Time { return testEpoch }
}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) Clock {
	var mu sync.Mutex
	now := testEpoch
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}
