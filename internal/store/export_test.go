package store

import "time"

// SetClock replaces the store's clock until restore is called.
func SetClock(now func() time.Time) (restore func()) {
	prev := timeNow
	timeNow = now
	return func() { timeNow = prev }
}
