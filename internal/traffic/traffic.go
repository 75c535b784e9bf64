package traffic

import (
	"sync"
	"time"
)

// retention bounds how far back outcomes are kept; health windows must not exceed it.
const retention = 30 * time.Minute

var defaultTracker Tracker

// RecordSuccess records a getMetar lookup that returned reports.
func RecordSuccess() {
	defaultTracker.RecordSuccess()
}

// RecordError records a getMetar lookup that failed upstream or in decoding.
func RecordError() {
	defaultTracker.RecordError()
}

// QueryCount returns the number of lookups (success + error) within the window.
func QueryCount(window time.Duration) int {
	return defaultTracker.QueryCount(window)
}

// ErrorRate returns (errorCount, totalCount) within the window.
func ErrorRate(window time.Duration) (errors, total int) {
	return defaultTracker.ErrorRate(window)
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker keeps timestamps of lookup outcomes for sliding-window health checks.
type Tracker struct {
	mu           sync.Mutex
	successTimes []time.Time
	errorTimes   []time.Time
}

// RecordSuccess records a successful outcome at the current time.
func (t *Tracker) RecordSuccess() {
	t.record(&t.successTimes)
}

// RecordError records a failed outcome at the current time.
func (t *Tracker) RecordError() {
	t.record(&t.errorTimes)
}

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// QueryCount returns the number of outcomes within the window ending now.
func (t *Tracker) QueryCount(window time.Duration) int {
	_, total := t.ErrorRate(window)
	return total
}

// ErrorRate returns (errorCount, totalCount) within the window ending now.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	errCount := countSince(t.errorTimes, cutoff)
	return errCount, errCount + countSince(t.successTimes, cutoff)
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successTimes = nil
	t.errorTimes = nil
}

// countSince counts timestamps not before cutoff. Slices are append-ordered,
// so the scan starts from the newest entry.
func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for i := len(times) - 1; i >= 0 && !times[i].Before(cutoff); i-- {
		n++
	}
	return n
}

// pruneLocked drops outcomes older than retention. Caller holds t.mu.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.errorTimes)
}
