// Package schedule decides whether today is a run day.
package schedule

import (
	"fmt"
	"time"
)

// DefaultIntervalDays is the run period used when none is configured.
const DefaultIntervalDays = 10

// Gate is the every-Nth-day predicate checked before any work starts.
type Gate struct {
	IntervalDays int
	Force        bool
}

// Validate rejects non-positive intervals.
func (g Gate) Validate() error {
	if g.IntervalDays <= 0 {
		return fmt.Errorf("schedule.interval_days must be > 0, got %d", g.IntervalDays)
	}
	return nil
}

// ShouldRun reports whether a run is due at now.
func (g Gate) ShouldRun(now time.Time) bool {
	if g.Force {
		return true
	}
	return ShouldRun(now, g.IntervalDays)
}

// ShouldRun is true when the number of whole days since the Unix epoch is a
// multiple of intervalDays. An interval of 1 or less always runs.
func ShouldRun(now time.Time, intervalDays int) bool {
	if intervalDays <= 1 {
		return true
	}
	days := now.Unix() / 86400
	return days%int64(intervalDays) == 0
}

// NextRun returns the start (UTC midnight) of the next due day strictly after now.
func NextRun(now time.Time, intervalDays int) time.Time {
	if intervalDays < 1 {
		intervalDays = 1
	}
	days := now.Unix()/86400 + 1
	if rem := days % int64(intervalDays); rem != 0 {
		days += int64(intervalDays) - rem
	}
	return time.Unix(days*86400, 0).UTC()
}
