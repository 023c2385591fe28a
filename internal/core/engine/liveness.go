package engine

import "time"

// RecentErrorWindow is how far before the last event an error still counts
// as recent.
const RecentErrorWindow = 2 * time.Minute

// IsWorking reports whether a monitor produced an event within the expected
// period and has no recent errors.
func IsWorking(lastEventAt *time.Time, expectedReceivePeriodDays int, recentErrors bool, now time.Time) bool {
	if lastEventAt == nil || recentErrors {
		return false
	}
	cutoff := now.Add(-time.Duration(expectedReceivePeriodDays) * 24 * time.Hour)
	return lastEventAt.After(cutoff)
}

// RecentErrorLogs reports whether an error was logged after, or shortly
// before, the last event.
func RecentErrorLogs(lastEventAt, lastErrorAt *time.Time) bool {
	if lastEventAt == nil || lastErrorAt == nil {
		return false
	}
	return lastErrorAt.After(lastEventAt.Add(-RecentErrorWindow))
}
