// Package staleness decides whether a lead's AI score or action suggestions
// are old enough, or invalidated by new contact, to warrant recomputation.
// Both predicates are pure functions over supplied timestamps so they can be
// tested against fixed clocks. They are advisory: callers may bypass them
// (force refresh) at any time.
package staleness

import "time"

const (
	DefaultRescoreThresholdDays  = 3
	DefaultSuggestThresholdHours = 24

	millisPerDay  = 86_400_000
	millisPerHour = 3_600_000
)

// ShouldRescore reports whether a lead's score is stale at time now.
// True when the lead was never scored, when the score is at least
// thresholdDays old, or when contact happened after the last scoring pass.
func ShouldRescore(now time.Time, lastScoredAt, lastContactAt *time.Time, thresholdDays int) bool {
	if lastScoredAt == nil {
		return true
	}

	// Fresh contact invalidates an old score regardless of elapsed time.
	if lastContactAt != nil && lastContactAt.After(*lastScoredAt) {
		return true
	}

	days := float64(now.Sub(*lastScoredAt).Milliseconds()) / millisPerDay
	return days >= float64(thresholdDays)
}

// ShouldSuggestActions reports whether a lead's action suggestions are stale
// at time now. Same shape as ShouldRescore with an hour-granularity threshold.
func ShouldSuggestActions(now time.Time, lastSuggestedAt, lastContactAt *time.Time, thresholdHours int) bool {
	if lastSuggestedAt == nil {
		return true
	}

	if lastContactAt != nil && lastContactAt.After(*lastSuggestedAt) {
		return true
	}

	hours := float64(now.Sub(*lastSuggestedAt).Milliseconds()) / millisPerHour
	return hours >= float64(thresholdHours)
}
