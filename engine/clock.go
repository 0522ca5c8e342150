package engine

import "time"

// =============================================================================
// BOUNDARY CLOCK - Next classification-boundary instant
// =============================================================================

// Pay-rate classification can only change at these wall-clock instants:
// 06:00 (night ends), 22:00 (night begins), 00:00 (calendar day rolls over).
const (
	morningBoundarySecond = 6 * 3600  // 06:00:00
	eveningBoundarySecond = 22 * 3600 // 22:00:00
)

// NextBoundary returns the soonest of {06:00 same day, 22:00 same day,
// 00:00 next day} strictly after t. Total function, no error cases.
func NextBoundary(t time.Time) time.Time {
	switch sec := secondOfDay(t); {
	case sec < morningBoundarySecond:
		return atSecondOfDay(t, morningBoundarySecond)
	case sec < eveningBoundarySecond:
		return atSecondOfDay(t, eveningBoundarySecond)
	default:
		return atSecondOfDay(t, 0).AddDate(0, 0, 1)
	}
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func atSecondOfDay(t time.Time, sec int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), sec/3600, (sec%3600)/60, sec%60, 0, t.Location())
}
