/*
classify.go - Pay-rate bucket classification

PURPOSE:
  Decides which pay-rate bucket a segment's hours belong to, from the
  segment's start instant, its day of week, and the holiday set.

BOUNDARY CONVENTION:
  A segment is classified by the instants it covers AFTER its start. The
  instant 06:00:00 itself still belongs to the night window and 22:00:00
  still belongs to the regular window, so a segment ENDING at 06:00:00
  carries night and a segment ENDING at 22:00:00 carries regular - but a
  segment STARTING at one of those instants covers only the window that
  opens there. Concretely, for a segment starting at second-of-day s:

    night window:     s >= 22:00:00 or s < 06:00:00
    premium saturday: Saturday with s >= 06:00:00, or Sunday with s < 06:00:00
    sunday:           Sunday with s >= 06:00:00
    holiday:          holiday date; s < 06:00:00 is still night

  The splitter (split.go) only ever starts segments at the shift start or at
  a classification boundary, so these start-based rules classify every
  covered instant correctly.

DECISION ORDER (first match wins):
  1. legal holiday -> night before 06:00, holiday after
  2. Saturday-premium window (Sat 06:00 through Sun 06:00) -> saturday
  3. rest of Sunday -> sunday
  4. night window -> night
  5. otherwise -> regular

SEE ALSO:
  - clock.go: The boundary constants
  - split.go: The only caller on the aggregation path
*/
package engine

import "time"

// Classify returns the pay-rate bucket for a segment starting at the given
// instant. Pure function of (start, holidays); activity-tag overrides are
// applied by the splitter, never here.
func Classify(start time.Time, holidays HolidaySet) Bucket {
	sec := secondOfDay(start)
	weekday := start.Weekday()

	switch {
	case holidays.Contains(DateOf(start)):
		if sec < morningBoundarySecond {
			return BucketNight
		}
		return BucketHoliday

	case weekday == time.Saturday && sec >= morningBoundarySecond,
		weekday == time.Sunday && sec < morningBoundarySecond:
		return BucketSaturday

	case weekday == time.Sunday:
		return BucketSunday

	case sec >= eveningBoundarySecond || sec < morningBoundarySecond:
		return BucketNight

	default:
		return BucketRegular
	}
}
