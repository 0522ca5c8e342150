/*
split.go - The segment splitter

PURPOSE:
  Walks a [clock-in, clock-out) interval from start to end, cutting it at
  every classification boundary (06:00, 22:00, 00:00) so that no output
  segment crosses a boundary or a calendar-day midnight.

ACTIVITY-TAG OVERRIDE:
  A shift tagged driving/passenger/equipment puts every segment into that
  fixed bucket regardless of time of day. The boundary walk still happens,
  because per-day totals depend on segments staying inside one calendar day.
  Collapsing a tagged multi-day shift into a single block would misattribute
  hours across days; the walk is authoritative everywhere.

GUARANTEES:
  - Every segment lies within one calendar day and within the parent interval
  - Segments are contiguous and non-overlapping
  - Sum of segment hours equals the interval duration within rounding
    tolerance (each segment rounds up to 0.01h)

SEE ALSO:
  - clock.go: NextBoundary
  - classify.go: Bucket rules for untagged shifts
  - aggregate.go: Consumes the output
*/
package engine

import "github.com/google/uuid"

// Split cuts a closed shift into classification segments. The caller must
// reject open or inverted intervals first (see Aggregator.ProcessShift);
// Split returns nil for them rather than guessing.
func Split(shift ShiftInterval, holidays HolidaySet) []Segment {
	if shift.End == nil || !shift.End.After(shift.Start) {
		return nil
	}

	override, hasOverride := shift.Tag.OverrideBucket()

	var segments []Segment
	cursor := shift.Start
	for cursor.Before(*shift.End) {
		segEnd := NextBoundary(cursor)
		if segEnd.After(*shift.End) {
			segEnd = *shift.End
		}

		bucket := override
		if !hasOverride {
			bucket = Classify(cursor, holidays)
		}

		segments = append(segments, Segment{
			ID:         SegmentID(uuid.NewString()),
			ShiftID:    shift.ID,
			EmployeeID: shift.EmployeeID,
			WorkDate:   DateOf(cursor),
			Start:      cursor,
			End:        segEnd,
			Bucket:     bucket,
			Hours:      HoursBetween(cursor, segEnd),
		})
		cursor = segEnd
	}
	return segments
}
