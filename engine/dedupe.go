/*
dedupe.go - Duplicate-shift detection and removal

PURPOSE:
  Finds near-identical shift recordings across a team on one date (double
  clock-ins, device retries), keeps one canonical shift per group, deletes
  the rest with their derived segments, and re-aggregates the survivor.

GROUPING:
  Per employee, two intervals belong to the same group iff their start
  instants differ by at most the tolerance from the GROUP'S FIRST MEMBER,
  and, when both end instants are present, the ends do too. Grouping is
  anchored, not transitive-closure: candidates are compared against the
  anchor only.

SURVIVOR SELECTION:
  Prefer an interval with no activity tag over a tagged one; if none
  qualifies, take the chronologically earliest.

RE-ENTRANCY:
  Running twice on an already-deduplicated day is a no-op the second time:
  every group has size 1, so nothing is removed.

This is the only engine operation that compares intervals across shifts,
and the only one that hard-deletes a ShiftInterval.
*/
package engine

import (
	"context"
	"sort"
	"time"
)

// DedupeTolerance is the temporal window within which two recordings of the
// same shift are considered duplicates.
const DedupeTolerance = 60 * time.Second

// DedupeResult reports what a deduplication pass did.
type DedupeResult struct {
	Removed []ShiftInterval
	Kept    []ShiftInterval
}

// Deduplicator runs the team-scoped maintenance pass.
type Deduplicator struct {
	Shifts     ShiftStore
	Segments   SegmentStore
	Teams      TeamStore
	Aggregator *Aggregator
}

// Dedupe collapses duplicate shifts for every employee on the team on the
// given date. Survivors of a collapsed group are re-aggregated so the
// DailyAggregate reflects exactly one shift's worth of hours.
func (d *Deduplicator) Dedupe(ctx context.Context, teamID TeamID, date WorkDate) (*DedupeResult, error) {
	members, err := d.Teams.ListTeamMembers(ctx, teamID, date)
	if err != nil {
		return nil, err
	}

	result := &DedupeResult{}
	for _, employeeID := range members {
		shifts, err := d.Shifts.ListShiftsByDay(ctx, employeeID, date)
		if err != nil {
			return nil, err
		}

		for _, group := range groupByTolerance(shifts) {
			if len(group) == 1 {
				result.Kept = append(result.Kept, group[0])
				continue
			}

			survivor := pickSurvivor(group)
			result.Kept = append(result.Kept, survivor)

			staleDates := make(map[WorkDate]struct{})
			for _, shift := range group {
				if shift.ID == survivor.ID {
					continue
				}
				// The duplicate may already be aggregated; remember which
				// days its segments sat on so they get rebuilt after the
				// delete.
				segs, err := d.Segments.ListByShift(ctx, shift.ID)
				if err != nil {
					return nil, err
				}
				for _, seg := range segs {
					staleDates[seg.WorkDate] = struct{}{}
				}
				if err := d.Segments.DeleteByShift(ctx, shift.ID); err != nil {
					return nil, err
				}
				if err := d.Shifts.DeleteShift(ctx, shift.ID); err != nil {
					return nil, err
				}
				result.Removed = append(result.Removed, shift)
			}

			// Rebuild the survivor's days now that the duplicates are gone.
			// Open survivors have no segments of their own yet, but the
			// removed duplicates' days still need their hours cleared.
			if !survivor.IsOpen() {
				if _, err := d.Aggregator.ProcessShift(ctx, survivor); err != nil {
					return nil, err
				}
			}
			for staleDate := range staleDates {
				if outcome := d.Aggregator.RebuildDay(ctx, employeeID, staleDate); outcome.Status == DayFailed {
					return nil, outcome.Err
				}
			}
		}
	}
	return result, nil
}

// groupByTolerance partitions one employee's shifts into duplicate groups.
// Input order does not matter; groups anchor on the earliest ungrouped shift.
func groupByTolerance(shifts []ShiftInterval) [][]ShiftInterval {
	sorted := make([]ShiftInterval, len(shifts))
	copy(sorted, shifts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var groups [][]ShiftInterval
	for _, shift := range sorted {
		placed := false
		for i := range groups {
			if withinTolerance(groups[i][0], shift) {
				groups[i] = append(groups[i], shift)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []ShiftInterval{shift})
		}
	}
	return groups
}

func withinTolerance(anchor, candidate ShiftInterval) bool {
	if absDuration(candidate.Start.Sub(anchor.Start)) > DedupeTolerance {
		return false
	}
	if anchor.End != nil && candidate.End != nil {
		return absDuration(candidate.End.Sub(*anchor.End)) <= DedupeTolerance
	}
	return true
}

func pickSurvivor(group []ShiftInterval) ShiftInterval {
	for _, shift := range group {
		if shift.Tag == TagNone {
			return shift
		}
	}
	return group[0] // groups are start-ordered; first is earliest
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
