/*
audit.go - The reconciliation auditor

PURPOSE:
  Diffs two independently derived representations of the same fact: the raw
  shift intervals and the stored daily aggregates. Day by day, it sums raw
  durations, reads the aggregate's bucket total, and classifies the drift.

READ-ONLY:
  The auditor never mutates a ShiftInterval or DailyAggregate. Findings are
  data for an operator, not errors, and are never auto-corrected; results
  are returned even when every delta is zero.

THRESHOLD:
  DiscrepancyThreshold is the single tolerance constant, 0.01h - one
  hundredth of an hour, matching the segment rounding granularity. A
  coarser 0.1h had circulated in an older audit path; it hid per-segment
  rounding drift and is not used anywhere.

SEE ALSO:
  - aggregate.go: Produces what the auditor checks
  - store.go: The read-only interfaces consumed here
*/
package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// DiscrepancyThreshold is the tolerance above which |delta| flags a
// discrepancy. One hundredth of an hour, the same granularity segments are
// rounded to.
var DiscrepancyThreshold = NewHours(0.01)

// Auditor runs the reconciliation pass.
type Auditor struct {
	Shifts     ShiftStore
	Aggregates AggregateStore
}

// Audit reconciles each calendar date in [from, to] for one employee.
// entriesTotal sums the durations of closed intervals starting on the date;
// aggregateTotal is the stored row's sum of all buckets, nil when the row is
// absent.
func (a *Auditor) Audit(ctx context.Context, employeeID EmployeeID, from, to WorkDate) ([]ReconciliationResult, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("audit range: %w", ErrInvalidInterval)
	}

	var results []ReconciliationResult
	for date := from; !date.After(to); date = date.Next() {
		shifts, err := a.Shifts.ListShiftsByDay(ctx, employeeID, date)
		if err != nil {
			return nil, err
		}

		entriesTotal := ZeroHours()
		incomplete := false
		for _, shift := range shifts {
			if hours, ok := shift.Duration(); ok {
				entriesTotal = entriesTotal.Add(hours)
			} else {
				incomplete = true
			}
		}

		agg, err := a.Aggregates.GetAggregate(ctx, employeeID, date)
		if err != nil {
			return nil, err
		}

		result := ReconciliationResult{
			Date:         date,
			EntriesTotal: entriesTotal,
			Incomplete:   incomplete,
		}

		delta := entriesTotal
		if agg != nil {
			total := agg.Total()
			result.AggregateTotal = &total
			delta = entriesTotal.Sub(total)
		} else if len(shifts) > 0 {
			result.MissingAggregate = true
		}
		result.Delta = delta
		result.Discrepancy = delta.Abs().GreaterThan(DiscrepancyThreshold)

		results = append(results, result)
	}
	return results, nil
}

// =============================================================================
// FLAT EXPORT - One row per date, for offline review
// =============================================================================

// WriteCSV writes the audit results as a flat CSV: date, entries total,
// aggregate total (empty when missing), delta, flags.
func WriteCSV(w io.Writer, results []ReconciliationResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "entries_total", "aggregate_total", "delta", "flags"}); err != nil {
		return err
	}

	for _, r := range results {
		aggTotal := ""
		if r.AggregateTotal != nil {
			aggTotal = r.AggregateTotal.String()
		}
		row := []string{
			r.Date.String(),
			r.EntriesTotal.String(),
			aggTotal,
			r.Delta.String(),
			strings.Join(flagNames(r), "|"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func flagNames(r ReconciliationResult) []string {
	var flags []string
	if r.Discrepancy {
		flags = append(flags, "discrepancy")
	}
	if r.Incomplete {
		flags = append(flags, "incomplete")
	}
	if r.MissingAggregate {
		flags = append(flags, "missing_aggregate")
	}
	return flags
}
