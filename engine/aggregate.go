/*
aggregate.go - The timesheet aggregator

PURPOSE:
  Folds a shift's segments into per-(employee, work-date) aggregates and
  persists them. This is the single authoritative mutator of DailyAggregate
  rows on the aggregation path.

RE-SCAN DESIGN:
  Each touched work-date is rebuilt from ALL stored segments on that
  (employee, date), not only from the triggering shift. Two shifts on the
  same calendar day therefore never clobber each other: whichever aggregation
  runs last still sees both shifts' segments. The upsert fully replaces the
  bucket fields; there is no additive merge to invalidate.

IDEMPOTENCE:
  Re-running aggregation for the same unmodified shift regenerates identical
  segments and rebuilds identical day totals, so the stored row is
  byte-identical after every run.

PER-DAY OUTCOMES:
  A multi-day shift (one spanning midnight) persists each work-date
  independently. The report says which dates succeeded and which failed so a
  retry can target only the failures; reprocessing the whole shift is also
  safe, but unnecessary.

LOCKING:
  At most one in-flight aggregation per (employee, work-date). The keyed
  mutex here satisfies that for callers inside this process; cross-day and
  cross-employee work runs fully in parallel.

SEE ALSO:
  - split.go: Segment generation
  - validate.go: Per-day invariant checks
  - store.go: Persistence boundary
*/
package engine

import (
	"context"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// DAY KEY LOCKING
// =============================================================================

type dayKey struct {
	EmployeeID EmployeeID
	Date       WorkDate
}

// dayLocks serializes work per (employee, work-date). Mutexes are created on
// first use and kept for the process lifetime; the key space is bounded by
// employees x days actually touched.
type dayLocks struct {
	mu    sync.Mutex
	locks map[dayKey]*sync.Mutex
}

func (d *dayLocks) lock(k dayKey) *sync.Mutex {
	d.mu.Lock()
	if d.locks == nil {
		d.locks = make(map[dayKey]*sync.Mutex)
	}
	m, ok := d.locks[k]
	if !ok {
		m = &sync.Mutex{}
		d.locks[k] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m
}

// =============================================================================
// AGGREGATION REPORT
// =============================================================================

// DayStatus is the outcome of one work-date's aggregation.
type DayStatus string

const (
	DayPersisted DayStatus = "persisted"
	DayBlocked   DayStatus = "blocked"   // validation failed, nothing written
	DayConflict  DayStatus = "conflict"  // manual override, nothing written
	DayFailed    DayStatus = "failed"    // persistence error, retryable
)

// DayOutcome reports what happened to one (employee, work-date).
type DayOutcome struct {
	Date      WorkDate
	Status    DayStatus
	Aggregate *DailyAggregate   // the computed row; written only when persisted
	Issues    []ValidationIssue // non-empty when blocked
	Err       error             // non-nil when failed
}

// AggregationReport is the per-date result of processing one shift.
type AggregationReport struct {
	ShiftID    ShiftID
	EmployeeID EmployeeID
	Days       []DayOutcome
}

// FailedDates returns the work-dates whose persistence failed, for targeted
// retry.
func (r *AggregationReport) FailedDates() []WorkDate {
	var dates []WorkDate
	for _, d := range r.Days {
		if d.Status == DayFailed {
			dates = append(dates, d.Date)
		}
	}
	return dates
}

// AllPersisted reports whether every touched date was written.
func (r *AggregationReport) AllPersisted() bool {
	for _, d := range r.Days {
		if d.Status != DayPersisted {
			return false
		}
	}
	return true
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator drives segmentation, per-day rebuild, validation, and upsert.
type Aggregator struct {
	Shifts     ShiftStore
	Segments   SegmentStore
	Aggregates AggregateStore
	Holidays   HolidayStore

	// Now is the clock used for future-date validation. Defaults to
	// time.Now; tests inject a fixed instant.
	Now func() time.Time

	locks dayLocks
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// ProcessShift segments a closed shift, replaces its stored segments, and
// rebuilds every work-date the shift touches. Input errors (open shift,
// inverted interval, unknown tag) reject the whole shift before segmentation;
// per-day failures after that are reported, not returned, so valid days of a
// multi-day shift still persist.
func (a *Aggregator) ProcessShift(ctx context.Context, shift ShiftInterval) (*AggregationReport, error) {
	if shift.End == nil {
		return nil, ErrOpenShift
	}
	if !shift.End.After(shift.Start) {
		return nil, ErrInvalidInterval
	}
	if !shift.Tag.Valid() {
		return nil, ErrInvalidActivityTag
	}

	holidays, err := a.Holidays.LoadHolidays(ctx, DateOf(shift.Start), DateOf(*shift.End))
	if err != nil {
		return nil, err
	}

	// A correction can move the shift to different calendar dates. The dates
	// its old segments sat on must be rebuilt too, or they keep the hours
	// the shift no longer contributes.
	previous, err := a.Segments.ListByShift(ctx, shift.ID)
	if err != nil {
		return nil, err
	}

	segments := Split(shift, holidays)
	if err := a.Segments.ReplaceForShift(ctx, shift.ID, segments); err != nil {
		return nil, err
	}

	report := &AggregationReport{ShiftID: shift.ID, EmployeeID: shift.EmployeeID}
	for _, date := range touchedDates(append(previous, segments...)) {
		report.Days = append(report.Days, a.rebuildDay(ctx, shift.EmployeeID, date))
	}
	return report, nil
}

// RebuildDay recomputes a single (employee, work-date) from stored segments.
// Used for targeted retry after a per-day persistence failure.
func (a *Aggregator) RebuildDay(ctx context.Context, employeeID EmployeeID, date WorkDate) DayOutcome {
	return a.rebuildDay(ctx, employeeID, date)
}

func (a *Aggregator) rebuildDay(ctx context.Context, employeeID EmployeeID, date WorkDate) DayOutcome {
	mu := a.locks.lock(dayKey{EmployeeID: employeeID, Date: date})
	defer mu.Unlock()

	existing, err := a.Aggregates.GetAggregate(ctx, employeeID, date)
	if err != nil {
		return DayOutcome{Date: date, Status: DayFailed,
			Err: &PersistError{EmployeeID: employeeID, WorkDate: date, Err: err}}
	}
	if existing != nil && existing.Override == OverrideManual {
		// Administrator owns this row; surface the conflict, never overwrite.
		return DayOutcome{Date: date, Status: DayConflict, Err: ErrManualOverride}
	}

	segments, err := a.Segments.ListForDay(ctx, employeeID, date)
	if err != nil {
		return DayOutcome{Date: date, Status: DayFailed,
			Err: &PersistError{EmployeeID: employeeID, WorkDate: date, Err: err}}
	}

	agg := NewDailyAggregate(employeeID, date)
	for _, seg := range segments {
		agg.AddBucket(seg.Bucket, seg.Hours)
	}
	if existing != nil {
		// Bucket fields are replaced in full; operator notes survive.
		agg.Notes = existing.Notes
	}

	if issues := Validate(agg, a.now()); len(issues) > 0 {
		return DayOutcome{Date: date, Status: DayBlocked, Aggregate: &agg, Issues: issues}
	}

	if err := a.Aggregates.UpsertAggregate(ctx, agg); err != nil {
		return DayOutcome{Date: date, Status: DayFailed, Aggregate: &agg,
			Err: &PersistError{EmployeeID: employeeID, WorkDate: date, Err: err}}
	}
	return DayOutcome{Date: date, Status: DayPersisted, Aggregate: &agg}
}

func touchedDates(segments []Segment) []WorkDate {
	seen := make(map[WorkDate]struct{}, 2)
	var dates []WorkDate
	for _, s := range segments {
		if _, ok := seen[s.WorkDate]; !ok {
			seen[s.WorkDate] = struct{}{}
			dates = append(dates, s.WorkDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// =============================================================================
// BATCH PROCESSING - Bulk approval re-aggregation
// =============================================================================

// BatchResult pairs a shift with its aggregation report or rejection error.
type BatchResult struct {
	ShiftID ShiftID
	Report  *AggregationReport
	Err     error
}

// ProcessBatch re-aggregates many shifts with bounded concurrency. Per-day
// serialization is handled by the aggregator's keyed lock, so shifts of the
// same employee on the same day cannot race; everything else fans out.
func (a *Aggregator) ProcessBatch(ctx context.Context, shifts []ShiftInterval, workers int) []BatchResult {
	if workers < 1 {
		workers = 1
	}

	results := make([]BatchResult, len(shifts))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, shift := range shifts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, shift ShiftInterval) {
			defer wg.Done()
			defer func() { <-sem }()
			report, err := a.ProcessShift(ctx, shift)
			results[i] = BatchResult{ShiftID: shift.ID, Report: report, Err: err}
		}(i, shift)
	}
	wg.Wait()
	return results
}
