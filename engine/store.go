/*
store.go - Persistence interfaces for the engine

PURPOSE:
  Defines the boundary between the engine and the datastore. The engine
  treats storage as an opaque relational store offering row-level
  upsert-on-conflict; transaction semantics beyond that are the store's
  concern.

KEY INTERFACES:
  ShiftStore:     Raw clock-in/clock-out intervals
  SegmentStore:   Derived segments (delete-by-parent then insert)
  AggregateStore: One row per (employee, work-date), upsert replaces buckets
  HolidayStore:   Legal-holiday dates, loaded fresh per invocation
  TeamStore:      Team membership on a date (deduplication scope)

DELETE SEMANTICS:
  Segments are disposable and deleted by parent shift. ShiftIntervals are
  deleted only by the deduplicator removing a confirmed duplicate. Aggregate
  rows are never deleted by the engine, only replaced.

IMPLEMENTATIONS:
  - store/sqlite:       Production SQLite (same SQL ports to PostgreSQL)
  - engine/store:       In-memory, for tests and dev
*/
package engine

import "context"

// ShiftStore persists raw shift intervals.
type ShiftStore interface {
	// SaveShift inserts or updates a shift. Every mutation through here must
	// re-trigger segmentation; callers own that contract.
	SaveShift(ctx context.Context, shift ShiftInterval) error

	// GetShift returns a shift or ErrShiftNotFound.
	GetShift(ctx context.Context, id ShiftID) (*ShiftInterval, error)

	// ListShiftsByDay returns the employee's shifts whose start instant falls
	// on the given date, ordered by start.
	ListShiftsByDay(ctx context.Context, employeeID EmployeeID, date WorkDate) ([]ShiftInterval, error)

	// DeleteShift removes a shift. Deduplicator only.
	DeleteShift(ctx context.Context, id ShiftID) error
}

// SegmentStore persists derived segments.
type SegmentStore interface {
	// ReplaceForShift atomically deletes every segment of the shift and
	// inserts the replacements. Segments are never incrementally patched.
	ReplaceForShift(ctx context.Context, shiftID ShiftID, segments []Segment) error

	// ListByShift returns a shift's segments ordered by start.
	ListByShift(ctx context.Context, shiftID ShiftID) ([]Segment, error)

	// ListForDay returns every stored segment for (employee, date) across
	// all shifts. This is the re-scan input when rebuilding a day.
	ListForDay(ctx context.Context, employeeID EmployeeID, date WorkDate) ([]Segment, error)

	// DeleteByShift removes a shift's segments without replacement.
	DeleteByShift(ctx context.Context, shiftID ShiftID) error
}

// AggregateStore persists daily aggregates.
type AggregateStore interface {
	// UpsertAggregate writes the row keyed on (EmployeeID, WorkDate), fully
	// replacing the bucket fields. Last writer wins in full; callers
	// serialize per key.
	UpsertAggregate(ctx context.Context, a DailyAggregate) error

	// GetAggregate returns the row or nil when absent.
	GetAggregate(ctx context.Context, employeeID EmployeeID, date WorkDate) (*DailyAggregate, error)

	// ListAggregates returns rows for the employee in [from, to], ordered by
	// work date.
	ListAggregates(ctx context.Context, employeeID EmployeeID, from, to WorkDate) ([]DailyAggregate, error)
}

// HolidayStore supplies the legal-holiday calendar.
type HolidayStore interface {
	// LoadHolidays returns the holiday dates falling in [from, to].
	LoadHolidays(ctx context.Context, from, to WorkDate) (HolidaySet, error)
}

// TeamStore resolves deduplication scope.
type TeamStore interface {
	// ListTeamMembers returns the employees scheduled to the team on a date.
	ListTeamMembers(ctx context.Context, teamID TeamID, date WorkDate) ([]EmployeeID, error)
}
