/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (API, CLI) wrap these with transport-level context.

ERROR CATEGORIES:
  1. Input errors      - malformed shift boundaries, rejected before segmentation
  2. Validation errors - post-aggregation invariant violations, block one day
  3. Persistence errors - storage failures, retryable per (employee, work-date)
  4. Conflict errors   - manually-overridden aggregates the engine must not touch

Reconciliation findings are data, not errors; they live in audit.go.

USAGE:
  if errors.Is(err, engine.ErrOpenShift) { ... }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOpenShift is returned when aggregation is requested for a shift
	// that has no end instant yet.
	ErrOpenShift = errors.New("shift has no end instant")

	// ErrInvalidInterval is returned for end <= start.
	ErrInvalidInterval = errors.New("shift end is not after start")

	// ErrInvalidActivityTag is returned for an unrecognized activity tag.
	ErrInvalidActivityTag = errors.New("unknown activity tag")

	// ErrManualOverride is returned when automated aggregation would
	// overwrite an administrator-entered row. The write is skipped and the
	// conflict surfaced to an operator.
	ErrManualOverride = errors.New("aggregate is manually overridden")

	// ErrShiftNotFound is returned when a referenced shift doesn't exist.
	ErrShiftNotFound = errors.New("shift not found")

	// ErrAggregateNotFound is returned when a referenced aggregate row
	// doesn't exist.
	ErrAggregateNotFound = errors.New("aggregate not found")

	// ErrValidationFailed is returned when validation blocks persistence.
	// The blocking issues travel alongside in a ValidationError.
	ErrValidationFailed = errors.New("aggregate failed validation")
)

// =============================================================================
// VALIDATION ISSUES - Structured, surfaced verbatim to operators
// =============================================================================

// ValidationCode is the structured code attached to each validation failure.
type ValidationCode string

const (
	CodeTotalExceeds24h ValidationCode = "TOTAL_EXCEEDS_24H"
	CodeNegativeHours   ValidationCode = "NEGATIVE_HOURS"
	CodeFutureDate      ValidationCode = "FUTURE_DATE"
)

// ValidationIssue is one failed invariant check on a DailyAggregate.
type ValidationIssue struct {
	Code    ValidationCode
	Message string
}

func (i ValidationIssue) Error() string {
	return fmt.Sprintf("%s: %s", i.Code, i.Message)
}

// ValidationError carries all issues found on a single day's aggregate.
// It is never downgraded to a warning.
type ValidationError struct {
	EmployeeID EmployeeID
	WorkDate   WorkDate
	Issues     []ValidationIssue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("aggregate %s/%s failed validation (%d issues)",
		e.EmployeeID, e.WorkDate, len(e.Issues))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// =============================================================================
// PERSISTENCE ERRORS - Retryable at (employee, work-date) granularity
// =============================================================================

// PersistError wraps a storage failure for one day of a multi-day shift, so
// a retry can target only the failed work-dates instead of the whole shift.
type PersistError struct {
	EmployeeID EmployeeID
	WorkDate   WorkDate
	Err        error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist aggregate %s/%s: %v", e.EmployeeID, e.WorkDate, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry. Only
// persistence-layer failures qualify; everything else needs corrected input.
func IsRetryable(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

// IsInputError returns true if the error is due to a malformed shift.
func IsInputError(err error) bool {
	return errors.Is(err, ErrOpenShift) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidActivityTag)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrShiftNotFound) ||
		errors.Is(err, ErrAggregateNotFound)
}
