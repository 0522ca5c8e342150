package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// VALIDATOR - Post-aggregation invariant checks
// =============================================================================

// maxDayHours is the hard ceiling on a single calendar day.
var maxDayHours = NewHours(24)

// Validate checks a DailyAggregate against the engine's invariants. Every
// check is evaluated; nothing short-circuits. A non-empty result blocks
// persistence of that day's aggregate and is surfaced to the caller verbatim.
func Validate(a DailyAggregate, now time.Time) []ValidationIssue {
	var issues []ValidationIssue

	if a.Total().GreaterThan(maxDayHours) {
		issues = append(issues, ValidationIssue{
			Code:    CodeTotalExceeds24h,
			Message: fmt.Sprintf("total %s exceeds 24 hours on %s", a.Total(), a.WorkDate),
		})
	}

	for _, b := range AllBuckets {
		if a.BucketHours(b).IsNegative() {
			issues = append(issues, ValidationIssue{
				Code:    CodeNegativeHours,
				Message: fmt.Sprintf("bucket %s is negative (%s) on %s", b, a.BucketHours(b), a.WorkDate),
			})
		}
	}

	if a.WorkDate.After(DateOf(now)) {
		issues = append(issues, ValidationIssue{
			Code:    CodeFutureDate,
			Message: fmt.Sprintf("work date %s is in the future", a.WorkDate),
		})
	}

	return issues
}
