package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/engine/store"
)

// =============================================================================
// RECONCILIATION TESTS
// =============================================================================

func TestAudit_MissingAggregateRow(t *testing.T) {
	// GIVEN: One complete 8h shift on a date with no DailyAggregate row
	// WHEN: Auditing that date
	// THEN: incomplete=false, discrepancy=true with delta 8, missing
	//       aggregate flagged

	mem := store.NewMemory()
	auditor := &engine.Auditor{Shifts: mem, Aggregates: mem}
	ctx := context.Background()
	date := engine.NewWorkDate(2025, time.June, 2)

	saveShift(t, mem, closedShift("s-1", instant(monday, 9, 0, 0), instant(monday, 17, 0, 0), engine.TagNone))

	results, err := auditor.Audit(ctx, "emp-1", date, date)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Incomplete {
		t.Error("closed shift must not flag incomplete")
	}
	if !r.MissingAggregate {
		t.Error("absent aggregate row must flag missingAggregate")
	}
	if r.AggregateTotal != nil {
		t.Errorf("aggregate total should be absent, got %s", r.AggregateTotal)
	}
	if !r.Discrepancy {
		t.Error("8h of raw entries against no aggregate is a discrepancy")
	}
	assertHours(t, r.Delta, 8, "delta")
}

func TestAudit_MatchedDayIsClean(t *testing.T) {
	// A day whose aggregate was built from its shifts reconciles within
	// the rounding threshold.

	mem := store.NewMemory()
	agg := newTestAggregator(mem)
	auditor := &engine.Auditor{Shifts: mem, Aggregates: mem}
	ctx := context.Background()
	date := engine.NewWorkDate(2025, time.June, 2)

	shift := closedShift("s-1", instant(monday, 9, 0, 0), instant(monday, 17, 0, 0), engine.TagNone)
	saveShift(t, mem, shift)
	if _, err := agg.ProcessShift(ctx, shift); err != nil {
		t.Fatalf("aggregation failed: %v", err)
	}

	results, err := auditor.Audit(ctx, "emp-1", date, date)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	r := results[0]
	if r.Discrepancy {
		t.Errorf("matched day flagged discrepancy, delta=%s", r.Delta)
	}
	if r.MissingAggregate || r.Incomplete {
		t.Errorf("unexpected flags: %+v", r)
	}
	if r.AggregateTotal == nil || !r.AggregateTotal.Equal(engine.NewHours(8)) {
		t.Errorf("aggregate total = %v, want 8.00", r.AggregateTotal)
	}
}

func TestAudit_OpenShiftFlagsIncomplete(t *testing.T) {
	mem := store.NewMemory()
	auditor := &engine.Auditor{Shifts: mem, Aggregates: mem}
	ctx := context.Background()
	date := engine.NewWorkDate(2025, time.June, 2)

	open := engine.ShiftInterval{ID: "s-open", EmployeeID: "emp-1", Start: instant(monday, 9, 0, 0)}
	saveShift(t, mem, open)

	results, err := auditor.Audit(ctx, "emp-1", date, date)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	r := results[0]
	if !r.Incomplete {
		t.Error("open shift must flag incomplete")
	}
	if !r.EntriesTotal.IsZero() {
		t.Errorf("open shift contributes no hours, got %s", r.EntriesTotal)
	}
}

func TestAudit_EmptyDayHasNoFlags(t *testing.T) {
	// A date with no shifts and no aggregate is quiet: not missing, not a
	// discrepancy. The row still appears in the results.

	mem := store.NewMemory()
	auditor := &engine.Auditor{Shifts: mem, Aggregates: mem}
	ctx := context.Background()
	date := engine.NewWorkDate(2025, time.June, 2)

	results, err := auditor.Audit(ctx, "emp-1", date, date)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Discrepancy || r.MissingAggregate || r.Incomplete {
		t.Errorf("empty day should carry no flags: %+v", r)
	}
}

func TestAudit_RangeCoversEveryDate(t *testing.T) {
	mem := store.NewMemory()
	auditor := &engine.Auditor{Shifts: mem, Aggregates: mem}
	ctx := context.Background()

	from := engine.NewWorkDate(2025, time.June, 2)
	to := engine.NewWorkDate(2025, time.June, 8)

	results, err := auditor.Audit(ctx, "emp-1", from, to)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if len(results) != 7 {
		t.Fatalf("expected 7 daily rows, got %d", len(results))
	}
	if results[0].Date != from || results[6].Date != to {
		t.Errorf("range endpoints wrong: %s .. %s", results[0].Date, results[6].Date)
	}
}

func TestAudit_InvertedRangeRejected(t *testing.T) {
	mem := store.NewMemory()
	auditor := &engine.Auditor{Shifts: mem, Aggregates: mem}

	_, err := auditor.Audit(context.Background(),
		"emp-1", engine.NewWorkDate(2025, time.June, 8), engine.NewWorkDate(2025, time.June, 2))
	if err == nil {
		t.Fatal("expected error for inverted range")
	}
}

// =============================================================================
// CSV EXPORT TESTS
// =============================================================================

func TestWriteCSV(t *testing.T) {
	aggTotal := engine.NewHours(8)
	results := []engine.ReconciliationResult{
		{
			Date:           engine.NewWorkDate(2025, time.June, 2),
			EntriesTotal:   engine.NewHours(8),
			AggregateTotal: &aggTotal,
			Delta:          engine.ZeroHours(),
		},
		{
			Date:             engine.NewWorkDate(2025, time.June, 3),
			EntriesTotal:     engine.NewHours(8),
			Delta:            engine.NewHours(8),
			Discrepancy:      true,
			MissingAggregate: true,
		},
	}

	var sb strings.Builder
	if err := engine.WriteCSV(&sb, results); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "date,entries_total,aggregate_total,delta,flags" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "2025-06-02,8.00,8.00,0.00," {
		t.Errorf("unexpected clean row: %s", lines[1])
	}
	if lines[2] != "2025-06-03,8.00,,8.00,discrepancy|missing_aggregate" {
		t.Errorf("unexpected flagged row: %s", lines[2])
	}
}
