package engine_test

import (
	"testing"
	"time"

	"github.com/warp/payroll-engine/engine"
)

func issueCodes(issues []engine.ValidationIssue) map[engine.ValidationCode]bool {
	codes := make(map[engine.ValidationCode]bool, len(issues))
	for _, i := range issues {
		codes[i.Code] = true
	}
	return codes
}

func TestValidate_CleanAggregatePasses(t *testing.T) {
	agg := engine.NewDailyAggregate("emp-1", engine.NewWorkDate(2025, time.June, 2))
	agg.SetBucket(engine.BucketRegular, engine.NewHours(8))
	agg.SetBucket(engine.BucketNight, engine.NewHours(2))

	if issues := engine.Validate(agg, instant(monday, 23, 0, 0)); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestValidate_TotalOver24Hours(t *testing.T) {
	agg := engine.NewDailyAggregate("emp-1", engine.NewWorkDate(2025, time.June, 2))
	agg.SetBucket(engine.BucketRegular, engine.NewHours(16))
	agg.SetBucket(engine.BucketNight, engine.NewHours(8.5))

	issues := engine.Validate(agg, instant(monday, 23, 0, 0))
	if !issueCodes(issues)[engine.CodeTotalExceeds24h] {
		t.Errorf("expected %s, got %v", engine.CodeTotalExceeds24h, issues)
	}
}

func TestValidate_ExactlyTwentyFourHoursIsFine(t *testing.T) {
	agg := engine.NewDailyAggregate("emp-1", engine.NewWorkDate(2025, time.June, 2))
	agg.SetBucket(engine.BucketNight, engine.NewHours(24))

	if issues := engine.Validate(agg, instant(monday, 23, 59, 59)); len(issues) != 0 {
		t.Errorf("24h exactly should pass, got %v", issues)
	}
}

func TestValidate_NegativeBucket(t *testing.T) {
	agg := engine.NewDailyAggregate("emp-1", engine.NewWorkDate(2025, time.June, 2))
	agg.SetBucket(engine.BucketSaturday, engine.NewHours(-1))

	issues := engine.Validate(agg, instant(monday, 12, 0, 0))
	if !issueCodes(issues)[engine.CodeNegativeHours] {
		t.Errorf("expected %s, got %v", engine.CodeNegativeHours, issues)
	}
}

func TestValidate_FutureWorkDate(t *testing.T) {
	agg := engine.NewDailyAggregate("emp-1", engine.NewWorkDate(2025, time.June, 3))
	agg.SetBucket(engine.BucketRegular, engine.NewHours(8))

	// Clock still on June 2nd: the June 3rd aggregate is in the future.
	issues := engine.Validate(agg, instant(monday, 23, 0, 0))
	if !issueCodes(issues)[engine.CodeFutureDate] {
		t.Errorf("expected %s, got %v", engine.CodeFutureDate, issues)
	}
}

func TestValidate_ReportsEveryIssueNotJustTheFirst(t *testing.T) {
	// GIVEN: An aggregate violating all three invariants at once
	// WHEN: Validating
	// THEN: All three codes are reported; no check short-circuits

	agg := engine.NewDailyAggregate("emp-1", engine.NewWorkDate(2025, time.June, 9))
	agg.SetBucket(engine.BucketRegular, engine.NewHours(30))
	agg.SetBucket(engine.BucketNight, engine.NewHours(-2))

	issues := engine.Validate(agg, instant(monday, 12, 0, 0))
	codes := issueCodes(issues)
	for _, want := range []engine.ValidationCode{
		engine.CodeTotalExceeds24h, engine.CodeNegativeHours, engine.CodeFutureDate,
	} {
		if !codes[want] {
			t.Errorf("missing %s in %v", want, issues)
		}
	}
}
