package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func at(hour, min, sec int) time.Time {
	return time.Date(2025, time.June, 2, hour, min, sec, 0, time.UTC)
}

func testShift(id string, start, end time.Time) engine.ShiftInterval {
	return engine.ShiftInterval{
		ID:         engine.ShiftID(id),
		EmployeeID: "emp-1",
		Start:      start,
		End:        &end,
	}
}

var june2 = engine.NewWorkDate(2025, time.June, 2)

// =============================================================================
// SHIFT STORE TESTS
// =============================================================================

func TestShiftRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	shift := testShift("s-1", at(9, 0, 0), at(17, 0, 0))
	shift.Tag = engine.TagDriving
	shift.Notes = "delivery run"
	require.NoError(t, store.SaveShift(ctx, shift))

	got, err := store.GetShift(ctx, "s-1")
	require.NoError(t, err)

	assert.Equal(t, shift.ID, got.ID)
	assert.Equal(t, shift.EmployeeID, got.EmployeeID)
	assert.True(t, got.Start.Equal(shift.Start))
	require.NotNil(t, got.End)
	assert.True(t, got.End.Equal(*shift.End))
	assert.Equal(t, engine.TagDriving, got.Tag)
	assert.Equal(t, "delivery run", got.Notes)
}

func TestOpenShiftRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	open := engine.ShiftInterval{ID: "s-open", EmployeeID: "emp-1", Start: at(9, 0, 0)}
	require.NoError(t, store.SaveShift(ctx, open))

	got, err := store.GetShift(ctx, "s-open")
	require.NoError(t, err)
	assert.True(t, got.IsOpen())
}

func TestSaveShift_UpsertsOnSameID(t *testing.T) {
	// Closing an open shift is a second SaveShift with the same ID.
	store := newTestStore(t)
	ctx := context.Background()

	open := engine.ShiftInterval{ID: "s-1", EmployeeID: "emp-1", Start: at(9, 0, 0)}
	require.NoError(t, store.SaveShift(ctx, open))

	closed := testShift("s-1", at(9, 0, 0), at(17, 0, 0))
	require.NoError(t, store.SaveShift(ctx, closed))

	got, err := store.GetShift(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, got.End)
	assert.True(t, got.End.Equal(at(17, 0, 0)))

	shifts, err := store.ListShiftsByDay(ctx, "emp-1", june2)
	require.NoError(t, err)
	assert.Len(t, shifts, 1, "upsert must not duplicate the row")
}

func TestGetShift_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetShift(context.Background(), "nope")
	assert.ErrorIs(t, err, engine.ErrShiftNotFound)
}

func TestListShiftsByDay_FiltersAndOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveShift(ctx, testShift("s-pm", at(16, 0, 0), at(20, 0, 0))))
	require.NoError(t, store.SaveShift(ctx, testShift("s-am", at(8, 0, 0), at(12, 0, 0))))

	other := testShift("s-other", at(9, 0, 0), at(17, 0, 0))
	other.EmployeeID = "emp-2"
	require.NoError(t, store.SaveShift(ctx, other))

	nextDay := testShift("s-tue",
		time.Date(2025, time.June, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 3, 17, 0, 0, 0, time.UTC))
	require.NoError(t, store.SaveShift(ctx, nextDay))

	shifts, err := store.ListShiftsByDay(ctx, "emp-1", june2)
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.Equal(t, engine.ShiftID("s-am"), shifts[0].ID)
	assert.Equal(t, engine.ShiftID("s-pm"), shifts[1].ID)
}

func TestListShiftsByDay_KeyedByWallClockDate(t *testing.T) {
	// GIVEN: A shift starting just after local midnight in a +02:00 zone
	// WHEN: Listing by its wall-clock date
	// THEN: The shift files under 2025-06-02; a UTC conversion would have
	//       put it on the prior day

	store := newTestStore(t)
	ctx := context.Background()

	loc := time.FixedZone("UTC+2", 2*3600)
	start := time.Date(2025, time.June, 2, 0, 30, 0, 0, loc)
	end := time.Date(2025, time.June, 2, 8, 30, 0, 0, loc)
	shift := engine.ShiftInterval{ID: "s-early", EmployeeID: "emp-1", Start: start, End: &end}
	require.NoError(t, store.SaveShift(ctx, shift))

	shifts, err := store.ListShiftsByDay(ctx, "emp-1", june2)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, engine.ShiftID("s-early"), shifts[0].ID)

	prior, err := store.ListShiftsByDay(ctx, "emp-1", engine.NewWorkDate(2025, time.June, 1))
	require.NoError(t, err)
	assert.Empty(t, prior, "the shift must not file under the prior UTC date")
}

func TestDeleteShift(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveShift(ctx, testShift("s-1", at(9, 0, 0), at(17, 0, 0))))
	require.NoError(t, store.DeleteShift(ctx, "s-1"))

	_, err := store.GetShift(ctx, "s-1")
	assert.ErrorIs(t, err, engine.ErrShiftNotFound)
}

// =============================================================================
// SEGMENT STORE TESTS
// =============================================================================

func testSegment(id, shiftID string, start, end time.Time, bucket engine.Bucket) engine.Segment {
	return engine.Segment{
		ID:         engine.SegmentID(id),
		ShiftID:    engine.ShiftID(shiftID),
		EmployeeID: "emp-1",
		WorkDate:   engine.DateOf(start),
		Start:      start,
		End:        end,
		Bucket:     bucket,
		Hours:      engine.HoursBetween(start, end),
	}
}

func TestReplaceForShift_ReplacesWholesale(t *testing.T) {
	// GIVEN: A shift with two stored segments
	// WHEN: Replacing with a single corrected segment
	// THEN: Only the replacement remains

	store := newTestStore(t)
	ctx := context.Background()

	first := []engine.Segment{
		testSegment("seg-1", "s-1", at(9, 0, 0), at(12, 0, 0), engine.BucketRegular),
		testSegment("seg-2", "s-1", at(12, 0, 0), at(17, 0, 0), engine.BucketRegular),
	}
	require.NoError(t, store.ReplaceForShift(ctx, "s-1", first))

	replacement := []engine.Segment{
		testSegment("seg-3", "s-1", at(9, 0, 0), at(13, 0, 0), engine.BucketRegular),
	}
	require.NoError(t, store.ReplaceForShift(ctx, "s-1", replacement))

	segs, err := store.ListByShift(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, engine.SegmentID("seg-3"), segs[0].ID)
	assert.True(t, segs[0].Hours.Equal(engine.NewHours(4)))
}

func TestListForDay_SpansShifts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceForShift(ctx, "s-am", []engine.Segment{
		testSegment("seg-am", "s-am", at(8, 0, 0), at(12, 0, 0), engine.BucketRegular),
	}))
	require.NoError(t, store.ReplaceForShift(ctx, "s-pm", []engine.Segment{
		testSegment("seg-pm", "s-pm", at(16, 0, 0), at(20, 0, 0), engine.BucketRegular),
	}))

	segs, err := store.ListForDay(ctx, "emp-1", june2)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, engine.SegmentID("seg-am"), segs[0].ID)
	assert.Equal(t, engine.SegmentID("seg-pm"), segs[1].ID)
}

func TestDeleteByShift(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceForShift(ctx, "s-1", []engine.Segment{
		testSegment("seg-1", "s-1", at(9, 0, 0), at(17, 0, 0), engine.BucketRegular),
	}))
	require.NoError(t, store.DeleteByShift(ctx, "s-1"))

	segs, err := store.ListByShift(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, segs)
}

// =============================================================================
// AGGREGATE STORE TESTS
// =============================================================================

func TestUpsertAggregate_InsertThenFullReplace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := engine.NewDailyAggregate("emp-1", june2)
	first.SetBucket(engine.BucketRegular, engine.NewHours(6))
	first.SetBucket(engine.BucketNight, engine.NewHours(2))
	require.NoError(t, store.UpsertAggregate(ctx, first))

	// Second write replaces every bucket, including zeroing night.
	second := engine.NewDailyAggregate("emp-1", june2)
	second.SetBucket(engine.BucketRegular, engine.NewHours(8))
	require.NoError(t, store.UpsertAggregate(ctx, second))

	got, err := store.GetAggregate(ctx, "emp-1", june2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Regular.Equal(engine.NewHours(8)), "regular = %s", got.Regular)
	assert.True(t, got.Night.IsZero(), "night = %s, want zero", got.Night)
	assert.Equal(t, engine.OverrideComputed, got.Override)
}

func TestGetAggregate_AbsentIsNilNotError(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetAggregate(context.Background(), "emp-1", june2)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAggregate_DecimalPrecisionSurvivesStorage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	agg := engine.NewDailyAggregate("emp-1", june2)
	agg.SetBucket(engine.BucketRegular, engine.NewHours(7.24))
	require.NoError(t, store.UpsertAggregate(ctx, agg))

	got, err := store.GetAggregate(ctx, "emp-1", june2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Regular.Equal(engine.NewHours(7.24)), "regular = %s", got.Regular)
}

func TestAggregate_OverrideStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	agg := engine.NewDailyAggregate("emp-1", june2)
	agg.SetBucket(engine.BucketApprovedLeave, engine.NewHours(8))
	agg.Override = engine.OverrideManual
	agg.Notes = "entered by payroll admin"
	require.NoError(t, store.UpsertAggregate(ctx, agg))

	got, err := store.GetAggregate(ctx, "emp-1", june2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, engine.OverrideManual, got.Override)
	assert.Equal(t, "entered by payroll admin", got.Notes)
	assert.True(t, got.ApprovedLeave.Equal(engine.NewHours(8)))
}

func TestListAggregates_RangeInclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for day := 1; day <= 5; day++ {
		agg := engine.NewDailyAggregate("emp-1", engine.NewWorkDate(2025, time.June, day))
		agg.SetBucket(engine.BucketRegular, engine.NewHours(8))
		require.NoError(t, store.UpsertAggregate(ctx, agg))
	}

	rows, err := store.ListAggregates(ctx, "emp-1",
		engine.NewWorkDate(2025, time.June, 2), engine.NewWorkDate(2025, time.June, 4))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, engine.NewWorkDate(2025, time.June, 2), rows[0].WorkDate)
	assert.Equal(t, engine.NewWorkDate(2025, time.June, 4), rows[2].WorkDate)
}

// =============================================================================
// HOLIDAY STORE TESTS
// =============================================================================

func TestHolidays_SaveLoadDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	christmas := engine.NewWorkDate(2025, time.December, 25)
	newYear := engine.NewWorkDate(2026, time.January, 1)
	require.NoError(t, store.SaveHoliday(ctx, christmas, "Christmas"))
	require.NoError(t, store.SaveHoliday(ctx, newYear, "New Year"))

	hs, err := store.LoadHolidays(ctx,
		engine.NewWorkDate(2025, time.December, 1), engine.NewWorkDate(2025, time.December, 31))
	require.NoError(t, err)
	assert.True(t, hs.Contains(christmas))
	assert.False(t, hs.Contains(newYear), "out-of-range holiday must not load")

	all, err := store.ListHolidays(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Christmas", all[christmas])

	require.NoError(t, store.DeleteHoliday(ctx, christmas))
	hs, err = store.LoadHolidays(ctx, christmas, christmas)
	require.NoError(t, err)
	assert.False(t, hs.Contains(christmas))
}

// =============================================================================
// TEAM STORE TESTS
// =============================================================================

func TestTeamMembers_ScopedByDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	june3 := engine.NewWorkDate(2025, time.June, 3)
	require.NoError(t, store.AddTeamMember(ctx, "crew-7", "emp-1", june2))
	require.NoError(t, store.AddTeamMember(ctx, "crew-7", "emp-2", june2))
	require.NoError(t, store.AddTeamMember(ctx, "crew-7", "emp-3", june3))

	// Duplicate scheduling is a no-op.
	require.NoError(t, store.AddTeamMember(ctx, "crew-7", "emp-1", june2))

	members, err := store.ListTeamMembers(ctx, "crew-7", june2)
	require.NoError(t, err)
	assert.Equal(t, []engine.EmployeeID{"emp-1", "emp-2"}, members)
}

// =============================================================================
// FULL STACK - Engine against the SQLite store
// =============================================================================

func TestAggregatorAgainstSQLite(t *testing.T) {
	// The same overnight shift the in-memory tests cover, end to end
	// through real SQL.

	store := newTestStore(t)
	ctx := context.Background()

	agg := &engine.Aggregator{
		Shifts:     store,
		Segments:   store,
		Aggregates: store,
		Holidays:   store,
		Now:        func() time.Time { return time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC) },
	}

	end := time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC)
	shift := engine.ShiftInterval{
		ID:         "s-1",
		EmployeeID: "emp-1",
		Start:      at(14, 45, 57),
		End:        &end,
	}
	require.NoError(t, store.SaveShift(ctx, shift))

	report, err := agg.ProcessShift(ctx, shift)
	require.NoError(t, err)
	assert.True(t, report.AllPersisted())

	mon, err := store.GetAggregate(ctx, "emp-1", june2)
	require.NoError(t, err)
	require.NotNil(t, mon)
	assert.True(t, mon.Regular.Equal(engine.NewHours(7.24)), "monday regular = %s", mon.Regular)
	assert.True(t, mon.Night.Equal(engine.NewHours(2)), "monday night = %s", mon.Night)

	tue, err := store.GetAggregate(ctx, "emp-1", engine.NewWorkDate(2025, time.June, 3))
	require.NoError(t, err)
	require.NotNil(t, tue)
	assert.True(t, tue.Night.Equal(engine.NewHours(6)), "tuesday night = %s", tue.Night)
	assert.True(t, tue.Regular.Equal(engine.NewHours(2)), "tuesday regular = %s", tue.Regular)
}
