/*
Package engine provides the shift-segmentation and payroll-hour aggregation core.

PURPOSE:
  This package turns raw clock-in/clock-out intervals into calendar-day-bounded,
  pay-rate-classified hour buckets, folds them into one stored row per
  (employee, work-date), and reconciles the stored rows against the raw
  intervals they were derived from.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: A decimal hour quantity (avoids float drift in payroll sums)
  - WorkDate: A calendar date with no time component (aggregate key)
  - Bucket: A pay-rate category (regular, night, saturday, ...)
  - ShiftInterval: One recorded work period
  - Segment: A derived sub-interval of a shift, tagged with one bucket
  - DailyAggregate: The per-employee-per-day stored summary, by bucket

DESIGN PRINCIPLES:
  1. Segments are disposable: regenerated wholesale, never patched
  2. Precision: decimal.Decimal for all hour quantities
  3. Type Safety: named ID types prevent mixing employee/shift/team IDs
  4. One row per (employee, work-date): the aggregate key is a uniqueness
     invariant enforced here and at the storage layer

SEE ALSO:
  - clock.go: Classification boundary arithmetic
  - classify.go: Bucket classification rules
  - split.go: The boundary walk producing Segments
  - aggregate.go: Folding segments into DailyAggregates
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Decimal hour quantity
// =============================================================================

// Hours is a payroll hour quantity. Segment hours are rounded up to the next
// hundredth of an hour at creation time; sums of segments therefore exceed
// the raw duration by at most 0.01h per segment.
type Hours struct {
	Value decimal.Decimal
}

func NewHours(value float64) Hours   { return Hours{Value: decimal.NewFromFloat(value)} }
func ZeroHours() Hours               { return Hours{Value: decimal.Zero} }

// HoursBetween returns the duration from start to end as hours, rounded up
// to two decimal places.
func HoursBetween(start, end time.Time) Hours {
	seconds := decimal.NewFromInt(int64(end.Sub(start) / time.Second))
	return Hours{Value: seconds.Div(decimal.NewFromInt(3600)).RoundUp(2)}
}

func (h Hours) Add(o Hours) Hours         { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours         { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) Abs() Hours                { return Hours{Value: h.Value.Abs()} }
func (h Hours) IsZero() bool              { return h.Value.IsZero() }
func (h Hours) IsNegative() bool          { return h.Value.IsNegative() }
func (h Hours) GreaterThan(o Hours) bool  { return h.Value.GreaterThan(o.Value) }
func (h Hours) LessThan(o Hours) bool     { return h.Value.LessThan(o.Value) }
func (h Hours) Equal(o Hours) bool        { return h.Value.Equal(o.Value) }
func (h Hours) Float64() float64          { f, _ := h.Value.Float64(); return f }
func (h Hours) String() string            { return h.Value.StringFixed(2) }

func MustParseHours(s string) Hours {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroHours()
	}
	return Hours{Value: d}
}

// =============================================================================
// WORK DATE - Calendar date without time component
// =============================================================================

// WorkDate is the calendar day a segment or aggregate belongs to.
// It is comparable and safe to use as a map key.
type WorkDate struct {
	Year  int
	Month time.Month
	Day   int
}

func NewWorkDate(year int, month time.Month, day int) WorkDate {
	return WorkDate{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of an instant, in the instant's location.
func DateOf(t time.Time) WorkDate {
	return WorkDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseWorkDate parses an ISO date (2006-01-02).
func ParseWorkDate(s string) (WorkDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return WorkDate{}, err
	}
	return DateOf(t), nil
}

// Time returns midnight at the start of the date in UTC.
func (d WorkDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d WorkDate) Next() WorkDate             { return DateOf(d.Time().AddDate(0, 0, 1)) }
func (d WorkDate) Weekday() time.Weekday      { return d.Time().Weekday() }
func (d WorkDate) Before(o WorkDate) bool     { return d.Time().Before(o.Time()) }
func (d WorkDate) After(o WorkDate) bool      { return d.Time().After(o.Time()) }
func (d WorkDate) Equal(o WorkDate) bool      { return d == o }
func (d WorkDate) String() string             { return d.Time().Format("2006-01-02") }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type ShiftID string
type SegmentID string
type TeamID string

// =============================================================================
// BUCKET - Pay-rate category
// =============================================================================

type Bucket string

const (
	BucketRegular       Bucket = "regular"
	BucketNight         Bucket = "night"
	BucketSaturday      Bucket = "saturday"
	BucketSunday        Bucket = "sunday"
	BucketHoliday       Bucket = "holiday"
	BucketDriving       Bucket = "driving"
	BucketPassenger     Bucket = "passenger"
	BucketEquipment     Bucket = "equipment"
	BucketApprovedLeave Bucket = "approved_leave"
	BucketMedicalLeave  Bucket = "medical_leave"
)

// AllBuckets lists every bucket a DailyAggregate tracks, in column order.
var AllBuckets = []Bucket{
	BucketRegular, BucketNight, BucketSaturday, BucketSunday, BucketHoliday,
	BucketDriving, BucketPassenger, BucketEquipment,
	BucketApprovedLeave, BucketMedicalLeave,
}

// Valid reports whether b names one of the tracked buckets.
func (b Bucket) Valid() bool {
	for _, known := range AllBuckets {
		if b == known {
			return true
		}
	}
	return false
}

// =============================================================================
// ACTIVITY TAG - Optional fixed-bucket override on a shift
// =============================================================================

// ActivityTag marks a shift whose hours bypass time-of-day classification
// and land in a single fixed bucket. The empty tag means a normal shift.
type ActivityTag string

const (
	TagNone      ActivityTag = ""
	TagDriving   ActivityTag = "driving"
	TagPassenger ActivityTag = "passenger"
	TagEquipment ActivityTag = "equipment"
)

// OverrideBucket returns the fixed bucket for a tagged shift.
// ok is false for normal (untagged) shifts.
func (t ActivityTag) OverrideBucket() (Bucket, bool) {
	switch t {
	case TagDriving:
		return BucketDriving, true
	case TagPassenger:
		return BucketPassenger, true
	case TagEquipment:
		return BucketEquipment, true
	default:
		return "", false
	}
}

// Valid reports whether the tag is one of the known values.
func (t ActivityTag) Valid() bool {
	switch t {
	case TagNone, TagDriving, TagPassenger, TagEquipment:
		return true
	}
	return false
}

// =============================================================================
// SHIFT INTERVAL - One recorded work period
// =============================================================================

type ShiftInterval struct {
	ID         ShiftID
	EmployeeID EmployeeID
	Start      time.Time
	End        *time.Time // nil while the shift is open
	Tag        ActivityTag
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s ShiftInterval) IsOpen() bool { return s.End == nil }

// Duration returns the closed shift's length. Open shifts have no duration.
func (s ShiftInterval) Duration() (Hours, bool) {
	if s.End == nil {
		return ZeroHours(), false
	}
	return HoursBetween(s.Start, *s.End), true
}

// =============================================================================
// SEGMENT - Derived sub-interval of a shift
// =============================================================================

// Segment is disposable: the splitter regenerates all segments of a shift on
// every run (delete-all-then-insert). Segments never span a calendar-day
// boundary; their hours sum to the parent interval's duration within 0.01h
// per segment of rounding.
type Segment struct {
	ID         SegmentID
	ShiftID    ShiftID
	EmployeeID EmployeeID
	WorkDate   WorkDate
	Start      time.Time
	End        time.Time
	Bucket     Bucket
	Hours      Hours
}

// =============================================================================
// DAILY AGGREGATE - Stored per-employee-per-day summary
// =============================================================================

// OverrideState marks whether an administrator replaced the computed values.
type OverrideState string

const (
	OverrideComputed OverrideState = "computed"
	OverrideManual   OverrideState = "manual"
)

// DailyAggregate holds one row per (employee, work-date). Automated
// aggregation fully replaces the bucket fields unless Override is
// OverrideManual, in which case the row is owned by an administrator.
type DailyAggregate struct {
	EmployeeID EmployeeID
	WorkDate   WorkDate

	Regular       Hours
	Night         Hours
	Saturday      Hours
	Sunday        Hours
	Holiday       Hours
	Driving       Hours
	Passenger     Hours
	Equipment     Hours
	ApprovedLeave Hours
	MedicalLeave  Hours

	Notes    string
	Override OverrideState
}

func NewDailyAggregate(employeeID EmployeeID, date WorkDate) DailyAggregate {
	a := DailyAggregate{EmployeeID: employeeID, WorkDate: date, Override: OverrideComputed}
	for _, b := range AllBuckets {
		a.SetBucket(b, ZeroHours())
	}
	return a
}

// BucketHours returns the hours recorded under a bucket.
func (a *DailyAggregate) BucketHours(b Bucket) Hours {
	switch b {
	case BucketRegular:
		return a.Regular
	case BucketNight:
		return a.Night
	case BucketSaturday:
		return a.Saturday
	case BucketSunday:
		return a.Sunday
	case BucketHoliday:
		return a.Holiday
	case BucketDriving:
		return a.Driving
	case BucketPassenger:
		return a.Passenger
	case BucketEquipment:
		return a.Equipment
	case BucketApprovedLeave:
		return a.ApprovedLeave
	case BucketMedicalLeave:
		return a.MedicalLeave
	}
	return ZeroHours()
}

// SetBucket replaces the hours recorded under a bucket.
func (a *DailyAggregate) SetBucket(b Bucket, h Hours) {
	switch b {
	case BucketRegular:
		a.Regular = h
	case BucketNight:
		a.Night = h
	case BucketSaturday:
		a.Saturday = h
	case BucketSunday:
		a.Sunday = h
	case BucketHoliday:
		a.Holiday = h
	case BucketDriving:
		a.Driving = h
	case BucketPassenger:
		a.Passenger = h
	case BucketEquipment:
		a.Equipment = h
	case BucketApprovedLeave:
		a.ApprovedLeave = h
	case BucketMedicalLeave:
		a.MedicalLeave = h
	}
}

// AddBucket accumulates hours into a bucket.
func (a *DailyAggregate) AddBucket(b Bucket, h Hours) {
	a.SetBucket(b, a.BucketHours(b).Add(h))
}

// Total sums every bucket.
func (a *DailyAggregate) Total() Hours {
	total := ZeroHours()
	for _, b := range AllBuckets {
		total = total.Add(a.BucketHours(b))
	}
	return total
}

// =============================================================================
// RECONCILIATION RESULT - Transient audit report row
// =============================================================================

// ReconciliationResult compares the raw-interval total for a date against the
// stored aggregate total. Never persisted.
type ReconciliationResult struct {
	Date             WorkDate
	EntriesTotal     Hours
	AggregateTotal   *Hours // nil when no DailyAggregate row exists
	Delta            Hours
	Discrepancy      bool
	Incomplete       bool
	MissingAggregate bool
}
