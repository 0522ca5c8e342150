/*
Package sqlite provides a SQLite-backed implementation of the engine's
storage interfaces.

PURPOSE:
  Implements ShiftStore, SegmentStore, AggregateStore, HolidayStore, and
  TeamStore using SQLite. In production, the same SQL applies to PostgreSQL -
  only minor dialect differences.

KEY TABLES:
  shifts:           Raw clock-in/clock-out intervals
  segments:         Derived classification segments (disposable)
  daily_aggregates: One row per (employee, work-date), bucket columns
  holidays:         Legal-holiday calendar
  team_members:     Team scheduling on a date (dedupe scope)

UPSERT CONTRACT:
  daily_aggregates is keyed on (employee_id, work_date). UpsertAggregate
  fully replaces the bucket fields via ON CONFLICT DO UPDATE. The engine
  serializes writers per key; the store does not merge.

SEGMENT REPLACEMENT:
  ReplaceForShift runs DELETE-by-parent then INSERT inside one SQL
  transaction. Segments are never updated in place.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety within the process. SQLite is opened
  with WAL so readers don't block.

USAGE:
  st, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/engine"
)

// Store implements all engine storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Raw shift intervals. Hard-deleted only by deduplication.
	-- start_date is the wall-clock calendar date of start_at, computed in
	-- the engine; SQLite's DATE() would convert offset timestamps to UTC
	-- and file early-morning shifts under the wrong day.
	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_at TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_at TEXT,
		activity_tag TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_employee_date
		ON shifts(employee_id, start_date);

	-- Derived segments. Regenerated wholesale on every re-aggregation.
	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		work_date TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		bucket TEXT NOT NULL,
		hours TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_segments_shift
		ON segments(shift_id);
	-- Hot path: day rebuild reads every segment for (employee, date)
	CREATE INDEX IF NOT EXISTS idx_segments_employee_date
		ON segments(employee_id, work_date);

	-- One row per (employee, work-date). The composite key IS the
	-- uniqueness invariant.
	CREATE TABLE IF NOT EXISTS daily_aggregates (
		employee_id TEXT NOT NULL,
		work_date TEXT NOT NULL,
		regular TEXT NOT NULL DEFAULT '0',
		night TEXT NOT NULL DEFAULT '0',
		saturday TEXT NOT NULL DEFAULT '0',
		sunday TEXT NOT NULL DEFAULT '0',
		holiday TEXT NOT NULL DEFAULT '0',
		driving TEXT NOT NULL DEFAULT '0',
		passenger TEXT NOT NULL DEFAULT '0',
		equipment TEXT NOT NULL DEFAULT '0',
		approved_leave TEXT NOT NULL DEFAULT '0',
		medical_leave TEXT NOT NULL DEFAULT '0',
		notes TEXT NOT NULL DEFAULT '',
		override_state TEXT NOT NULL DEFAULT 'computed',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, work_date)
	);

	-- Legal holidays. Read-only from the engine's perspective.
	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	);

	-- Team scheduling, resolved per date for deduplication scope.
	CREATE TABLE IF NOT EXISTS team_members (
		team_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		work_date TEXT NOT NULL,
		PRIMARY KEY (team_id, employee_id, work_date)
	);

	CREATE INDEX IF NOT EXISTS idx_team_members_team_date
		ON team_members(team_id, work_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SHIFT STORE (engine.ShiftStore interface)
// =============================================================================

// SaveShift inserts or updates a shift interval.
func (s *Store) SaveShift(ctx context.Context, shift engine.ShiftInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO shifts (id, employee_id, start_at, start_date, end_at, activity_tag, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_at = excluded.start_at,
			start_date = excluded.start_date,
			end_at = excluded.end_at,
			activity_tag = excluded.activity_tag,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	createdAt := now
	if !shift.CreatedAt.IsZero() {
		createdAt = shift.CreatedAt.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, query,
		shift.ID,
		shift.EmployeeID,
		shift.Start.Format(time.RFC3339),
		engine.DateOf(shift.Start).String(),
		nullTime(shift.End),
		string(shift.Tag),
		shift.Notes,
		createdAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save shift: %w", err)
	}
	return nil
}

// GetShift retrieves a shift by ID.
func (s *Store) GetShift(ctx context.Context, id engine.ShiftID) (*engine.ShiftInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, start_at, end_at, activity_tag, notes, created_at, updated_at
		FROM shifts WHERE id = ?
	`

	shift, err := scanShift(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, engine.ErrShiftNotFound
	}
	if err != nil {
		return nil, err
	}
	return shift, nil
}

// ListShiftsByDay returns the employee's shifts whose start falls on the
// date, by wall clock.
func (s *Store) ListShiftsByDay(ctx context.Context, employeeID engine.EmployeeID, date engine.WorkDate) ([]engine.ShiftInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, start_at, end_at, activity_tag, notes, created_at, updated_at
		FROM shifts
		WHERE employee_id = ? AND start_date = ?
		ORDER BY start_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, employeeID, date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []engine.ShiftInterval
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, *shift)
	}
	return shifts, rows.Err()
}

// DeleteShift removes a shift by ID. Deduplicator only.
func (s *Store) DeleteShift(ctx context.Context, id engine.ShiftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM shifts WHERE id = ?", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*engine.ShiftInterval, error) {
	var (
		shift     engine.ShiftInterval
		startAt   string
		endAt     sql.NullString
		tag       string
		createdAt string
		updatedAt string
	)

	err := row.Scan(&shift.ID, &shift.EmployeeID, &startAt, &endAt, &tag, &shift.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	shift.Start, _ = time.Parse(time.RFC3339, startAt)
	if endAt.Valid {
		t, _ := time.Parse(time.RFC3339, endAt.String)
		shift.End = &t
	}
	shift.Tag = engine.ActivityTag(tag)
	shift.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	shift.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &shift, nil
}

// =============================================================================
// SEGMENT STORE (engine.SegmentStore interface)
// =============================================================================

// ReplaceForShift deletes every segment of the shift and inserts the
// replacements, atomically.
func (s *Store) ReplaceForShift(ctx context.Context, shiftID engine.ShiftID, segments []engine.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segments WHERE shift_id = ?", shiftID); err != nil {
		return fmt.Errorf("failed to delete segments: %w", err)
	}

	query := `
		INSERT INTO segments (id, shift_id, employee_id, work_date, start_at, end_at, bucket, hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, seg := range segments {
		_, err := tx.ExecContext(ctx, query,
			seg.ID,
			seg.ShiftID,
			seg.EmployeeID,
			seg.WorkDate.String(),
			seg.Start.Format(time.RFC3339),
			seg.End.Format(time.RFC3339),
			string(seg.Bucket),
			seg.Hours.Value.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert segment: %w", err)
		}
	}

	return tx.Commit()
}

// ListByShift returns a shift's segments ordered by start.
func (s *Store) ListByShift(ctx context.Context, shiftID engine.ShiftID) ([]engine.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, shift_id, employee_id, work_date, start_at, end_at, bucket, hours
		FROM segments
		WHERE shift_id = ?
		ORDER BY start_at ASC
	`
	return s.querySegments(ctx, query, shiftID)
}

// ListForDay returns every segment for (employee, date) across all shifts.
func (s *Store) ListForDay(ctx context.Context, employeeID engine.EmployeeID, date engine.WorkDate) ([]engine.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, shift_id, employee_id, work_date, start_at, end_at, bucket, hours
		FROM segments
		WHERE employee_id = ? AND work_date = ?
		ORDER BY start_at ASC
	`
	return s.querySegments(ctx, query, employeeID, date.String())
}

// DeleteByShift removes a shift's segments without replacement.
func (s *Store) DeleteByShift(ctx context.Context, shiftID engine.ShiftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM segments WHERE shift_id = ?", shiftID)
	return err
}

func (s *Store) querySegments(ctx context.Context, query string, args ...any) ([]engine.Segment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segments []engine.Segment
	for rows.Next() {
		var (
			seg      engine.Segment
			workDate string
			startAt  string
			endAt    string
			hours    string
		)
		if err := rows.Scan(&seg.ID, &seg.ShiftID, &seg.EmployeeID, &workDate, &startAt, &endAt, &seg.Bucket, &hours); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		seg.WorkDate, _ = engine.ParseWorkDate(workDate)
		seg.Start, _ = time.Parse(time.RFC3339, startAt)
		seg.End, _ = time.Parse(time.RFC3339, endAt)
		seg.Hours = engine.MustParseHours(hours)
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// =============================================================================
// AGGREGATE STORE (engine.AggregateStore interface)
// =============================================================================

// UpsertAggregate writes the (employee_id, work_date) row, fully replacing
// the bucket fields.
func (s *Store) UpsertAggregate(ctx context.Context, a engine.DailyAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO daily_aggregates
		(employee_id, work_date, regular, night, saturday, sunday, holiday,
		 driving, passenger, equipment, approved_leave, medical_leave,
		 notes, override_state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, work_date) DO UPDATE SET
			regular = excluded.regular,
			night = excluded.night,
			saturday = excluded.saturday,
			sunday = excluded.sunday,
			holiday = excluded.holiday,
			driving = excluded.driving,
			passenger = excluded.passenger,
			equipment = excluded.equipment,
			approved_leave = excluded.approved_leave,
			medical_leave = excluded.medical_leave,
			notes = excluded.notes,
			override_state = excluded.override_state,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		a.EmployeeID,
		a.WorkDate.String(),
		a.Regular.Value.String(),
		a.Night.Value.String(),
		a.Saturday.Value.String(),
		a.Sunday.Value.String(),
		a.Holiday.Value.String(),
		a.Driving.Value.String(),
		a.Passenger.Value.String(),
		a.Equipment.Value.String(),
		a.ApprovedLeave.Value.String(),
		a.MedicalLeave.Value.String(),
		a.Notes,
		string(a.Override),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert aggregate: %w", err)
	}
	return nil
}

// GetAggregate returns the row for (employee, date), or nil when absent.
func (s *Store) GetAggregate(ctx context.Context, employeeID engine.EmployeeID, date engine.WorkDate) (*engine.DailyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := aggregateSelect + " WHERE employee_id = ? AND work_date = ?"
	agg, err := scanAggregate(s.db.QueryRowContext(ctx, query, employeeID, date.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// ListAggregates returns the employee's rows in [from, to].
func (s *Store) ListAggregates(ctx context.Context, employeeID engine.EmployeeID, from, to engine.WorkDate) ([]engine.DailyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := aggregateSelect + `
		WHERE employee_id = ? AND work_date >= ? AND work_date <= ?
		ORDER BY work_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, employeeID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []engine.DailyAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		aggregates = append(aggregates, *agg)
	}
	return aggregates, rows.Err()
}

const aggregateSelect = `
	SELECT employee_id, work_date, regular, night, saturday, sunday, holiday,
	       driving, passenger, equipment, approved_leave, medical_leave,
	       notes, override_state
	FROM daily_aggregates
`

func scanAggregate(row rowScanner) (*engine.DailyAggregate, error) {
	var (
		a        engine.DailyAggregate
		workDate string
		buckets  [10]string
		override string
	)

	err := row.Scan(&a.EmployeeID, &workDate,
		&buckets[0], &buckets[1], &buckets[2], &buckets[3], &buckets[4],
		&buckets[5], &buckets[6], &buckets[7], &buckets[8], &buckets[9],
		&a.Notes, &override)
	if err != nil {
		return nil, err
	}

	a.WorkDate, _ = engine.ParseWorkDate(workDate)
	for i, b := range engine.AllBuckets {
		a.SetBucket(b, engine.MustParseHours(buckets[i]))
	}
	a.Override = engine.OverrideState(override)
	return &a, nil
}

// =============================================================================
// HOLIDAY STORE (engine.HolidayStore interface)
// =============================================================================

// SaveHoliday adds or renames a legal holiday.
func (s *Store) SaveHoliday(ctx context.Context, date engine.WorkDate, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (date, name) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET name = excluded.name
	`
	_, err := s.db.ExecContext(ctx, query, date.String(), name)
	return err
}

// DeleteHoliday removes a holiday.
func (s *Store) DeleteHoliday(ctx context.Context, date engine.WorkDate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE date = ?", date.String())
	return err
}

// LoadHolidays returns the holiday dates in [from, to].
func (s *Store) LoadHolidays(ctx context.Context, from, to engine.WorkDate) (engine.HolidaySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT date FROM holidays WHERE date >= ? AND date <= ?",
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	hs := engine.NewHolidaySet()
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, err
		}
		date, err := engine.ParseWorkDate(dateStr)
		if err != nil {
			continue
		}
		hs.Add(date)
	}
	return hs, rows.Err()
}

// ListHolidays returns all holidays with their names (for admin UI).
func (s *Store) ListHolidays(ctx context.Context) (map[engine.WorkDate]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT date, name FROM holidays ORDER BY date ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holidays := make(map[engine.WorkDate]string)
	for rows.Next() {
		var dateStr, name string
		if err := rows.Scan(&dateStr, &name); err != nil {
			return nil, err
		}
		date, err := engine.ParseWorkDate(dateStr)
		if err != nil {
			continue
		}
		holidays[date] = name
	}
	return holidays, rows.Err()
}

// =============================================================================
// TEAM STORE (engine.TeamStore interface)
// =============================================================================

// AddTeamMember schedules an employee to a team on a date.
func (s *Store) AddTeamMember(ctx context.Context, teamID engine.TeamID, employeeID engine.EmployeeID, date engine.WorkDate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO team_members (team_id, employee_id, work_date)
		VALUES (?, ?, ?)
		ON CONFLICT(team_id, employee_id, work_date) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, teamID, employeeID, date.String())
	return err
}

// ListTeamMembers returns the employees scheduled to the team on a date.
func (s *Store) ListTeamMembers(ctx context.Context, teamID engine.TeamID, date engine.WorkDate) ([]engine.EmployeeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_id FROM team_members WHERE team_id = ? AND work_date = ? ORDER BY employee_id",
		teamID, date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query team members: %w", err)
	}
	defer rows.Close()

	var members []engine.EmployeeID
	for rows.Next() {
		var id engine.EmployeeID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"segments", "daily_aggregates", "shifts", "holidays", "team_members"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
