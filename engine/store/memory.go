// Package store provides an in-memory implementation of the engine's
// persistence interfaces, for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// MEMORY STORE - Implements every engine store interface
// =============================================================================

type dayKey struct {
	EmployeeID engine.EmployeeID
	Date       engine.WorkDate
}

type Memory struct {
	mu         sync.RWMutex
	shifts     map[engine.ShiftID]engine.ShiftInterval
	segments   map[engine.ShiftID][]engine.Segment
	aggregates map[dayKey]engine.DailyAggregate
	holidays   map[engine.WorkDate]struct{}
	teams      map[engine.TeamID][]engine.EmployeeID

	// UpsertErr, when set, fails the next aggregate upsert. Lets tests
	// exercise per-day persistence failure without a real outage.
	UpsertErr error
}

func NewMemory() *Memory {
	return &Memory{
		shifts:     make(map[engine.ShiftID]engine.ShiftInterval),
		segments:   make(map[engine.ShiftID][]engine.Segment),
		aggregates: make(map[dayKey]engine.DailyAggregate),
		holidays:   make(map[engine.WorkDate]struct{}),
		teams:      make(map[engine.TeamID][]engine.EmployeeID),
	}
}

// =============================================================================
// SHIFT STORE
// =============================================================================

func (m *Memory) SaveShift(_ context.Context, shift engine.ShiftInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[shift.ID] = shift
	return nil
}

func (m *Memory) GetShift(_ context.Context, id engine.ShiftID) (*engine.ShiftInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	shift, ok := m.shifts[id]
	if !ok {
		return nil, engine.ErrShiftNotFound
	}
	return &shift, nil
}

func (m *Memory) ListShiftsByDay(_ context.Context, employeeID engine.EmployeeID, date engine.WorkDate) ([]engine.ShiftInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var shifts []engine.ShiftInterval
	for _, shift := range m.shifts {
		if shift.EmployeeID == employeeID && engine.DateOf(shift.Start) == date {
			shifts = append(shifts, shift)
		}
	}
	sort.Slice(shifts, func(i, j int) bool { return shifts[i].Start.Before(shifts[j].Start) })
	return shifts, nil
}

func (m *Memory) DeleteShift(_ context.Context, id engine.ShiftID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shifts, id)
	return nil
}

// =============================================================================
// SEGMENT STORE
// =============================================================================

func (m *Memory) ReplaceForShift(_ context.Context, shiftID engine.ShiftID, segments []engine.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments[shiftID] = append([]engine.Segment(nil), segments...)
	return nil
}

func (m *Memory) ListByShift(_ context.Context, shiftID engine.ShiftID) ([]engine.Segment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := append([]engine.Segment(nil), m.segments[shiftID]...)
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (m *Memory) ListForDay(_ context.Context, employeeID engine.EmployeeID, date engine.WorkDate) ([]engine.Segment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Segment
	for _, segs := range m.segments {
		for _, seg := range segs {
			if seg.EmployeeID == employeeID && seg.WorkDate == date {
				result = append(result, seg)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (m *Memory) DeleteByShift(_ context.Context, shiftID engine.ShiftID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.segments, shiftID)
	return nil
}

// =============================================================================
// AGGREGATE STORE
// =============================================================================

func (m *Memory) UpsertAggregate(_ context.Context, a engine.DailyAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpsertErr != nil {
		err := m.UpsertErr
		m.UpsertErr = nil
		return err
	}
	m.aggregates[dayKey{EmployeeID: a.EmployeeID, Date: a.WorkDate}] = a
	return nil
}

func (m *Memory) GetAggregate(_ context.Context, employeeID engine.EmployeeID, date engine.WorkDate) (*engine.DailyAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.aggregates[dayKey{EmployeeID: employeeID, Date: date}]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListAggregates(_ context.Context, employeeID engine.EmployeeID, from, to engine.WorkDate) ([]engine.DailyAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.DailyAggregate
	for k, a := range m.aggregates {
		if k.EmployeeID == employeeID && !k.Date.Before(from) && !k.Date.After(to) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].WorkDate.Before(result[j].WorkDate) })
	return result, nil
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func (m *Memory) AddHoliday(date engine.WorkDate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[date] = struct{}{}
}

func (m *Memory) LoadHolidays(_ context.Context, from, to engine.WorkDate) (engine.HolidaySet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hs := engine.NewHolidaySet()
	for d := range m.holidays {
		if !d.Before(from) && !d.After(to) {
			hs.Add(d)
		}
	}
	return hs, nil
}

// =============================================================================
// TEAM STORE
// =============================================================================

func (m *Memory) SetTeam(teamID engine.TeamID, members ...engine.EmployeeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[teamID] = members
}

func (m *Memory) ListTeamMembers(_ context.Context, teamID engine.TeamID, _ engine.WorkDate) ([]engine.EmployeeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]engine.EmployeeID(nil), m.teams[teamID]...), nil
}
