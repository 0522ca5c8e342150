package engine

// =============================================================================
// HOLIDAY SET - Legal-holiday date lookup
// =============================================================================

// HolidaySet is a read-only lookup of calendar dates flagged as legal
// holidays. Loaded fresh per engine invocation; no caching contract.
type HolidaySet map[WorkDate]struct{}

func NewHolidaySet(dates ...WorkDate) HolidaySet {
	hs := make(HolidaySet, len(dates))
	for _, d := range dates {
		hs[d] = struct{}{}
	}
	return hs
}

func (hs HolidaySet) Contains(d WorkDate) bool {
	_, ok := hs[d]
	return ok
}

func (hs HolidaySet) Add(d WorkDate) {
	hs[d] = struct{}{}
}
