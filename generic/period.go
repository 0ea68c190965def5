package generic

// =============================================================================
// PERIOD - Inclusive date range an evaluation bucket covers
// =============================================================================

// Period defines the calendar boundary of an evaluation bucket.
// Both ends are inclusive.
//
// Examples:
//   - ISO week 2025-W10: Mar 3 - Mar 9
//   - March 2025 (majority weeks): Mar 3 - Mar 30
//   - FirstHalf 2025: Jan 1 - Jun 29 (clipped to in-month days)
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Overlaps returns true if the two periods share at least one day.
func (p Period) Overlaps(o Period) bool {
	return !p.End.Before(o.Start) && !o.End.Before(p.Start)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// Validate rejects a period whose end lies before its start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return &InvalidPeriodError{Field: "period", Value: p.String()}
	}
	return nil
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
