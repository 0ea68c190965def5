package generic

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// =============================================================================
// MONTH - YYYY-MM calendar month
// =============================================================================

// Month identifies a calendar month. Effective months of configuration
// rows and payroll target months are both Months.
type Month struct {
	Year  int
	Month time.Month
}

const (
	MinYear = 1
	MaxYear = 9999
)

var monthPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// NewMonth validates year and month ranges.
func NewMonth(year int, month time.Month) (Month, error) {
	if year < MinYear || year > MaxYear {
		return Month{}, &InvalidPeriodError{Field: "year", Value: strconv.Itoa(year)}
	}
	if month < time.January || month > time.December {
		return Month{}, &InvalidPeriodError{Field: "month", Value: strconv.Itoa(int(month))}
	}
	return Month{Year: year, Month: month}, nil
}

// ParseMonth parses a strict YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	m := monthPattern.FindStringSubmatch(s)
	if m == nil {
		return Month{}, &InvalidPeriodError{Field: "month", Value: s}
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	return NewMonth(year, time.Month(month))
}

// MonthOf returns the month containing the time point.
func MonthOf(tp TimePoint) Month {
	return Month{Year: tp.Year(), Month: tp.Month()}
}

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// Compare returns -1, 0 or +1.
func (m Month) Compare(o Month) int {
	switch {
	case m.Year < o.Year:
		return -1
	case m.Year > o.Year:
		return 1
	case m.Month < o.Month:
		return -1
	case m.Month > o.Month:
		return 1
	}
	return 0
}

func (m Month) Before(o Month) bool        { return m.Compare(o) < 0 }
func (m Month) After(o Month) bool         { return m.Compare(o) > 0 }
func (m Month) BeforeOrEqual(o Month) bool { return m.Compare(o) <= 0 }
func (m Month) IsZero() bool               { return m.Year == 0 && m.Month == 0 }

// Previous returns the calendar month before m.
func (m Month) Previous() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// Next returns the calendar month after m.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Period returns the first..last day of the month.
func (m Month) Period() Period {
	return Period{Start: StartOfMonth(m.Year, m.Month), End: EndOfMonth(m.Year, m.Month)}
}
