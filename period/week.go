package period

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/warp/evaluation-engine/generic"
)

// =============================================================================
// WEEK ID - ISO-8601 week identifier "YYYY-Www"
// =============================================================================

// WeekID identifies an ISO week. Year is the ISO week-numbering year,
// which differs from the calendar year around New Year.
type WeekID struct {
	Year int
	Week int
}

var weekPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

func (w WeekID) String() string { return fmt.Sprintf("%04d-W%02d", w.Year, w.Week) }

// IsZero reports whether the id is unset.
func (w WeekID) IsZero() bool { return w.Year == 0 && w.Week == 0 }

// Compare orders week ids chronologically.
func (w WeekID) Compare(o WeekID) int {
	switch {
	case w.Year != o.Year:
		if w.Year < o.Year {
			return -1
		}
		return 1
	case w.Week < o.Week:
		return -1
	case w.Week > o.Week:
		return 1
	}
	return 0
}

func (w WeekID) Before(o WeekID) bool { return w.Compare(o) < 0 }

// MarshalText renders the id as "YYYY-Www".
func (w WeekID) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// UnmarshalText parses "YYYY-Www".
func (w *WeekID) UnmarshalText(b []byte) error {
	id, err := ParseWeekID(string(b))
	if err != nil {
		return err
	}
	*w = id
	return nil
}

// ParseWeekID parses and range-checks "YYYY-Www".
func ParseWeekID(s string) (WeekID, error) {
	m := weekPattern.FindStringSubmatch(s)
	if m == nil {
		return WeekID{}, &generic.InvalidPeriodError{Field: "week", Value: s}
	}
	year, _ := strconv.Atoi(m[1])
	week, _ := strconv.Atoi(m[2])
	id := WeekID{Year: year, Week: week}
	if err := id.Validate(); err != nil {
		return WeekID{}, err
	}
	return id, nil
}

// Validate checks the year range and that the week exists in that ISO year.
func (w WeekID) Validate() error {
	if err := validYear(w.Year); err != nil {
		return err
	}
	if w.Week < 1 || w.Week > WeeksInYear(w.Year) {
		return &generic.InvalidPeriodError{Field: "week", Value: w.String()}
	}
	return nil
}

// WeekOf returns the ISO week containing the day.
func WeekOf(tp generic.TimePoint) WeekID {
	y, w := tp.ISOWeek()
	return WeekID{Year: y, Week: w}
}

// =============================================================================
// ISO WEEK ARITHMETIC
// =============================================================================

// WeeksInYear returns 52 or 53. December 28 always lies in the last
// ISO week of its year.
func WeeksInYear(year int) int {
	_, w := generic.NewTimePoint(year, time.December, 28).ISOWeek()
	return w
}

// WeekStart returns the Monday of the given ISO week. Week 1 is the week
// containing the year's first Thursday, equivalently the week containing
// January 4th.
func WeekStart(year, week int) (generic.TimePoint, error) {
	id := WeekID{Year: year, Week: week}
	if err := id.Validate(); err != nil {
		return generic.TimePoint{}, err
	}
	return id.Monday(), nil
}

// Monday returns the first day of a validated week.
func (w WeekID) Monday() generic.TimePoint {
	jan4 := generic.NewTimePoint(w.Year, time.January, 4)
	offset := (int(jan4.Weekday()) + 6) % 7 // days since Monday
	return jan4.AddDays(-offset + (w.Week-1)*7)
}

// Days returns the seven days Monday..Sunday of the week.
func (w WeekID) Days() []generic.TimePoint {
	monday := w.Monday()
	days := make([]generic.TimePoint, 7)
	for i := range days {
		days[i] = monday.AddDays(i)
	}
	return days
}

// Next returns the following ISO week.
func (w WeekID) Next() WeekID {
	return WeekOf(w.Monday().AddDays(7))
}

func validYear(year int) error {
	if year < generic.MinYear || year > generic.MaxYear {
		return &generic.InvalidPeriodError{Field: "year", Value: strconv.Itoa(year)}
	}
	return nil
}
