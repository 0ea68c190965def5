/*
Package period resolves evaluation periods into ISO-week bucket sets.

PURPOSE:
  Evaluations are recorded per ISO week. Months and half-years are
  therefore defined as sets of weeks, not as raw date ranges. This package
  is the single place that decides which weeks belong to which period, so
  that aggregation, ranking and compensation all see the same buckets.

MAJORITY-WEEK RULE:
  A week spanning a month boundary belongs to the month holding at least
  4 of its 7 days. Every ISO week therefore belongs to exactly one month.

    Mon 2025-03-31 .. Sun 2025-04-06  -> 1 day in March, 6 in April -> April
    Mon 2025-09-29 .. Sun 2025-10-05  -> 2 days in Sept, 5 in Oct   -> October

HALF-YEARS:
  FirstHalf  = January..June
  SecondHalf = July..December
  A half is the sorted, deduplicated union of its six months' weeks.

DEFAULTS:
  The resolver never reads storage or the wall clock on its own. Callers
  pass "now" and the latest week for which evaluation data exists; see
  DefaultReference.

SEE ALSO:
  - week.go: ISO week arithmetic
  - evaluation/: Consumes Window.WeekIDs()
*/
package period

import (
	"sort"
	"strconv"
	"time"

	"github.com/warp/evaluation-engine/generic"
)

// =============================================================================
// KINDS AND REFERENCES
// =============================================================================

type Kind string

const (
	KindWeek  Kind = "week"
	KindMonth Kind = "month"
	KindHalf  Kind = "half"
)

// ParseKind accepts week, month or half.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindWeek, KindMonth, KindHalf:
		return k, nil
	}
	return "", &generic.InvalidPeriodError{Field: "kind", Value: s}
}

type Half string

const (
	FirstHalf  Half = "FirstHalf"
	SecondHalf Half = "SecondHalf"
)

// ParseHalf accepts FirstHalf/SecondHalf or the short forms H1/H2.
func ParseHalf(s string) (Half, error) {
	switch s {
	case string(FirstHalf), "H1", "1":
		return FirstHalf, nil
	case string(SecondHalf), "H2", "2":
		return SecondHalf, nil
	}
	return "", &generic.InvalidPeriodError{Field: "half", Value: s}
}

// Months returns the six calendar months of the half.
func (h Half) Months() []time.Month {
	first := time.January
	if h == SecondHalf {
		first = time.July
	}
	months := make([]time.Month, 6)
	for i := range months {
		months[i] = first + time.Month(i)
	}
	return months
}

// Reference selects one concrete period of a kind. Only the fields
// relevant to the kind are read.
type Reference struct {
	Year  int
	Month time.Month // KindMonth
	Half  Half       // KindHalf
	Week  WeekID     // KindWeek
}

// =============================================================================
// WINDOW - The resolved period
// =============================================================================

// WeekSlice is one qualifying week and its days that fall inside the
// period. For week periods all seven days are listed.
type WeekSlice struct {
	ID    WeekID
	Dates []generic.TimePoint
}

// Window is the canonical bucket set of a period.
type Window struct {
	Kind  Kind
	Label string // "2025-W10", "2025-03", "2025-FirstHalf"
	Weeks []WeekSlice
	Start generic.TimePoint
	End   generic.TimePoint
}

// WeekIDs returns the ordered week identifiers of the window.
func (w Window) WeekIDs() []WeekID {
	ids := make([]WeekID, len(w.Weeks))
	for i, s := range w.Weeks {
		ids[i] = s.ID
	}
	return ids
}

// Contains reports whether the week belongs to the window.
func (w Window) Contains(id WeekID) bool {
	for _, s := range w.Weeks {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Period returns the [Start, End] date range of the window.
func (w Window) Period() generic.Period {
	return generic.Period{Start: w.Start, End: w.End}
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve maps a kind and reference to its window.
func Resolve(kind Kind, ref Reference) (Window, error) {
	switch kind {
	case KindWeek:
		return WeekWindow(ref.Week)
	case KindMonth:
		return MonthWindow(ref.Year, ref.Month)
	case KindHalf:
		return HalfWindow(ref.Year, ref.Half)
	}
	return Window{}, &generic.InvalidPeriodError{Field: "kind", Value: string(kind)}
}

// WeekWindow returns the single-week window.
func WeekWindow(id WeekID) (Window, error) {
	if err := id.Validate(); err != nil {
		return Window{}, err
	}
	days := id.Days()
	return Window{
		Kind:  KindWeek,
		Label: id.String(),
		Weeks: []WeekSlice{{ID: id, Dates: days}},
		Start: days[0],
		End:   days[6],
	}, nil
}

// MonthWindow applies the majority-week rule to one calendar month.
func MonthWindow(year int, month time.Month) (Window, error) {
	m, err := generic.NewMonth(year, month)
	if err != nil {
		return Window{}, err
	}

	first := generic.StartOfMonth(year, month)
	last := generic.EndOfMonth(year, month)

	// Monday of the week containing the 1st.
	monday := first.AddDays(-((int(first.Weekday()) + 6) % 7))

	w := Window{Kind: KindMonth, Label: m.String()}
	for ; monday.BeforeOrEqual(last); monday = monday.AddDays(7) {
		var inMonth []generic.TimePoint
		for i := 0; i < 7; i++ {
			d := monday.AddDays(i)
			if d.Month() == month && d.Year() == year {
				inMonth = append(inMonth, d)
			}
		}
		if len(inMonth) < 4 {
			continue
		}
		w.Weeks = append(w.Weeks, WeekSlice{ID: WeekOf(monday), Dates: inMonth})
	}

	// Every month holds at least four full majority weeks, so Weeks is
	// never empty here.
	w.Start = w.Weeks[0].Dates[0]
	lastWeek := w.Weeks[len(w.Weeks)-1]
	w.End = lastWeek.Dates[len(lastWeek.Dates)-1]
	return w, nil
}

// HalfWindow unions the majority weeks of the half's six months.
func HalfWindow(year int, half Half) (Window, error) {
	if err := validYear(year); err != nil {
		return Window{}, err
	}
	if half != FirstHalf && half != SecondHalf {
		return Window{}, &generic.InvalidPeriodError{Field: "half", Value: string(half)}
	}

	byID := make(map[WeekID]*WeekSlice)
	var order []WeekID
	for _, month := range half.Months() {
		mw, err := MonthWindow(year, month)
		if err != nil {
			return Window{}, err
		}
		for _, s := range mw.Weeks {
			if existing, ok := byID[s.ID]; ok {
				existing.Dates = append(existing.Dates, s.Dates...)
				continue
			}
			slice := WeekSlice{ID: s.ID, Dates: append([]generic.TimePoint(nil), s.Dates...)}
			byID[s.ID] = &slice
			order = append(order, s.ID)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	w := Window{Kind: KindHalf, Label: strconv.Itoa(year) + "-" + string(half)}
	for _, id := range order {
		w.Weeks = append(w.Weeks, *byID[id])
	}
	w.Start = w.Weeks[0].Dates[0]
	lastWeek := w.Weeks[len(w.Weeks)-1]
	w.End = lastWeek.Dates[len(lastWeek.Dates)-1]
	return w, nil
}

// =============================================================================
// DEFAULTS - "current" period for each kind
// =============================================================================

// DefaultReference picks the period a caller means when it names only a kind.
//
//   - week:  the latest week for which evaluation data exists. Historical
//     and backfilled data are expected, so this is an explicit input and
//     not the calendar week of now. Without any data the week containing
//     now is used.
//   - month: the calendar month before now.
//   - half:  FirstHalf of the current year from July on, otherwise
//     SecondHalf of the previous year.
func DefaultReference(kind Kind, now time.Time, latestWeek *WeekID) (Reference, error) {
	today := generic.DayOf(now)
	switch kind {
	case KindWeek:
		if latestWeek != nil && !latestWeek.IsZero() {
			return Reference{Year: latestWeek.Year, Week: *latestWeek}, nil
		}
		id := WeekOf(today)
		return Reference{Year: id.Year, Week: id}, nil
	case KindMonth:
		prev := generic.MonthOf(today).Previous()
		return Reference{Year: prev.Year, Month: prev.Month}, nil
	case KindHalf:
		if today.Month() >= time.July {
			return Reference{Year: today.Year(), Half: FirstHalf}, nil
		}
		return Reference{Year: today.Year() - 1, Half: SecondHalf}, nil
	}
	return Reference{}, &generic.InvalidPeriodError{Field: "kind", Value: string(kind)}
}

// ResolveDefault is DefaultReference followed by Resolve.
func ResolveDefault(kind Kind, now time.Time, latestWeek *WeekID) (Window, error) {
	ref, err := DefaultReference(kind, now, latestWeek)
	if err != nil {
		return Window{}, err
	}
	return Resolve(kind, ref)
}
