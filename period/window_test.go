package period_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

func weeks(year int, nums ...int) []period.WeekID {
	ids := make([]period.WeekID, len(nums))
	for i, n := range nums {
		ids[i] = period.WeekID{Year: year, Week: n}
	}
	return ids
}

// =============================================================================
// ISO WEEK TESTS
// =============================================================================

func TestWeekStart_FirstWeekContainsFirstThursday(t *testing.T) {
	// 2025-01-01 is a Wednesday, so week 1 starts on Monday 2024-12-30.
	start, err := period.WeekStart(2025, 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-30", start.String())

	// 2026-01-01 is a Thursday, so week 1 starts on Monday 2025-12-29.
	start, err = period.WeekStart(2026, 1)
	require.NoError(t, err)
	assert.Equal(t, "2025-12-29", start.String())

	// 2021-01-01 is a Friday, so week 1 starts on Monday 2021-01-04.
	start, err = period.WeekStart(2021, 1)
	require.NoError(t, err)
	assert.Equal(t, "2021-01-04", start.String())
}

func TestWeekStart_RoundTripsWithWeekOf(t *testing.T) {
	for _, year := range []int{2019, 2020, 2024, 2025, 2026} {
		for w := 1; w <= period.WeeksInYear(year); w++ {
			start, err := period.WeekStart(year, w)
			require.NoError(t, err)
			assert.Equal(t, time.Monday, start.Weekday())
			assert.Equal(t, period.WeekID{Year: year, Week: w}, period.WeekOf(start))
		}
	}
}

func TestWeekStart_OutOfRange(t *testing.T) {
	_, err := period.WeekStart(2025, 53) // 2025 has 52 weeks
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = period.WeekStart(2020, 53) // 2020 has 53 weeks
	assert.NoError(t, err)

	_, err = period.WeekStart(2025, 0)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = period.WeekStart(10000, 1)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestParseWeekID(t *testing.T) {
	id, err := period.ParseWeekID("2025-W09")
	require.NoError(t, err)
	assert.Equal(t, period.WeekID{Year: 2025, Week: 9}, id)
	assert.Equal(t, "2025-W09", id.String())

	for _, bad := range []string{"2025-9", "2025-W9", "2025W09", "2025-W60", ""} {
		_, err := period.ParseWeekID(bad)
		assert.ErrorIs(t, err, generic.ErrInvalidPeriod, bad)
	}
}

// =============================================================================
// MAJORITY-WEEK RULE TESTS
// =============================================================================

func TestMonthWindow_January2025(t *testing.T) {
	w, err := period.MonthWindow(2025, time.January)
	require.NoError(t, err)

	assert.Equal(t, weeks(2025, 1, 2, 3, 4, 5), w.WeekIDs())
	assert.Equal(t, "2025-01", w.Label)
	assert.Equal(t, day(2025, time.January, 1), w.Start)
	assert.Equal(t, day(2025, time.January, 31), w.End)

	// Week 1 straddles New Year: only its in-month days are listed.
	require.Len(t, w.Weeks[0].Dates, 5)
	assert.Equal(t, "2025-01-01", w.Weeks[0].Dates[0].String())
	assert.Equal(t, "2025-01-05", w.Weeks[0].Dates[4].String())
}

func TestMonthWindow_March2025_DropsMinorityWeeks(t *testing.T) {
	// March 1 is a Saturday (2 days of W09), March 31 a Monday (1 day of W14).
	w, err := period.MonthWindow(2025, time.March)
	require.NoError(t, err)

	assert.Equal(t, weeks(2025, 10, 11, 12, 13), w.WeekIDs())
	assert.Equal(t, day(2025, time.March, 3), w.Start)
	assert.Equal(t, day(2025, time.March, 30), w.End)
}

func TestMonthWindow_ExactlyFourDaysBelongs(t *testing.T) {
	// 2025-05-01 is a Thursday: W18 has Thu..Sun (4 days) in May.
	w, err := period.MonthWindow(2025, time.May)
	require.NoError(t, err)

	assert.True(t, w.Contains(period.WeekID{Year: 2025, Week: 18}))
	assert.Len(t, w.Weeks[0].Dates, 4)
	assert.Equal(t, day(2025, time.May, 1), w.Start)

	april, err := period.MonthWindow(2025, time.April)
	require.NoError(t, err)
	assert.False(t, april.Contains(period.WeekID{Year: 2025, Week: 18}))
}

func TestMonthWindow_ThreeDaysDoesNotBelong(t *testing.T) {
	// 2025-08-01 is a Friday: W31 has only Fri..Sun (3 days) in August.
	aug, err := period.MonthWindow(2025, time.August)
	require.NoError(t, err)
	assert.False(t, aug.Contains(period.WeekID{Year: 2025, Week: 31}))
	assert.Equal(t, day(2025, time.August, 4), aug.Start)

	jul, err := period.MonthWindow(2025, time.July)
	require.NoError(t, err)
	assert.True(t, jul.Contains(period.WeekID{Year: 2025, Week: 31}))
	assert.Equal(t, day(2025, time.July, 31), jul.End)
}

func TestMonthWindow_YearBoundaryUsesISOYear(t *testing.T) {
	// Mon 2025-12-29 .. Sun 2026-01-04 is 2026-W01 with 4 days in January.
	jan, err := period.MonthWindow(2026, time.January)
	require.NoError(t, err)
	assert.Equal(t, period.WeekID{Year: 2026, Week: 1}, jan.Weeks[0].ID)
	assert.Equal(t, day(2026, time.January, 1), jan.Start)

	dec, err := period.MonthWindow(2025, time.December)
	require.NoError(t, err)
	assert.Equal(t, weeks(2025, 49, 50, 51, 52), dec.WeekIDs())
	assert.Equal(t, day(2025, time.December, 28), dec.End)
}

func TestMonthWindow_EveryWeekBelongsToExactlyOneMonth(t *testing.T) {
	seen := make(map[period.WeekID]time.Month)
	for m := time.January; m <= time.December; m++ {
		w, err := period.MonthWindow(2025, m)
		require.NoError(t, err)
		for _, id := range w.WeekIDs() {
			prev, dup := seen[id]
			assert.False(t, dup, "week %s in both %s and %s", id, prev, m)
			seen[id] = m
		}
	}
	assert.Len(t, seen, period.WeeksInYear(2025))
}

func TestMonthWindow_InvalidInput(t *testing.T) {
	_, err := period.MonthWindow(2025, 13)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = period.MonthWindow(2025, 0)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = period.MonthWindow(0, time.March)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	var perr *generic.InvalidPeriodError
	_, err = period.MonthWindow(2025, 13)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "month", perr.Field)
}

// =============================================================================
// HALF-YEAR TESTS
// =============================================================================

func TestHalfWindow_FirstHalf2025(t *testing.T) {
	w, err := period.HalfWindow(2025, period.FirstHalf)
	require.NoError(t, err)

	ids := w.WeekIDs()
	require.Len(t, ids, 26)
	assert.Equal(t, period.WeekID{Year: 2025, Week: 1}, ids[0])
	assert.Equal(t, period.WeekID{Year: 2025, Week: 26}, ids[25])
	assert.Equal(t, day(2025, time.January, 1), w.Start)
	assert.Equal(t, day(2025, time.June, 29), w.End)
	assert.Equal(t, "2025-FirstHalf", w.Label)
}

func TestHalfWindow_IsUnionOfMonths(t *testing.T) {
	w, err := period.HalfWindow(2025, period.SecondHalf)
	require.NoError(t, err)

	var union []period.WeekID
	for m := time.July; m <= time.December; m++ {
		mw, err := period.MonthWindow(2025, m)
		require.NoError(t, err)
		union = append(union, mw.WeekIDs()...)
	}
	assert.Equal(t, union, w.WeekIDs())

	for i := 1; i < len(union); i++ {
		assert.True(t, union[i-1].Before(union[i]))
	}
}

func TestHalfWindow_InvalidHalf(t *testing.T) {
	_, err := period.HalfWindow(2025, period.Half("ThirdHalf"))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

// =============================================================================
// RESOLVE AND DEFAULTS
// =============================================================================

func TestResolve_Week(t *testing.T) {
	w, err := period.Resolve(period.KindWeek, period.Reference{Week: period.WeekID{Year: 2025, Week: 10}})
	require.NoError(t, err)
	assert.Equal(t, "2025-W10", w.Label)
	assert.Equal(t, day(2025, time.March, 3), w.Start)
	assert.Equal(t, day(2025, time.March, 9), w.End)
	assert.Len(t, w.Weeks[0].Dates, 7)
}

func TestResolve_UnknownKind(t *testing.T) {
	_, err := period.Resolve(period.Kind("quarter"), period.Reference{})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestDefaultReference_WeekUsesLatestAvailableWeek(t *testing.T) {
	now := time.Date(2025, time.October, 18, 9, 0, 0, 0, time.UTC)
	latest := period.WeekID{Year: 2025, Week: 30}

	ref, err := period.DefaultReference(period.KindWeek, now, &latest)
	require.NoError(t, err)
	assert.Equal(t, latest, ref.Week)

	ref, err = period.DefaultReference(period.KindWeek, now, nil)
	require.NoError(t, err)
	assert.Equal(t, period.WeekID{Year: 2025, Week: 42}, ref.Week)
}

func TestDefaultReference_MonthIsPreviousMonth(t *testing.T) {
	ref, err := period.DefaultReference(period.KindMonth, time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, 2024, ref.Year)
	assert.Equal(t, time.December, ref.Month)
}

func TestDefaultReference_Half(t *testing.T) {
	ref, err := period.DefaultReference(period.KindHalf, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, period.Reference{Year: 2025, Half: period.FirstHalf}, ref)

	ref, err = period.DefaultReference(period.KindHalf, time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, period.Reference{Year: 2024, Half: period.SecondHalf}, ref)
}
