package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/evaluation-engine/compensation"
	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func completed(id string, person generic.PersonID, week period.WeekID) evaluation.Header {
	return evaluation.Header{ID: id, PersonID: person, EvaluatorID: "lead-1", Week: week, Status: evaluation.StatusCompleted}
}

// =============================================================================
// PERSONS
// =============================================================================

func TestPersons(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	retired := generic.NewTimePoint(2025, time.February, 28)
	p := generic.Person{
		ID: "eng-1", Name: "Ada", Role: generic.RoleEngineer, Tier: 4,
		EmploymentType: generic.EmploymentPartTime, FTE: 0.5, IsEvaluated: true,
		CreatedAt: generic.NewTimePoint(2024, time.January, 8), RetiredAt: &retired,
	}
	require.NoError(t, store.SavePerson(ctx, p))

	got, err := store.GetPerson(ctx, "eng-1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// Upsert
	p.Name = "Ada L."
	p.RetiredAt = nil
	require.NoError(t, store.SavePerson(ctx, p))
	all, err := store.ListPersons(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Ada L.", all[0].Name)
	assert.Nil(t, all[0].RetiredAt)

	require.NoError(t, store.DeletePerson(ctx, "eng-1"))
	_, err = store.GetPerson(ctx, "eng-1")
	assert.ErrorIs(t, err, generic.ErrPersonNotFound)
	assert.ErrorIs(t, store.DeletePerson(ctx, "eng-1"), generic.ErrPersonNotFound)

	assert.ErrorIs(t, store.SavePerson(ctx, generic.Person{ID: "x", Role: "CEO"}), generic.ErrInvalidPerson)
}

// =============================================================================
// EVALUATIONS
// =============================================================================

func TestEvaluations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	w10 := period.WeekID{Year: 2025, Week: 10}
	w11 := period.WeekID{Year: 2025, Week: 11}
	w12 := period.WeekID{Year: 2025, Week: 12}
	rate := 5.0

	records := []evaluation.AxisEvaluation{
		evaluation.Quality{Header: completed("q1", "eng-1", w10), QualityScore: 80, TestCoverage: 70},
		evaluation.Penalty{Header: completed("p1", "eng-1", w10), Rate: &rate, Reason: "late"},
		evaluation.Bonus{Header: completed("b1", "eng-1", w11), Points: 15, Reason: "launch"},
		evaluation.Satisfaction{Header: evaluation.Header{
			ID: "s1", PersonID: "eng-1", EvaluatorID: "pm-1", Week: w12,
			Status: evaluation.StatusPending, DueDate: generic.NewTimePoint(2025, time.March, 21),
		}},
	}
	require.NoError(t, store.SaveEvaluations(ctx, records))

	// GIVEN: records across three weeks
	// WHEN: loading two of them
	got, err := store.LoadEvaluations(ctx, []period.WeekID{w10, w11})
	require.NoError(t, err)

	// THEN: records come back typed and in insertion order
	require.Equal(t, records[:3], got)

	latest, ok, err := store.LatestWeek(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, w11, latest, "pending records do not count as data")

	pending, err := store.PendingEvaluations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s1", evaluation.HeaderOf(pending[0]).ID)

	// Replace keeps a single row
	marked := evaluation.HeaderOf(pending[0])
	marked.Status = evaluation.StatusOverdue
	require.NoError(t, store.SaveEvaluation(ctx, evaluation.WithHeader(pending[0], marked)))
	pending, err = store.PendingEvaluations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	s1, err := store.GetEvaluation(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, evaluation.StatusOverdue, evaluation.HeaderOf(s1).Status)

	_, err = store.GetEvaluation(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrEvaluationNotFound)
}

func TestSaveEvaluations_IsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	w10 := period.WeekID{Year: 2025, Week: 10}

	err := store.SaveEvaluations(ctx, []evaluation.AxisEvaluation{
		evaluation.Quality{Header: completed("ok", "eng-1", w10), QualityScore: 80},
		evaluation.Quality{Header: completed("", "eng-1", w10), QualityScore: 80},
	})
	require.Error(t, err)

	got, err := store.LoadEvaluations(ctx, []period.WeekID{w10})
	require.NoError(t, err)
	assert.Empty(t, got, "the first record must be rolled back")

	_, ok, err := store.LatestWeek(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_KeepsInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConfig(ctx, compensation.ConfigSet{
		BaseSalaries: []compensation.BaseSalaryRow{
			{ID: "b-old", Role: generic.RoleEngineer, Tier: 3, EffectiveMonth: "2025-01", BaseSalary: decimal.NewFromInt(300000)},
		},
		Allowances: []compensation.AllowanceRow{
			{ID: "a1", EmploymentType: generic.EmploymentEmployee, EffectiveMonth: "2024-10", Allowance: decimal.RequireFromString("20000.50")},
		},
	}))
	require.NoError(t, store.SaveConfig(ctx, compensation.ConfigSet{
		BaseSalaries: []compensation.BaseSalaryRow{
			{ID: "b-new", Role: generic.RoleEngineer, Tier: 3, EffectiveMonth: "2025-01", BaseSalary: decimal.NewFromInt(320000)},
		},
		Incentives: []compensation.IncentiveRow{
			{ID: "i1", Role: generic.RoleEngineer, EffectiveMonth: "2025-01", MinIncentive: decimal.Zero, MaxIncentive: decimal.NewFromInt(100000)},
		},
	}))

	set, err := store.LoadConfig(ctx)
	require.NoError(t, err)
	require.Len(t, set.BaseSalaries, 2)
	assert.Equal(t, "b-old", set.BaseSalaries[0].ID)
	assert.Equal(t, "b-new", set.BaseSalaries[1].ID)
	assert.Equal(t, "20000.5", set.Allowances[0].Allowance.String())

	// The row stored later wins a same-month tie
	base, err := set.BaseSalary(generic.RoleEngineer, 3, generic.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	assert.Equal(t, "320000", base.String())

	err = store.SaveConfig(ctx, compensation.ConfigSet{
		Incentives: []compensation.IncentiveRow{{ID: "bad", Role: generic.RoleCorp, EffectiveMonth: "2025-1"}},
	})
	assert.ErrorIs(t, err, generic.ErrConfigParse)
}

// =============================================================================
// RUNS
// =============================================================================

func TestRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	march := generic.Month{Year: 2025, Month: time.March}
	person := generic.Person{ID: "eng-1", Role: generic.RoleEngineer, Tier: 3, EmploymentType: generic.EmploymentEmployee, IsEvaluated: true}
	run := engine.Run{
		ID: "run-1", Month: march, Curve: compensation.CurveLinearRank,
		CreatedAt: time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC),
		Lines: []engine.Line{{
			Person:      person,
			TotalPoints: 719995,
			Compensation: compensation.Compensation{
				PersonID: "eng-1", Month: march, Evaluated: true,
				BaseSalary: decimal.NewFromInt(320000), Incentive: decimal.NewFromInt(50000),
				Allowance: decimal.NewFromInt(20000), UnitPrice: decimal.NewFromInt(390000),
				Net: decimal.NewFromInt(351000), Rank: 1, CohortSize: 1, Deviation: 50, Position: 0.5,
			},
		}},
		Skipped:  []generic.PersonID{"eng-2"},
		TotalNet: decimal.NewFromInt(351000),
	}
	require.NoError(t, store.SaveRun(ctx, run))
	assert.Error(t, store.SaveRun(ctx, run), "run ids are unique")

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Month, got.Month)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.Skipped, got.Skipped)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, person, got.Lines[0].Person)
	assert.Equal(t, "351000", got.Lines[0].Compensation.Net.String())
	assert.Equal(t, 0.5, got.Lines[0].Compensation.Position)

	later := run
	later.ID = "run-2"
	later.CreatedAt = run.CreatedAt.Add(time.Hour)
	later.Lines = nil
	require.NoError(t, store.SaveRun(ctx, later))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Empty(t, runs[1].Lines)

	_, err = store.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrRunNotFound)
}

func TestReset(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SavePerson(ctx, generic.Person{ID: "a", Role: generic.RoleCorp}))
	require.NoError(t, store.Reset(ctx))

	persons, err := store.ListPersons(ctx)
	require.NoError(t, err)
	assert.Empty(t, persons)
}
