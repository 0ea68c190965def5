package factory_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/factory"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

// =============================================================================
// EVALUATION FACTORY TESTS
// =============================================================================

func TestParseEvaluation_Quality(t *testing.T) {
	f := factory.NewEvaluationFactory()

	rec, err := f.ParseEvaluation(`{
		"evaluation_type": "quality",
		"person_id": "eng-1",
		"evaluator_id": "lead-1",
		"week": "2025-W10",
		"due_date": "2025-03-12",
		"quality_score": 80,
		"test_coverage": 72.5
	}`)
	require.NoError(t, err)

	q, ok := rec.(evaluation.Quality)
	require.True(t, ok, "expected a Quality record, got %T", rec)
	assert.Equal(t, 80.0, q.QualityScore)
	assert.Equal(t, 72.5, q.TestCoverage)
	assert.Equal(t, generic.PersonID("eng-1"), q.PersonID)
	assert.Equal(t, period.WeekID{Year: 2025, Week: 10}, q.Week)
	assert.Equal(t, evaluation.StatusCompleted, q.Status)
	assert.Equal(t, "2025-03-12", q.DueDate.String())
	assert.NotEmpty(t, q.ID, "an id is generated")
}

func TestParseEvaluation_Penalty(t *testing.T) {
	f := factory.NewEvaluationFactory()

	rec, err := f.ParseEvaluation(`{"evaluation_type":"penalty","person_id":"eng-1","week":"2025-W10","penalty_points":-20,"reason":"late"}`)
	require.NoError(t, err)
	p := rec.(evaluation.Penalty)
	require.NotNil(t, p.Points)
	assert.Equal(t, -20.0, *p.Points)
	assert.Nil(t, p.Rate)

	_, err = f.ParseEvaluation(`{"evaluation_type":"penalty","person_id":"eng-1","week":"2025-W10","penalty_points":-20,"penalty_rate":5,"reason":"late"}`)
	assert.ErrorIs(t, err, generic.ErrInvalidEvaluation)

	_, err = f.ParseEvaluation(`{"evaluation_type":"penalty","person_id":"eng-1","week":"2025-W10","penalty_rate":5}`)
	assert.ErrorIs(t, err, generic.ErrInvalidEvaluation, "reason is mandatory")
}

func TestParseEvaluation_Rejections(t *testing.T) {
	f := factory.NewEvaluationFactory()

	tests := []struct {
		name  string
		json  string
		field string
	}{
		{"malformed week", `{"evaluation_type":"quality","person_id":"a","week":"2025-10","quality_score":1}`, "week"},
		{"unknown type", `{"evaluation_type":"vibes","person_id":"a","week":"2025-W10"}`, "evaluation_type"},
		{"score out of range", `{"evaluation_type":"satisfaction","person_id":"a","week":"2025-W10","satisfaction_score":140}`, "satisfaction_score"},
		{"missing primary score", `{"evaluation_type":"quantity","person_id":"a","week":"2025-W10"}`, "quantity_points"},
		{"missing person", `{"evaluation_type":"quality","week":"2025-W10","quality_score":1}`, "person_id"},
		{"bonus without points", `{"evaluation_type":"bonus","person_id":"a","week":"2025-W10","reason":"x"}`, "bonus_points"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseEvaluation(tt.json)
			require.ErrorIs(t, err, generic.ErrInvalidEvaluation)
			var verr *generic.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := f.ParseEvaluation(`not json`)
	assert.ErrorIs(t, err, generic.ErrInvalidEvaluation)
}

func TestParseEvaluation_PendingNeedsNoScore(t *testing.T) {
	rec, err := factory.NewEvaluationFactory().ParseEvaluation(
		`{"evaluation_type":"quality","person_id":"a","evaluator_id":"b","week":"2025-W10","status":"pending","due_date":"2025-03-12"}`)
	require.NoError(t, err)
	assert.Equal(t, evaluation.StatusPending, evaluation.HeaderOf(rec).Status)
}

func TestToJSON_Decode(t *testing.T) {
	// GIVEN: a stored quantity record
	in := evaluation.Quantity{
		Header: evaluation.Header{
			ID: "q-1", PersonID: "eng-1", EvaluatorID: "lead-1",
			Week: period.WeekID{Year: 2025, Week: 11}, Status: evaluation.StatusCompleted,
		},
		QuantityPoints: 120, AddedLines: 340, CommitCount: 12, ProcessConsistency: 70,
	}

	// WHEN: Writing and reading it the way stores do
	ej := factory.ToJSON(in)
	assert.Equal(t, "quantity", ej.EvaluationType)
	assert.Equal(t, "2025-W11", ej.Week)

	payload := mustJSON(t, ej)
	out, err := factory.Decode(payload)

	// THEN: the record is unchanged and keeps its id
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// =============================================================================
// CONFIG FACTORY TESTS
// =============================================================================

func TestParseConfigYAML(t *testing.T) {
	set, err := factory.ParseConfigFile("seed.yaml", []byte(`
base_salaries:
  - id: b1
    role: engineer
    tier: T3
    effective_month: "2025-04"
    base_salary: "320000"
incentives:
  - role: ENGINEER
    effective_month: "2025-01"
    min_incentive: 0
    max_incentive: 100000.50
allowances:
  - employment_type: employee
    effective_month: "2024-10"
    allowance: "20000"
`))
	require.NoError(t, err)

	require.Len(t, set.BaseSalaries, 1)
	assert.Equal(t, "b1", set.BaseSalaries[0].ID)
	assert.Equal(t, generic.RoleEngineer, set.BaseSalaries[0].Role)
	assert.Equal(t, generic.Tier(3), set.BaseSalaries[0].Tier)
	assert.Equal(t, "320000", set.BaseSalaries[0].BaseSalary.String())

	require.Len(t, set.Incentives, 1)
	assert.NotEmpty(t, set.Incentives[0].ID)
	assert.Equal(t, "100000.5", set.Incentives[0].MaxIncentive.String())

	require.Len(t, set.Allowances, 1)
	assert.Equal(t, generic.EmploymentEmployee, set.Allowances[0].EmploymentType)
}

func TestParseConfigJSON(t *testing.T) {
	set, err := factory.ParseConfigFile("seed.json", []byte(`{
		"allowances": [{"employment_type": "PartTime", "effective_month": "2025-01", "allowance": 5000}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, generic.EmploymentPartTime, set.Allowances[0].EmploymentType)
}

func TestParseConfig_Rejections(t *testing.T) {
	_, err := factory.ParseConfig([]byte(`{"allowances":[{"employment_type":"Employee","effective_month":"2025/01","allowance":1}]}`))
	assert.ErrorIs(t, err, generic.ErrConfigParse)

	_, err = factory.ParseConfig([]byte(`{"base_salaries":[{"role":"CEO","tier":"T1","effective_month":"2025-01","base_salary":1}]}`))
	assert.ErrorIs(t, err, generic.ErrInvalidPerson)

	_, err = factory.ParseConfig([]byte(`{"base_salaries":[{"role":"CORP","tier":"T9","effective_month":"2025-01","base_salary":1}]}`))
	assert.ErrorIs(t, err, generic.ErrInvalidPerson)

	_, err = factory.ParseConfig([]byte(`{"incentives":[{"role":"CORP","effective_month":"2025-01","min_incentive":10,"max_incentive":5}]}`))
	assert.ErrorIs(t, err, generic.ErrInvalidEvaluation)

	_, err = factory.ParseConfigYAML([]byte("base_salaries: [oops"))
	assert.ErrorIs(t, err, generic.ErrConfigParse)
}

func TestConfigToJSON(t *testing.T) {
	set, err := factory.ParseConfig([]byte(`{"base_salaries":[{"id":"b1","role":"DESIGNER","tier":"2","effective_month":"2025-01","base_salary":"250000"}]}`))
	require.NoError(t, err)

	cj := factory.ConfigToJSON(set)
	require.Len(t, cj.BaseSalaries, 1)
	assert.Equal(t, "T2", cj.BaseSalaries[0].Tier)
	assert.Equal(t, "DESIGNER", cj.BaseSalaries[0].Role)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
