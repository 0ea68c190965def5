/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Period resolution and defaults
- Person CRUD and validation
- Evaluation recording (single, batch, atomic rejection)
- Aggregates, cohorts, compensation and error mapping
- Config rows, payroll runs
- Middleware: CORS, metrics exposition
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/factory"
	"github.com/warp/evaluation-engine/logger"
	"github.com/warp/evaluation-engine/metrics"
	"github.com/warp/evaluation-engine/store/sqlite"
)

// testNow is the engine clock of every API test: March 2025 is the
// previous month.
var testNow = time.Date(2025, time.April, 15, 9, 0, 0, 0, time.UTC)

type testServer struct {
	handler *Handler
	router  http.Handler
	metrics *metrics.Manager
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := metrics.NewManager()
	eng := engine.New(store,
		engine.WithClock(func() time.Time { return testNow }),
		engine.WithMetrics(m),
	)
	h := NewHandler(eng, store, logger.NewNop())
	router := NewRouter(h, RouterConfig{
		AllowedOrigins: []string{"http://localhost:5173"},
		Metrics:        m,
	})
	return &testServer{handler: h, router: router, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) load(t *testing.T, scenario string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"`+scenario+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// =============================================================================
// PERIODS
// =============================================================================

func TestGetPeriod(t *testing.T) {
	s := setupTestServer(t)

	t.Run("explicit month", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/periods?kind=month&year=2025&month=3", "")
		require.Equal(t, http.StatusOK, rec.Code)

		w := decodeBody[WindowDTO](t, rec)
		assert.Equal(t, "2025-03", w.Label)
		require.Len(t, w.Weeks, 4)
		assert.Equal(t, "2025-W10", w.Weeks[0].ID)
		assert.Equal(t, "2025-W13", w.Weeks[3].ID)
	})

	t.Run("default week without data is the week of now", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/periods?kind=week", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2025-W16", decodeBody[WindowDTO](t, rec).Label)
	})

	t.Run("default month is the previous month", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/periods", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2025-03", decodeBody[WindowDTO](t, rec).Label)
	})

	t.Run("half", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/periods?kind=half&year=2025&half=H1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		w := decodeBody[WindowDTO](t, rec)
		assert.Equal(t, "half", w.Kind)
		assert.Equal(t, "2025-01-01", w.Start)
		assert.Equal(t, "2025-06-29", w.End, "June 30 falls in a July majority week")
	})

	for _, query := range []string{
		"kind=month&year=2025&month=13",
		"kind=week&week=2025-W54",
		"kind=quarter",
		"kind=half&year=2025&half=H3",
	} {
		t.Run("rejects "+query, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/periods?"+query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid period", decodeBody[ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// PERSONS
// =============================================================================

func TestPersons_CRUD(t *testing.T) {
	s := setupTestServer(t)

	// GIVEN: a new part-time engineer
	body := `{"id":"eng-1","name":"Ada","role":"engineer","tier":"T3","employment_type":"parttime","fte":0.5,"is_evaluated":true,"created_at":"2024-01-08"}`

	// WHEN: creating it
	rec := s.do(t, http.MethodPost, "/api/persons", body)

	// THEN: the canonical form is returned
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decodeBody[PersonDTO](t, rec)
	assert.Equal(t, "ENGINEER", p.Role)
	assert.Equal(t, "T3", p.Tier)
	assert.Equal(t, "PartTime", p.EmploymentType)
	assert.Equal(t, 0.5, p.FTE)

	rec = s.do(t, http.MethodGet, "/api/persons/eng-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-08", decodeBody[PersonDTO](t, rec).CreatedAt)

	rec = s.do(t, http.MethodGet, "/api/persons", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]PersonDTO](t, rec), 1)

	rec = s.do(t, http.MethodDelete, "/api/persons/eng-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/persons/eng-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePerson_Rejects(t *testing.T) {
	s := setupTestServer(t)

	for name, body := range map[string]string{
		"unknown role":       `{"id":"x","role":"CEO","tier":"T1","employment_type":"Employee"}`,
		"tier out of range":  `{"id":"x","role":"CORP","tier":"T8","employment_type":"Employee"}`,
		"unknown employment": `{"id":"x","role":"CORP","tier":"T1","employment_type":"Intern"}`,
		"fte above one":      `{"id":"x","role":"CORP","tier":"T1","employment_type":"Employee","fte":1.5}`,
		"bad date":           `{"id":"x","role":"CORP","tier":"T1","employment_type":"Employee","created_at":"2024-13-01"}`,
		"missing id":         `{"role":"CORP","tier":"T1","employment_type":"Employee"}`,
		"not json":           `{`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/persons", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// EVALUATIONS
// =============================================================================

func TestCreateEvaluations(t *testing.T) {
	s := setupTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/persons", `{"id":"eng-1","role":"ENGINEER","tier":"T3","employment_type":"Employee","is_evaluated":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("single row gets an id", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/evaluations",
			`{"evaluation_type":"quality","person_id":"eng-1","week":"2025-W10","quality_score":80}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		row := decodeBody[factory.EvaluationJSON](t, rec)
		assert.NotEmpty(t, row.ID)
		assert.Equal(t, "completed", row.Status)

		rec = s.do(t, http.MethodGet, "/api/evaluations/"+row.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 80.0, *decodeBody[factory.EvaluationJSON](t, rec).QualityScore)
	})

	t.Run("array is stored as a batch", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/evaluations", `[
			{"id":"qt-1","evaluation_type":"quantity","person_id":"eng-1","week":"2025-W10","quantity_points":100},
			{"id":"st-1","evaluation_type":"satisfaction","person_id":"eng-1","week":"2025-W10","satisfaction_score":90}
		]`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Len(t, decodeBody[[]factory.EvaluationJSON](t, rec), 2)

		rec = s.do(t, http.MethodGet, "/api/evaluations?week=2025-W10", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[]factory.EvaluationJSON](t, rec), 3)
	})

	t.Run("one invalid row rejects the batch", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/evaluations", `[
			{"id":"ok-1","evaluation_type":"bonus","person_id":"eng-1","week":"2025-W11","bonus_points":10,"reason":"demo"},
			{"id":"bad-1","evaluation_type":"penalty","person_id":"eng-1","week":"2025-W11","penalty_points":-5,"penalty_rate":10,"reason":"both"}
		]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid evaluation at index 1", decodeBody[ErrorResponse](t, rec).Error)

		rec = s.do(t, http.MethodGet, "/api/evaluations/ok-1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown person", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/evaluations",
			`{"evaluation_type":"quality","person_id":"ghost","week":"2025-W10","quality_score":80}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("score out of range", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/evaluations",
			`{"evaluation_type":"quality","person_id":"eng-1","week":"2025-W10","quality_score":101}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("latest week by default", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/evaluations", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[]factory.EvaluationJSON](t, rec), 3)
	})
}

func TestCreateEvaluations_Lifecycle(t *testing.T) {
	s := setupTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/persons", `{"id":"eng-1","role":"ENGINEER","tier":"T3","employment_type":"Employee","is_evaluated":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// GIVEN: a pending review due on 2025-03-12
	rec = s.do(t, http.MethodPost, "/api/evaluations",
		`{"id":"rv-1","evaluation_type":"quality","person_id":"eng-1","week":"2025-W10","status":"pending","due_date":"2025-03-12"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: it is submitted after the due date
	rec = s.do(t, http.MethodPost, "/api/evaluations",
		`{"id":"rv-1","evaluation_type":"quality","person_id":"eng-1","week":"2025-W10","due_date":"2025-03-12","submitted_at":"2025-03-14","quality_score":80}`)

	// THEN: the submission is rejected
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// AND: an on-time submission completes it once
	onTime := `{"id":"rv-1","evaluation_type":"quality","person_id":"eng-1","week":"2025-W10","due_date":"2025-03-12","submitted_at":"2025-03-12","quality_score":80}`
	rec = s.do(t, http.MethodPost, "/api/evaluations", onTime)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/evaluations", onTime)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a completed record is final")
}

func TestCreateEvaluations_BodyLimit(t *testing.T) {
	s := setupTestServer(t)

	body := "[" + strings.Repeat(" ", MaxEvaluationBody) + "]"
	rec := s.do(t, http.MethodPost, "/api/evaluations", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// =============================================================================
// AGGREGATES, COHORTS, COMPENSATION
// =============================================================================

func TestGetAggregate(t *testing.T) {
	s := setupTestServer(t)
	s.load(t, "small-team")

	rec := s.do(t, http.MethodGet, "/api/persons/eng-ada/aggregate?kind=month&year=2025&month=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	agg := decodeBody[AggregateDTO](t, rec)
	assert.Equal(t, "2025-03", agg.Period)
	assert.Len(t, agg.Weeks, 4)
	assert.Equal(t, 85.0, agg.QualityScore)
	assert.Equal(t, 480.0, agg.QuantityPoints)
	assert.Equal(t, 50000.0, agg.BonusPoints)
	assert.Equal(t, 3722000.0, agg.TotalPoints)

	rec = s.do(t, http.MethodGet, "/api/persons/eng-ben/aggregate?kind=week&week=2025-W11", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ben := decodeBody[AggregateDTO](t, rec)
	assert.Equal(t, 56000.0, ben.PenaltyPoints)
	assert.Equal(t, 504000.0, ben.TotalPoints)
}

func TestGetAggregate_NoDataIsNotZero(t *testing.T) {
	s := setupTestServer(t)
	s.load(t, "small-team")

	// GIVEN: an operator without any evaluation
	// WHEN: asking for the March aggregate
	rec := s.do(t, http.MethodGet, "/api/persons/ops-gus/aggregate?kind=month&year=2025&month=3", "")

	// THEN: 404 saying the evaluation is not completed, never a zero score
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Evaluation not yet completed", decodeBody[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodGet, "/api/persons/ghost/aggregate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCohort(t *testing.T) {
	s := setupTestServer(t)
	s.load(t, "small-team")

	rec := s.do(t, http.MethodGet, "/api/cohorts/engineer?kind=month&year=2025&month=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c := decodeBody[CohortDTO](t, rec)
	assert.Equal(t, "ENGINEER", c.Role)
	require.Len(t, c.Standings, 4)
	order := make([]string, len(c.Standings))
	for i, st := range c.Standings {
		order[i] = st.PersonID
		assert.Equal(t, i+1, st.Rank)
	}
	assert.Equal(t, []string{"eng-ada", "eng-cy", "eng-ben", "eng-dee"}, order)
	assert.Greater(t, c.Standings[0].Deviation, 50.0)
	assert.Less(t, c.Standings[3].Deviation, 50.0)

	rec = s.do(t, http.MethodGet, "/api/cohorts/admin", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "administrative roles have no cohort")

	rec = s.do(t, http.MethodGet, "/api/cohorts/ceo", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCompensation(t *testing.T) {
	s := setupTestServer(t)
	s.load(t, "small-team")

	t.Run("top of the cohort gets the full incentive", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/persons/eng-ada/compensation?month=2025-03", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		c := decodeBody[CompensationDTO](t, rec)
		assert.True(t, c.Evaluated)
		assert.Equal(t, "320000", c.BaseSalary.String())
		assert.Equal(t, "100000", c.Incentive.String())
		assert.Equal(t, "20000", c.Allowance.String())
		assert.Equal(t, "396000", c.Net.String())
		assert.Equal(t, 1, c.Rank)
		assert.Equal(t, 4, c.CohortSize)
	})

	t.Run("fte scales the net amount", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/persons/eng-dee/compensation", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		c := decodeBody[CompensationDTO](t, rec)
		assert.Equal(t, "2025-03", c.Month, "defaults to the previous month")
		assert.Equal(t, "0", c.Incentive.String())
		assert.Equal(t, "130500", c.Net.String())
	})

	t.Run("non-evaluated person is all zero", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/persons/adm-hal/compensation?month=2025-03", "")
		require.Equal(t, http.StatusOK, rec.Code)

		c := decodeBody[CompensationDTO](t, rec)
		assert.False(t, c.Evaluated)
		assert.True(t, c.Net.IsZero())
	})

	t.Run("malformed month", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/persons/eng-ada/compensation?month=2025-3", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/config", `{
		"base_salaries": [{"role":"engineer","tier":"3","effective_month":"2025-01","base_salary":"320000"}],
		"allowances": [{"employment_type":"employee","effective_month":"2024-10","allowance":"20000.50"}]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decodeBody[factory.ConfigJSON](t, rec)
	require.Len(t, cfg.BaseSalaries, 1)
	assert.NotEmpty(t, cfg.BaseSalaries[0].ID)
	assert.Equal(t, "ENGINEER", cfg.BaseSalaries[0].Role)
	assert.Equal(t, "T3", cfg.BaseSalaries[0].Tier)
	assert.Equal(t, "20000.5", cfg.Allowances[0].Allowance.String())

	rec = s.do(t, http.MethodPost, "/api/config", `{"incentives":[{"role":"corp","effective_month":"2025-1","min_incentive":"0","max_incentive":"1"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestPayrollRuns(t *testing.T) {
	s := setupTestServer(t)
	s.load(t, "small-team")

	// GIVEN: the small team evaluated through March
	// WHEN: running payroll without naming a month
	rec := s.do(t, http.MethodPost, "/api/payroll/runs", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: March is priced, role by role and rank by rank
	run := decodeBody[RunDTO](t, rec)
	assert.Equal(t, "2025-03", run.Month)
	assert.Equal(t, "linear_rank", run.Curve)
	assert.Equal(t, []string{"ops-gus"}, run.Skipped)

	order := make([]string, len(run.Lines))
	net := make(map[string]string, len(run.Lines))
	for i, l := range run.Lines {
		order[i] = l.PersonID
		net[l.PersonID] = l.Compensation.Net.String()
	}
	assert.Equal(t, []string{"eng-ada", "eng-cy", "eng-ben", "eng-dee", "des-eve", "des-fox"}, order)
	assert.Equal(t, "396000", net["eng-ada"])
	assert.Equal(t, "402000", net["eng-cy"])
	assert.Equal(t, "336000", net["eng-ben"])
	assert.Equal(t, "130500", net["eng-dee"])
	assert.Equal(t, "360000", net["des-eve"])
	assert.Equal(t, "234000", net["des-fox"])
	assert.Equal(t, "1858500", run.TotalNet.String())

	// Stored runs can be listed and fetched
	rec = s.do(t, http.MethodGet, "/api/payroll/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decodeBody[[]RunDTO](t, rec)
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].Lines)

	rec = s.do(t, http.MethodGet, "/api/payroll/runs/"+run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[RunDTO](t, rec).Lines, 6)

	rec = s.do(t, http.MethodGet, "/api/payroll/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/payroll/runs", `{"month":"2025-00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRouter_CORSPreflight(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/persons", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Metrics(t *testing.T) {
	s := setupTestServer(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/persons", "").Code)

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "evaluation_http_requests_total")
	assert.Contains(t, body, `route="/healthz"`)
}

func TestResetDatabase(t *testing.T) {
	s := setupTestServer(t)
	s.load(t, "small-team")

	rec := s.do(t, http.MethodPost, "/api/scenarios/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)

	persons, err := s.handler.Store.ListPersons(context.Background())
	require.NoError(t, err)
	assert.Empty(t, persons)

	rec = s.do(t, http.MethodGet, "/api/scenarios/current", "")
	assert.Equal(t, "null\n", rec.Body.String())
}
