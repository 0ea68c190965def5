/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates persons, compensation
	tables and evaluation records that demonstrate specific features.

AVAILABLE SCENARIOS:

	small-team:      Two cohorts over March 2025, a bonus, a rate penalty
	                 and an operator without data (skipped by payroll)
	overdue-reviews: Pending reviews past their due date, ready for a sweep
	config-history:  Salary tables that change mid-quarter

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create persons
 3. Append compensation rows via the factory (YAML)
 4. Record evaluation rows via the factory and the engine

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "small-team"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to scenarioLoader

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase handler
  - factory/: Row formats used by the loaders
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/factory"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/logger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "Engineers and designers evaluated through March 2025, ready for a payroll run",
	},
	{
		ID:          "overdue-reviews",
		Name:        "Overdue Reviews",
		Description: "Pending reviews past their due date; run a sweep to apply penalties",
	},
	{
		ID:          "config-history",
		Name:        "Config History",
		Description: "Base salaries raised from March 2025; compare February and March payroll",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, ok := h.scenarioLoader(req.ScenarioID); !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	for _, s := range scenarios {
		if s.ID == req.ScenarioID {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
}

func (h *Handler) scenarioLoader(id string) (func(context.Context) error, bool) {
	switch id {
	case "small-team":
		return h.loadSmallTeamScenario, true
	case "overdue-reviews":
		return h.loadOverdueReviewsScenario, true
	case "config-history":
		return h.loadConfigHistoryScenario, true
	}
	return nil, false
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	load, ok := h.scenarioLoader(id)
	if !ok {
		return fmt.Errorf("unknown scenario %q", id)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := load(ctx); err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()

	h.Log.Info(ctx, "scenario loaded", logger.String("scenario", id))
	return nil
}

// =============================================================================
// SHARED DATA
// =============================================================================

const teamConfigYAML = `
base_salaries:
  - {id: base-eng-t2, role: engineer, tier: T2, effective_month: "2025-01", base_salary: "280000"}
  - {id: base-eng-t3, role: engineer, tier: T3, effective_month: "2025-01", base_salary: "320000"}
  - {id: base-eng-t4, role: engineer, tier: T4, effective_month: "2025-01", base_salary: "380000"}
  - {id: base-des-t2, role: designer, tier: T2, effective_month: "2025-01", base_salary: "260000"}
  - {id: base-des-t3, role: designer, tier: T3, effective_month: "2025-01", base_salary: "300000"}
  - {id: base-ops-t1, role: operator, tier: T1, effective_month: "2025-01", base_salary: "220000"}
incentives:
  - {id: inc-eng, role: engineer, effective_month: "2025-01", min_incentive: "0", max_incentive: "100000"}
  - {id: inc-des, role: designer, effective_month: "2025-01", min_incentive: "0", max_incentive: "80000"}
  - {id: inc-ops, role: operator, effective_month: "2025-01", min_incentive: "0", max_incentive: "50000"}
allowances:
  - {id: alw-employee, employment_type: Employee, effective_month: "2024-10", allowance: "20000"}
  - {id: alw-contracted, employment_type: Contracted, effective_month: "2024-10", allowance: "0"}
  - {id: alw-outsourced, employment_type: Outsourced, effective_month: "2024-10", allowance: "0"}
  - {id: alw-parttime, employment_type: PartTime, effective_month: "2024-10", allowance: "10000"}
`

// The four qualifying weeks of March 2025 (W14 belongs to April).
var marchWeeks = []string{"2025-W10", "2025-W11", "2025-W12", "2025-W13"}

// The four qualifying weeks of February 2025.
var februaryWeeks = []string{"2025-W06", "2025-W07", "2025-W08", "2025-W09"}

func person(id, name string, role generic.Role, tier generic.Tier, et generic.EmploymentType) generic.Person {
	return generic.Person{
		ID:             generic.PersonID(id),
		Name:           name,
		Role:           role,
		Tier:           tier,
		EmploymentType: et,
		IsEvaluated:    role.IsEvaluable(),
		CreatedAt:      generic.NewTimePoint(2024, 4, 1),
	}
}

func (h *Handler) savePersons(ctx context.Context, persons ...generic.Person) error {
	for _, p := range persons {
		if err := h.Store.SavePerson(ctx, p); err != nil {
			return fmt.Errorf("person %s: %w", p.ID, err)
		}
	}
	return nil
}

func (h *Handler) saveConfigYAML(ctx context.Context, doc string) error {
	set, err := factory.ParseConfigYAML([]byte(doc))
	if err != nil {
		return err
	}
	return h.Store.SaveConfig(ctx, set)
}

// primaryRows returns one quality, quantity and satisfaction row per week.
func primaryRows(personID, evaluatorID string, weeks []string, quality, quantity, satisfaction float64) []factory.EvaluationJSON {
	var rows []factory.EvaluationJSON
	for _, wk := range weeks {
		id := fmt.Sprintf("%s-%s", personID, wk)
		rows = append(rows,
			factory.EvaluationJSON{
				ID: id + "-quality", EvaluationType: string(evaluation.AxisQuality),
				PersonID: personID, EvaluatorID: evaluatorID, Week: wk,
				QualityScore: f64(quality),
			},
			factory.EvaluationJSON{
				ID: id + "-quantity", EvaluationType: string(evaluation.AxisQuantity),
				PersonID: personID, EvaluatorID: evaluatorID, Week: wk,
				QuantityPoints: f64(quantity),
			},
			factory.EvaluationJSON{
				ID: id + "-satisfaction", EvaluationType: string(evaluation.AxisSatisfaction),
				PersonID: personID, EvaluatorID: evaluatorID, Week: wk,
				SatisfactionScore: f64(satisfaction),
			},
		)
	}
	return rows
}

// recordRows converts rows through the factory and records them as one batch.
func (h *Handler) recordRows(ctx context.Context, rows []factory.EvaluationJSON) error {
	recs := make([]evaluation.AxisEvaluation, 0, len(rows))
	for _, row := range rows {
		rec, err := h.EvaluationFactory.FromJSON(row)
		if err != nil {
			return fmt.Errorf("row %s: %w", row.ID, err)
		}
		recs = append(recs, rec)
	}
	return h.Engine.RecordEvaluations(ctx, recs)
}

func f64(v float64) *float64 { return &v }

// =============================================================================
// SMALL TEAM
// =============================================================================

// loadSmallTeamScenario seeds four engineers, two designers, an operator
// without any evaluation and a non-evaluated admin.
//
// Weekly totals (quality x quantity x satisfaction):
//
//	eng-ada  85 x 120 x 90 = 918000, plus a 50000 bonus in W12
//	eng-cy   75 x 110 x 85 = 701250
//	eng-ben  70 x 100 x 80 = 560000, minus 10% in W11
//	eng-dee  60 x  60 x 75 = 270000
//	des-eve  80 x  50 x 95 = 380000
//	des-fox  65 x  40 x 70 = 182000
func (h *Handler) loadSmallTeamScenario(ctx context.Context) error {
	dee := person("eng-dee", "Dee Okafor", generic.RoleEngineer, 2, generic.EmploymentPartTime)
	dee.FTE = 0.5

	if err := h.savePersons(ctx,
		person("eng-ada", "Ada Lindqvist", generic.RoleEngineer, 3, generic.EmploymentEmployee),
		person("eng-ben", "Ben Carter", generic.RoleEngineer, 3, generic.EmploymentEmployee),
		person("eng-cy", "Cy Moreau", generic.RoleEngineer, 4, generic.EmploymentContracted),
		dee,
		person("des-eve", "Eve Tanaka", generic.RoleDesigner, 3, generic.EmploymentEmployee),
		person("des-fox", "Fox Ibarra", generic.RoleDesigner, 2, generic.EmploymentOutsourced),
		person("ops-gus", "Gus Novak", generic.RoleOperator, 1, generic.EmploymentEmployee),
		person("adm-hal", "Hal Brandt", generic.RoleAdmin, 0, generic.EmploymentEmployee),
	); err != nil {
		return err
	}

	if err := h.saveConfigYAML(ctx, teamConfigYAML); err != nil {
		return err
	}

	var rows []factory.EvaluationJSON
	rows = append(rows, primaryRows("eng-ada", "adm-hal", marchWeeks, 85, 120, 90)...)
	rows = append(rows, primaryRows("eng-ben", "adm-hal", marchWeeks, 70, 100, 80)...)
	rows = append(rows, primaryRows("eng-cy", "adm-hal", marchWeeks, 75, 110, 85)...)
	rows = append(rows, primaryRows("eng-dee", "adm-hal", marchWeeks, 60, 60, 75)...)
	rows = append(rows, primaryRows("des-eve", "adm-hal", marchWeeks, 80, 50, 95)...)
	rows = append(rows, primaryRows("des-fox", "adm-hal", marchWeeks, 65, 40, 70)...)
	rows = append(rows,
		factory.EvaluationJSON{
			ID: "eng-ada-2025-W12-bonus", EvaluationType: string(evaluation.AxisBonus),
			PersonID: "eng-ada", EvaluatorID: "adm-hal", Week: "2025-W12",
			BonusPoints: f64(50000), Reason: "payments launch",
		},
		factory.EvaluationJSON{
			ID: "eng-ben-2025-W11-penalty", EvaluationType: string(evaluation.AxisPenalty),
			PersonID: "eng-ben", EvaluatorID: "adm-hal", Week: "2025-W11",
			PenaltyRate: f64(10), Reason: "missed release checklist",
		},
	)
	return h.recordRows(ctx, rows)
}

// =============================================================================
// OVERDUE REVIEWS
// =============================================================================

// loadOverdueReviewsScenario seeds two pending reviews due 2025-03-19 and
// one due far in the future. A sweep after the due date marks the first two
// overdue and penalizes both parties of each.
func (h *Handler) loadOverdueReviewsScenario(ctx context.Context) error {
	if err := h.savePersons(ctx,
		person("eng-ada", "Ada Lindqvist", generic.RoleEngineer, 3, generic.EmploymentEmployee),
		person("eng-ben", "Ben Carter", generic.RoleEngineer, 3, generic.EmploymentEmployee),
		person("ops-ivy", "Ivy Castell", generic.RoleOperator, 1, generic.EmploymentEmployee),
	); err != nil {
		return err
	}

	if err := h.saveConfigYAML(ctx, teamConfigYAML); err != nil {
		return err
	}

	w10 := marchWeeks[:1]
	var rows []factory.EvaluationJSON
	rows = append(rows, primaryRows("eng-ada", "ops-ivy", w10, 80, 100, 90)...)
	rows = append(rows, primaryRows("eng-ben", "ops-ivy", w10, 70, 100, 80)...)
	rows = append(rows, primaryRows("ops-ivy", "eng-ada", w10, 75, 50, 85)...)
	rows = append(rows,
		factory.EvaluationJSON{
			ID: "eng-ada-2025-W11-satisfaction", EvaluationType: string(evaluation.AxisSatisfaction),
			PersonID: "eng-ada", EvaluatorID: "ops-ivy", Week: "2025-W11",
			Status: string(evaluation.StatusPending), DueDate: "2025-03-19",
		},
		factory.EvaluationJSON{
			ID: "eng-ben-2025-W11-quality", EvaluationType: string(evaluation.AxisQuality),
			PersonID: "eng-ben", EvaluatorID: "eng-ada", Week: "2025-W11",
			Status: string(evaluation.StatusPending), DueDate: "2025-03-19",
		},
		factory.EvaluationJSON{
			ID: "ops-ivy-2025-W11-quality", EvaluationType: string(evaluation.AxisQuality),
			PersonID: "ops-ivy", EvaluatorID: "eng-ben", Week: "2025-W11",
			Status: string(evaluation.StatusPending), DueDate: "2099-12-31",
		},
	)
	return h.recordRows(ctx, rows)
}

// =============================================================================
// CONFIG HISTORY
// =============================================================================

// configRaiseYAML raises engineer T3 base salaries from March 2025.
const configRaiseYAML = `
base_salaries:
  - {id: base-eng-t3-2025-03, role: engineer, tier: T3, effective_month: "2025-03", base_salary: "340000"}
`

// loadConfigHistoryScenario seeds the same two engineers in February and
// March with a base salary raise effective from March.
func (h *Handler) loadConfigHistoryScenario(ctx context.Context) error {
	if err := h.savePersons(ctx,
		person("eng-ada", "Ada Lindqvist", generic.RoleEngineer, 3, generic.EmploymentEmployee),
		person("eng-ben", "Ben Carter", generic.RoleEngineer, 3, generic.EmploymentEmployee),
	); err != nil {
		return err
	}

	if err := h.saveConfigYAML(ctx, teamConfigYAML); err != nil {
		return err
	}
	if err := h.saveConfigYAML(ctx, configRaiseYAML); err != nil {
		return err
	}

	weeks := append(append([]string(nil), februaryWeeks...), marchWeeks...)
	var rows []factory.EvaluationJSON
	rows = append(rows, primaryRows("eng-ada", "", weeks, 80, 100, 90)...)
	rows = append(rows, primaryRows("eng-ben", "", weeks, 60, 100, 90)...)
	return h.recordRows(ctx, rows)
}
