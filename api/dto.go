/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Person:       PersonDTO, CreatePersonRequest
  Period:       WindowDTO, WeekDTO
  Aggregation:  AggregateDTO
  Cohort:       CohortDTO, StandingDTO
  Compensation: CompensationDTO
  Payroll:      RunDTO, RunLineDTO, RunPayrollRequest
  Scheduler:    SweepDTO
  Scenarios:    ScenarioDTO, LoadScenarioRequest

MONEY:
  Amounts are decimal.Decimal and serialize as JSON strings so that no
  client ever sees a float rounding of a salary.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/: EvaluationJSON and ConfigJSON are used as-is
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/evaluation-engine/cohort"
	"github.com/warp/evaluation-engine/compensation"
	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

// =============================================================================
// PERSONS
// =============================================================================

// PersonDTO represents a person in API responses.
type PersonDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	Tier           string  `json:"tier"`
	EmploymentType string  `json:"employment_type"`
	FTE            float64 `json:"fte"`
	IsEvaluated    bool    `json:"is_evaluated"`
	CreatedAt      string  `json:"created_at,omitempty"`
	RetiredAt      string  `json:"retired_at,omitempty"`
}

// CreatePersonRequest is the request to create or replace a person.
type CreatePersonRequest struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	Tier           string  `json:"tier"`
	EmploymentType string  `json:"employment_type"`
	FTE            float64 `json:"fte"`
	IsEvaluated    bool    `json:"is_evaluated"`
	CreatedAt      string  `json:"created_at,omitempty"`
	RetiredAt      string  `json:"retired_at,omitempty"`
}

func toPersonDTO(p generic.Person) PersonDTO {
	dto := PersonDTO{
		ID:             string(p.ID),
		Name:           p.Name,
		Role:           string(p.Role),
		Tier:           p.Tier.String(),
		EmploymentType: string(p.EmploymentType),
		FTE:            p.EffectiveFTE(),
		IsEvaluated:    p.IsEvaluated,
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.String()
	}
	if p.RetiredAt != nil {
		dto.RetiredAt = p.RetiredAt.String()
	}
	return dto
}

// =============================================================================
// PERIODS
// =============================================================================

// WeekDTO is one qualifying week of a window.
type WeekDTO struct {
	ID    string   `json:"id"`
	Dates []string `json:"dates"`
}

// WindowDTO is a resolved period.
type WindowDTO struct {
	Kind  string    `json:"kind"`
	Label string    `json:"label"`
	Start string    `json:"start"`
	End   string    `json:"end"`
	Weeks []WeekDTO `json:"weeks"`
}

func toWindowDTO(w period.Window) WindowDTO {
	dto := WindowDTO{
		Kind:  string(w.Kind),
		Label: w.Label,
		Start: w.Start.String(),
		End:   w.End.String(),
		Weeks: make([]WeekDTO, len(w.Weeks)),
	}
	for i, s := range w.Weeks {
		dates := make([]string, len(s.Dates))
		for j, d := range s.Dates {
			dates[j] = d.String()
		}
		dto.Weeks[i] = WeekDTO{ID: s.ID.String(), Dates: dates}
	}
	return dto
}

// =============================================================================
// AGGREGATION
// =============================================================================

// AggregateDTO is a person's combined evaluation over a period.
type AggregateDTO struct {
	PersonID string   `json:"person_id"`
	Role     string   `json:"role"`
	Period   string   `json:"period"`
	Weeks    []string `json:"weeks"`

	QualityScore      float64 `json:"quality_score"`
	QuantityPoints    float64 `json:"quantity_points"`
	SatisfactionScore float64 `json:"satisfaction_score"`
	AddedLines        int     `json:"added_lines"`
	DeletedLines      int     `json:"deleted_lines"`
	CommitCount       int     `json:"commit_count"`

	BasePoints     float64 `json:"base_points"`
	AdjustedPoints float64 `json:"adjusted_points"`
	PenaltyPoints  float64 `json:"penalty_points"`
	BonusPoints    float64 `json:"bonus_points"`
	TotalPoints    float64 `json:"total_points"`
	Records        int     `json:"records"`
}

func toAggregateDTO(a evaluation.AggregatedEvaluation, label string) AggregateDTO {
	weeks := make([]string, len(a.Weeks))
	for i, w := range a.Weeks {
		weeks[i] = w.String()
	}
	return AggregateDTO{
		PersonID:          string(a.PersonID),
		Role:              string(a.Role),
		Period:            label,
		Weeks:             weeks,
		QualityScore:      a.QualityScore(),
		QuantityPoints:    a.QuantityPoints,
		SatisfactionScore: a.SatisfactionScore(),
		AddedLines:        a.Quantity.AddedLines,
		DeletedLines:      a.Quantity.DeletedLines,
		CommitCount:       a.Quantity.CommitCount,
		BasePoints:        a.BasePoints,
		AdjustedPoints:    a.AdjustedPoints,
		PenaltyPoints:     a.PenaltyPoints,
		BonusPoints:       a.BonusPoints,
		TotalPoints:       a.TotalPoints,
		Records:           a.Records,
	}
}

// =============================================================================
// COHORT
// =============================================================================

// StandingDTO is one ranked member.
type StandingDTO struct {
	PersonID    string  `json:"person_id"`
	TotalPoints float64 `json:"total_points"`
	Rank        int     `json:"rank"`
	Deviation   float64 `json:"deviation"`
}

// CohortDTO is a ranked role cohort.
type CohortDTO struct {
	Role      string        `json:"role"`
	Period    string        `json:"period"`
	Mean      float64       `json:"mean"`
	StdDev    float64       `json:"std_dev"`
	Standings []StandingDTO `json:"standings"`
}

func toCohortDTO(s cohort.Stat) CohortDTO {
	dto := CohortDTO{
		Role:      string(s.Role),
		Period:    s.Label,
		Mean:      s.Mean,
		StdDev:    s.StdDev,
		Standings: make([]StandingDTO, len(s.Standings)),
	}
	for i, st := range s.Standings {
		dto.Standings[i] = StandingDTO{
			PersonID:    string(st.PersonID),
			TotalPoints: st.TotalPoints,
			Rank:        st.Rank,
			Deviation:   st.Deviation,
		}
	}
	return dto
}

// =============================================================================
// COMPENSATION
// =============================================================================

// CompensationDTO is a priced person-month.
type CompensationDTO struct {
	PersonID   string          `json:"person_id"`
	Month      string          `json:"month"`
	Evaluated  bool            `json:"evaluated"`
	BaseSalary decimal.Decimal `json:"base_salary"`
	Incentive  decimal.Decimal `json:"incentive"`
	Allowance  decimal.Decimal `json:"allowance"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Net        decimal.Decimal `json:"net"`
	Rank       int             `json:"rank,omitempty"`
	CohortSize int             `json:"cohort_size,omitempty"`
	Deviation  float64         `json:"deviation,omitempty"`
	Position   float64         `json:"position,omitempty"`
}

func toCompensationDTO(c compensation.Compensation) CompensationDTO {
	return CompensationDTO{
		PersonID:   string(c.PersonID),
		Month:      c.Month.String(),
		Evaluated:  c.Evaluated,
		BaseSalary: c.BaseSalary,
		Incentive:  c.Incentive,
		Allowance:  c.Allowance,
		UnitPrice:  c.UnitPrice,
		Net:        c.Net,
		Rank:       c.Rank,
		CohortSize: c.CohortSize,
		Deviation:  c.Deviation,
		Position:   c.Position,
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

// RunPayrollRequest starts a payroll run.
type RunPayrollRequest struct {
	Month string `json:"month"` // YYYY-MM, defaults to the previous month
}

// RunLineDTO is one priced person of a run.
type RunLineDTO struct {
	PersonID     string          `json:"person_id"`
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	Tier         string          `json:"tier"`
	TotalPoints  float64         `json:"total_points"`
	Compensation CompensationDTO `json:"compensation"`
}

// RunDTO is a payroll run.
type RunDTO struct {
	ID        string          `json:"id"`
	Month     string          `json:"month"`
	Curve     string          `json:"curve"`
	CreatedAt string          `json:"created_at"`
	TotalNet  decimal.Decimal `json:"total_net"`
	Skipped   []string        `json:"skipped"`
	Lines     []RunLineDTO    `json:"lines,omitempty"`
}

func toRunDTO(run engine.Run) RunDTO {
	dto := RunDTO{
		ID:        run.ID,
		Month:     run.Month.String(),
		Curve:     run.Curve,
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339),
		TotalNet:  run.TotalNet,
		Skipped:   make([]string, len(run.Skipped)),
	}
	for i, id := range run.Skipped {
		dto.Skipped[i] = string(id)
	}
	for _, l := range run.Lines {
		dto.Lines = append(dto.Lines, RunLineDTO{
			PersonID:     string(l.Person.ID),
			Name:         l.Person.Name,
			Role:         string(l.Person.Role),
			Tier:         l.Person.Tier.String(),
			TotalPoints:  l.TotalPoints,
			Compensation: toCompensationDTO(l.Compensation),
		})
	}
	return dto
}

// =============================================================================
// SCHEDULER
// =============================================================================

// SweepDTO reports an overdue sweep.
type SweepDTO struct {
	Marked    int `json:"marked"`
	Penalties int `json:"penalties"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
