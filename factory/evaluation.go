/*
Package factory converts loosely-typed JSON/YAML rows into the engine's
typed records and back.

PURPOSE:
  Evaluations arrive from forms and imports as one flat row with an
  evaluation_type discriminator. Inside the engine every axis is its own
  record type. The factory is the single boundary where a row becomes an
  evaluation.AxisEvaluation, and where entry validation happens.

JSON SCHEMA (evaluation):
  {
    "id": "3f0c...",                 // optional, generated when empty
    "evaluation_type": "quality",    // quality|quantity|satisfaction|penalty|bonus
    "person_id": "eng-1",
    "evaluator_id": "lead-1",
    "week": "2025-W10",
    "status": "completed",           // pending|completed|overdue, default completed
    "due_date": "2025-03-12",
    "quality_score": 80,
    "test_coverage": 72
  }

  Penalty rows carry exactly one of penalty_points (<= 0) and
  penalty_rate (0-100) plus a reason. Bonus rows carry bonus_points and
  a reason.

USAGE:
  f := factory.NewEvaluationFactory()
  rec, err := f.ParseEvaluation(jsonString)

SEE ALSO:
  - evaluation/types.go: Record types
  - factory/config.go: Compensation configuration rows
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// EvaluationJSON is the flat JSON representation of any evaluation record.
type EvaluationJSON struct {
	ID             string `json:"id,omitempty"`
	EvaluationType string `json:"evaluation_type"`
	PersonID       string `json:"person_id"`
	EvaluatorID    string `json:"evaluator_id,omitempty"`
	Week           string `json:"week"`
	Status         string `json:"status,omitempty"`
	DueDate        string `json:"due_date,omitempty"`
	SubmittedAt    string `json:"submitted_at,omitempty"`

	// Quality
	QualityScore        *float64 `json:"quality_score,omitempty"`
	RequirementCoverage *float64 `json:"requirement_coverage,omitempty"`
	TestCoverage        *float64 `json:"test_coverage,omitempty"`
	SeniorReviewScore   *float64 `json:"senior_review_score,omitempty"`
	AICrossEvaluation   *float64 `json:"ai_cross_evaluation,omitempty"`

	// Quantity
	QuantityPoints         *float64 `json:"quantity_points,omitempty"`
	FunctionFP             *float64 `json:"function_fp,omitempty"`
	AddedLines             *int     `json:"added_lines,omitempty"`
	DeletedLines           *int     `json:"deleted_lines,omitempty"`
	CommitCount            *int     `json:"commit_count,omitempty"`
	CommitQuality          *float64 `json:"commit_quality,omitempty"`
	ProcessConsistency     *float64 `json:"process_consistency,omitempty"`
	DevelopmentRhythm      *float64 `json:"development_rhythm,omitempty"`
	ProblemSolvingApproach *float64 `json:"problem_solving_approach,omitempty"`

	// Satisfaction
	SatisfactionScore    *float64 `json:"satisfaction_score,omitempty"`
	RequirementAlignment *float64 `json:"requirement_alignment,omitempty"`
	ProcessQuality       *float64 `json:"process_quality,omitempty"`
	BusinessValue        *float64 `json:"business_value,omitempty"`
	Usability            *float64 `json:"usability,omitempty"`

	// Penalty and bonus
	PenaltyPoints *float64 `json:"penalty_points,omitempty"`
	PenaltyRate   *float64 `json:"penalty_rate,omitempty"`
	BonusPoints   *float64 `json:"bonus_points,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

// =============================================================================
// EVALUATION FACTORY
// =============================================================================

// EvaluationFactory converts JSON rows to typed records.
type EvaluationFactory struct {
	// NewID generates ids for rows that carry none.
	NewID func() string
}

// NewEvaluationFactory creates a factory generating UUID ids.
func NewEvaluationFactory() *EvaluationFactory {
	return &EvaluationFactory{NewID: uuid.NewString}
}

// ParseEvaluation parses a JSON string into a validated record.
func (f *EvaluationFactory) ParseEvaluation(jsonStr string) (evaluation.AxisEvaluation, error) {
	var ej EvaluationJSON
	if err := json.Unmarshal([]byte(jsonStr), &ej); err != nil {
		return nil, fmt.Errorf("%w: failed to parse evaluation JSON: %v", generic.ErrInvalidEvaluation, err)
	}
	return f.FromJSON(ej)
}

// FromJSON converts a row to a validated record. Completed rows must
// carry their axis' primary value.
func (f *EvaluationFactory) FromJSON(ej EvaluationJSON) (evaluation.AxisEvaluation, error) {
	h, err := f.header(ej)
	if err != nil {
		return nil, err
	}
	completed := h.Status == evaluation.StatusCompleted

	var rec evaluation.AxisEvaluation
	switch evaluation.Axis(strings.ToLower(ej.EvaluationType)) {
	case evaluation.AxisQuality:
		if completed && ej.QualityScore == nil {
			return nil, required("quality_score")
		}
		rec = evaluation.Quality{
			Header:              h,
			QualityScore:        val(ej.QualityScore),
			RequirementCoverage: val(ej.RequirementCoverage),
			TestCoverage:        val(ej.TestCoverage),
			SeniorReviewScore:   val(ej.SeniorReviewScore),
			AICrossEvaluation:   val(ej.AICrossEvaluation),
		}
	case evaluation.AxisQuantity:
		if completed && ej.QuantityPoints == nil {
			return nil, required("quantity_points")
		}
		rec = evaluation.Quantity{
			Header:                 h,
			QuantityPoints:         val(ej.QuantityPoints),
			FunctionFP:             val(ej.FunctionFP),
			AddedLines:             count(ej.AddedLines),
			DeletedLines:           count(ej.DeletedLines),
			CommitCount:            count(ej.CommitCount),
			CommitQuality:          val(ej.CommitQuality),
			ProcessConsistency:     val(ej.ProcessConsistency),
			DevelopmentRhythm:      val(ej.DevelopmentRhythm),
			ProblemSolvingApproach: val(ej.ProblemSolvingApproach),
		}
	case evaluation.AxisSatisfaction:
		if completed && ej.SatisfactionScore == nil {
			return nil, required("satisfaction_score")
		}
		rec = evaluation.Satisfaction{
			Header:               h,
			SatisfactionScore:    val(ej.SatisfactionScore),
			RequirementAlignment: val(ej.RequirementAlignment),
			ProcessQuality:       val(ej.ProcessQuality),
			BusinessValue:        val(ej.BusinessValue),
			Usability:            val(ej.Usability),
		}
	case evaluation.AxisPenalty:
		rec = evaluation.Penalty{
			Header: h,
			Points: ej.PenaltyPoints,
			Rate:   ej.PenaltyRate,
			Reason: ej.Reason,
		}
	case evaluation.AxisBonus:
		if ej.BonusPoints == nil {
			return nil, required("bonus_points")
		}
		rec = evaluation.Bonus{Header: h, Points: *ej.BonusPoints, Reason: ej.Reason}
	default:
		return nil, &generic.ValidationError{Field: "evaluation_type", Message: fmt.Sprintf("unknown type %q", ej.EvaluationType)}
	}

	if err := evaluation.Validate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (f *EvaluationFactory) header(ej EvaluationJSON) (evaluation.Header, error) {
	week, err := period.ParseWeekID(ej.Week)
	if err != nil {
		return evaluation.Header{}, &generic.ValidationError{Field: "week", Message: err.Error()}
	}

	status := evaluation.Status(strings.ToLower(ej.Status))
	if status == "" {
		status = evaluation.StatusCompleted
	}

	h := evaluation.Header{
		ID:          ej.ID,
		PersonID:    generic.PersonID(ej.PersonID),
		EvaluatorID: generic.PersonID(ej.EvaluatorID),
		Week:        week,
		Status:      status,
	}
	if h.ID == "" && f.NewID != nil {
		h.ID = f.NewID()
	}
	if ej.DueDate != "" {
		due, err := generic.ParseDay(ej.DueDate)
		if err != nil {
			return evaluation.Header{}, &generic.ValidationError{Field: "due_date", Message: err.Error()}
		}
		h.DueDate = due
	}
	if ej.SubmittedAt != "" {
		at, err := generic.ParseDay(ej.SubmittedAt)
		if err != nil {
			return evaluation.Header{}, &generic.ValidationError{Field: "submitted_at", Message: err.Error()}
		}
		h.SubmittedAt = &at
	}
	return h, nil
}

// =============================================================================
// REVERSE DIRECTION
// =============================================================================

// ToJSON renders a record as its flat row.
func ToJSON(e evaluation.AxisEvaluation) EvaluationJSON {
	h := evaluation.HeaderOf(e)
	ej := EvaluationJSON{
		ID:             h.ID,
		EvaluationType: string(e.Axis()),
		PersonID:       string(h.PersonID),
		EvaluatorID:    string(h.EvaluatorID),
		Week:           h.Week.String(),
		Status:         string(h.Status),
	}
	if !h.DueDate.IsZero() {
		ej.DueDate = h.DueDate.String()
	}
	if h.SubmittedAt != nil {
		ej.SubmittedAt = h.SubmittedAt.String()
	}

	switch r := e.(type) {
	case evaluation.Quality:
		ej.QualityScore = ptr(r.QualityScore)
		ej.RequirementCoverage = ptr(r.RequirementCoverage)
		ej.TestCoverage = ptr(r.TestCoverage)
		ej.SeniorReviewScore = ptr(r.SeniorReviewScore)
		ej.AICrossEvaluation = ptr(r.AICrossEvaluation)
	case evaluation.Quantity:
		ej.QuantityPoints = ptr(r.QuantityPoints)
		ej.FunctionFP = ptr(r.FunctionFP)
		ej.AddedLines = ptr(r.AddedLines)
		ej.DeletedLines = ptr(r.DeletedLines)
		ej.CommitCount = ptr(r.CommitCount)
		ej.CommitQuality = ptr(r.CommitQuality)
		ej.ProcessConsistency = ptr(r.ProcessConsistency)
		ej.DevelopmentRhythm = ptr(r.DevelopmentRhythm)
		ej.ProblemSolvingApproach = ptr(r.ProblemSolvingApproach)
	case evaluation.Satisfaction:
		ej.SatisfactionScore = ptr(r.SatisfactionScore)
		ej.RequirementAlignment = ptr(r.RequirementAlignment)
		ej.ProcessQuality = ptr(r.ProcessQuality)
		ej.BusinessValue = ptr(r.BusinessValue)
		ej.Usability = ptr(r.Usability)
	case evaluation.Penalty:
		ej.PenaltyPoints = r.Points
		ej.PenaltyRate = r.Rate
		ej.Reason = r.Reason
	case evaluation.Bonus:
		ej.BonusPoints = ptr(r.Points)
		ej.Reason = r.Reason
	}
	return ej
}

// Decode parses a stored row without generating ids. Stores use it to
// rebuild records they wrote with ToJSON.
func Decode(payload []byte) (evaluation.AxisEvaluation, error) {
	var ej EvaluationJSON
	if err := json.Unmarshal(payload, &ej); err != nil {
		return nil, fmt.Errorf("decode evaluation payload: %w", err)
	}
	return (&EvaluationFactory{}).FromJSON(ej)
}

// =============================================================================
// HELPERS
// =============================================================================

func required(field string) error {
	return &generic.ValidationError{Field: field, Message: "is required for completed evaluations"}
}

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func count(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func ptr[T any](v T) *T { return &v }
