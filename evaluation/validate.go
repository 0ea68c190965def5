package evaluation

import (
	"fmt"
	"strings"

	"github.com/warp/evaluation-engine/generic"
)

// Score bounds of every 0-100 field.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Validate checks a record at the entry boundary. The aggregator itself
// trusts its input; invalid records must be rejected before they are
// stored.
func Validate(e AxisEvaluation) error {
	if err := e.header().validate(); err != nil {
		return err
	}
	switch r := e.(type) {
	case Quality:
		return checkScores(
			score{"quality_score", r.QualityScore},
			score{"requirement_coverage", r.RequirementCoverage},
			score{"test_coverage", r.TestCoverage},
			score{"senior_review_score", r.SeniorReviewScore},
			score{"ai_cross_evaluation", r.AICrossEvaluation},
		)
	case Quantity:
		if r.QuantityPoints < 0 {
			return &generic.ValidationError{Field: "quantity_points", Message: "must not be negative"}
		}
		if r.AddedLines < 0 || r.DeletedLines < 0 || r.CommitCount < 0 || r.FunctionFP < 0 {
			return &generic.ValidationError{Field: "counters", Message: "must not be negative"}
		}
		return checkScores(
			score{"commit_quality", r.CommitQuality},
			score{"process_consistency", r.ProcessConsistency},
			score{"development_rhythm", r.DevelopmentRhythm},
			score{"problem_solving_approach", r.ProblemSolvingApproach},
		)
	case Satisfaction:
		return checkScores(
			score{"satisfaction_score", r.SatisfactionScore},
			score{"requirement_alignment", r.RequirementAlignment},
			score{"process_quality", r.ProcessQuality},
			score{"business_value", r.BusinessValue},
			score{"usability", r.Usability},
		)
	case Penalty:
		return r.Validate()
	case Bonus:
		return r.Validate()
	}
	return &generic.ValidationError{Field: "evaluation_type", Message: fmt.Sprintf("unsupported record %T", e)}
}

// Validate enforces that exactly one of Points and Rate is set and that
// a reason is given.
func (p Penalty) Validate() error {
	switch {
	case p.Points != nil && p.Rate != nil:
		return &generic.ValidationError{Field: "penalty", Message: "points and rate are mutually exclusive"}
	case p.Points == nil && p.Rate == nil:
		return &generic.ValidationError{Field: "penalty", Message: "one of points or rate is required"}
	case p.Points != nil && *p.Points > 0:
		return &generic.ValidationError{Field: "penalty_points", Message: "must be zero or negative"}
	case p.Rate != nil && (*p.Rate < 0 || *p.Rate > 100):
		return &generic.ValidationError{Field: "penalty_rate", Message: "must be within 0-100"}
	case strings.TrimSpace(p.Reason) == "":
		return &generic.ValidationError{Field: "penalty_reason", Message: "is required"}
	}
	return nil
}

// Validate requires a non-negative amount and a reason.
func (b Bonus) Validate() error {
	if b.Points < 0 {
		return &generic.ValidationError{Field: "bonus_points", Message: "must not be negative"}
	}
	if strings.TrimSpace(b.Reason) == "" {
		return &generic.ValidationError{Field: "bonus_reason", Message: "is required"}
	}
	return nil
}

func (h Header) validate() error {
	if h.PersonID == "" {
		return &generic.ValidationError{Field: "person_id", Message: "is required"}
	}
	if err := h.Week.Validate(); err != nil {
		return &generic.ValidationError{Field: "week", Message: err.Error()}
	}
	switch h.Status {
	case StatusPending, StatusCompleted, StatusOverdue:
	default:
		return &generic.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", h.Status)}
	}
	if h.SubmittedLate() {
		return &generic.ValidationError{
			Field:   "submitted_at",
			Message: fmt.Sprintf("%s is after due date %s", h.SubmittedAt, h.DueDate),
		}
	}
	return nil
}

// score is one named 0-100 field. Fields are checked in declaration
// order so the first offending field is always the one reported.
type score struct {
	field string
	value float64
}

func checkScores(scores ...score) error {
	for _, sc := range scores {
		if sc.value < MinScore || sc.value > MaxScore {
			return &generic.ValidationError{Field: sc.field, Message: fmt.Sprintf("%v outside %v-%v", sc.value, MinScore, MaxScore)}
		}
	}
	return nil
}

// CheckTransition enforces the record lifecycle when a record replaces a
// stored one with the same id. Only a pending record may change; it can
// stay pending, be completed or become overdue. Completed and overdue
// records are final.
func CheckTransition(from, to Status) error {
	if from == StatusPending {
		return nil
	}
	return &generic.ValidationError{
		Field:   "status",
		Message: fmt.Sprintf("%s record cannot become %s", from, to),
	}
}
