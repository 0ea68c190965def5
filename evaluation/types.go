/*
Package evaluation defines per-axis evaluation records and the aggregator
that reduces them into one deterministic score per person and period.

PURPOSE:
  Evaluators judge a person once per ISO week along one of five axes.
  Each judgment is its own record type; there is no shared loosely-typed
  row. The aggregator switches over the closed set of record types, so a
  quality record can never be read as if it carried quantity fields.

RECORD TYPES (AxisEvaluation):
  Quality       qualityScore and its review sub-scores (0-100)
  Quantity      quantityPoints, evidentiary counters, process sub-scores
  Satisfaction  satisfactionScore and requester sub-scores (0-100)
  Penalty       absolute points OR a proportional rate, with a reason
  Bonus         absolute points, with a reason

LIFECYCLE:
  pending -> completed
  pending -> overdue
  Only completed records contribute. Pending and overdue records are
  missing data; the penalty for an overdue record arrives as a separate
  Penalty record.

SEE ALSO:
  - aggregate.go: Weekly formula and multi-week combination
  - factory/evaluation.go: JSON rows <-> typed records
*/
package evaluation

import (
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

// =============================================================================
// AXIS AND STATUS
// =============================================================================

type Axis string

const (
	AxisQuality      Axis = "quality"
	AxisQuantity     Axis = "quantity"
	AxisSatisfaction Axis = "satisfaction"
	AxisPenalty      Axis = "penalty"
	AxisBonus        Axis = "bonus"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

// =============================================================================
// HEADER - Fields common to every record
// =============================================================================

type Header struct {
	ID          string
	PersonID    generic.PersonID
	EvaluatorID generic.PersonID
	Week        period.WeekID
	Status      Status
	DueDate     generic.TimePoint
	SubmittedAt *generic.TimePoint
}

func (h Header) header() Header { return h }

// Completed reports whether the record contributes to aggregation.
func (h Header) Completed() bool { return h.Status == StatusCompleted }

// SubmittedLate reports whether a completed record was submitted after its
// due date. Such a record counts as missing data and is rejected at entry.
func (h Header) SubmittedLate() bool {
	return h.Status == StatusCompleted && h.SubmittedAt != nil && !h.DueDate.IsZero() && h.SubmittedAt.After(h.DueDate)
}

// IsOverdue reports whether a pending record has passed its due date.
func (h Header) IsOverdue(today generic.TimePoint) bool {
	return h.Status == StatusPending && !h.DueDate.IsZero() && today.After(h.DueDate)
}

// =============================================================================
// AXIS EVALUATION - Closed sum type
// =============================================================================

// AxisEvaluation is implemented only by the five record types of this
// package.
type AxisEvaluation interface {
	Axis() Axis
	header() Header
}

// HeaderOf returns the common header of any record.
func HeaderOf(e AxisEvaluation) Header { return e.header() }

// WithHeader returns a copy of the record carrying h.
func WithHeader(e AxisEvaluation, h Header) AxisEvaluation {
	switch r := e.(type) {
	case Quality:
		r.Header = h
		return r
	case Quantity:
		r.Header = h
		return r
	case Satisfaction:
		r.Header = h
		return r
	case Penalty:
		r.Header = h
		return r
	case Bonus:
		r.Header = h
		return r
	}
	return e
}

// Quality is a code/deliverable quality review.
type Quality struct {
	Header
	QualityScore        float64
	RequirementCoverage float64
	TestCoverage        float64
	SeniorReviewScore   float64
	AICrossEvaluation   float64
}

// Quantity is a throughput review. The raw counters are evidence for
// the reviewer and are summed, not scored.
type Quantity struct {
	Header
	QuantityPoints         float64
	FunctionFP             float64
	AddedLines             int
	DeletedLines           int
	CommitCount            int
	CommitQuality          float64
	ProcessConsistency     float64
	DevelopmentRhythm      float64
	ProblemSolvingApproach float64
}

// Satisfaction is the requester's view of the delivered work.
type Satisfaction struct {
	Header
	SatisfactionScore    float64
	RequirementAlignment float64
	ProcessQuality       float64
	BusinessValue        float64
	Usability            float64
}

// Penalty deducts either absolute points or a share of the adjusted
// points. Exactly one of Points and Rate is set.
type Penalty struct {
	Header
	Points *float64 // negative magnitude, e.g. -20
	Rate   *float64 // percent, 0-100
	Reason string
}

// Bonus adds absolute points.
type Bonus struct {
	Header
	Points float64
	Reason string
}

func (Quality) Axis() Axis      { return AxisQuality }
func (Quantity) Axis() Axis     { return AxisQuantity }
func (Satisfaction) Axis() Axis { return AxisSatisfaction }
func (Penalty) Axis() Axis      { return AxisPenalty }
func (Bonus) Axis() Axis        { return AxisBonus }

// Compile-time checks
var (
	_ AxisEvaluation = Quality{}
	_ AxisEvaluation = Quantity{}
	_ AxisEvaluation = Satisfaction{}
	_ AxisEvaluation = Penalty{}
	_ AxisEvaluation = Bonus{}
)

// =============================================================================
// ROLE WEIGHTS
// =============================================================================

// RoleWeights scales the multiplicative base per role. Roles without an
// entry weigh 1.0.
type RoleWeights map[generic.Role]float64

const DefaultRoleWeight = 1.0

func (rw RoleWeights) For(role generic.Role) float64 {
	if w, ok := rw[role]; ok && w > 0 {
		return w
	}
	return DefaultRoleWeight
}
