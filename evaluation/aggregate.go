package evaluation

import (
	"math"
	"sort"

	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

// =============================================================================
// MEAN - Associative running mean
// =============================================================================

// Mean accumulates a mean as sum and count so that partial aggregates can
// be combined in any grouping. Weeks without data for an axis do not
// observe anything and therefore do not drag the mean down.
type Mean struct {
	Sum   float64
	Count int
}

func (m Mean) Value() float64 {
	if m.Count == 0 {
		return 0
	}
	return m.Sum / float64(m.Count)
}

func (m Mean) Add(o Mean) Mean { return Mean{Sum: m.Sum + o.Sum, Count: m.Count + o.Count} }

func (m *Mean) observe(v float64) {
	m.Sum += v
	m.Count++
}

// =============================================================================
// AGGREGATED EVALUATION
// =============================================================================

type QualityBreakdown struct {
	QualityScore        Mean
	RequirementCoverage Mean
	TestCoverage        Mean
	SeniorReviewScore   Mean
	AICrossEvaluation   Mean
}

type QuantityBreakdown struct {
	FunctionFP             float64
	AddedLines             int
	DeletedLines           int
	CommitCount            int
	CommitQuality          Mean
	ProcessConsistency     Mean
	DevelopmentRhythm      Mean
	ProblemSolvingApproach Mean
}

type SatisfactionBreakdown struct {
	SatisfactionScore    Mean
	RequirementAlignment Mean
	ProcessQuality       Mean
	BusinessValue        Mean
	Usability            Mean
}

// AggregatedEvaluation is the totals record of one person over one or
// more weeks. Points-like fields are sums; score-like fields are Means.
type AggregatedEvaluation struct {
	PersonID generic.PersonID
	Role     generic.Role
	Weeks    []period.WeekID // weeks with at least one completed record

	Quality      QualityBreakdown
	Quantity     QuantityBreakdown
	Satisfaction SatisfactionBreakdown

	QuantityPoints float64
	BasePoints     float64
	AdjustedPoints float64
	PenaltyPoints  float64 // total deduction, positive magnitude
	BonusPoints    float64
	TotalPoints    float64

	Records int // completed records that contributed
}

// QualityScore is the mean weekly quality score (deep score).
func (a AggregatedEvaluation) QualityScore() float64 { return a.Quality.QualityScore.Value() }

// SatisfactionScore is the mean weekly satisfaction score (human score).
func (a AggregatedEvaluation) SatisfactionScore() float64 {
	return a.Satisfaction.SatisfactionScore.Value()
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator reduces completed records into AggregatedEvaluations. It is
// a pure value; one instance may be shared across goroutines.
type Aggregator struct {
	Weights RoleWeights
}

// NewAggregator creates an aggregator with the given role weights.
func NewAggregator(weights RoleWeights) Aggregator {
	return Aggregator{Weights: weights}
}

// Aggregate combines the person's completed records in the given weeks.
// The boolean is false when no record contributed (the NoData outcome);
// callers decide whether absence means exclusion or a zero score.
func (ag Aggregator) Aggregate(personID generic.PersonID, role generic.Role, weeks []period.WeekID, records []AxisEvaluation) (AggregatedEvaluation, bool) {
	byWeek := groupByWeek(personID, weeks, records)

	var (
		total AggregatedEvaluation
		found bool
	)
	for _, week := range dedupeWeeks(weeks) {
		recs := byWeek[week]
		if len(recs) == 0 {
			continue
		}
		w := ag.reduceWeek(personID, role, week, recs)
		if !found {
			total, found = w, true
			continue
		}
		total = Combine(total, w)
	}
	return total, found
}

// AggregateWeek applies the weekly formula to a single week.
func (ag Aggregator) AggregateWeek(personID generic.PersonID, role generic.Role, week period.WeekID, records []AxisEvaluation) (AggregatedEvaluation, bool) {
	recs := groupByWeek(personID, []period.WeekID{week}, records)[week]
	if len(recs) == 0 {
		return AggregatedEvaluation{}, false
	}
	return ag.reduceWeek(personID, role, week, recs), true
}

// Combine merges two aggregates of the same person over disjoint weeks.
// It is associative and commutative.
func Combine(a, b AggregatedEvaluation) AggregatedEvaluation {
	out := AggregatedEvaluation{
		PersonID: a.PersonID,
		Role:     a.Role,
		Weeks:    mergeWeeks(a.Weeks, b.Weeks),
		Quality: QualityBreakdown{
			QualityScore:        a.Quality.QualityScore.Add(b.Quality.QualityScore),
			RequirementCoverage: a.Quality.RequirementCoverage.Add(b.Quality.RequirementCoverage),
			TestCoverage:        a.Quality.TestCoverage.Add(b.Quality.TestCoverage),
			SeniorReviewScore:   a.Quality.SeniorReviewScore.Add(b.Quality.SeniorReviewScore),
			AICrossEvaluation:   a.Quality.AICrossEvaluation.Add(b.Quality.AICrossEvaluation),
		},
		Quantity: QuantityBreakdown{
			FunctionFP:             a.Quantity.FunctionFP + b.Quantity.FunctionFP,
			AddedLines:             a.Quantity.AddedLines + b.Quantity.AddedLines,
			DeletedLines:           a.Quantity.DeletedLines + b.Quantity.DeletedLines,
			CommitCount:            a.Quantity.CommitCount + b.Quantity.CommitCount,
			CommitQuality:          a.Quantity.CommitQuality.Add(b.Quantity.CommitQuality),
			ProcessConsistency:     a.Quantity.ProcessConsistency.Add(b.Quantity.ProcessConsistency),
			DevelopmentRhythm:      a.Quantity.DevelopmentRhythm.Add(b.Quantity.DevelopmentRhythm),
			ProblemSolvingApproach: a.Quantity.ProblemSolvingApproach.Add(b.Quantity.ProblemSolvingApproach),
		},
		Satisfaction: SatisfactionBreakdown{
			SatisfactionScore:    a.Satisfaction.SatisfactionScore.Add(b.Satisfaction.SatisfactionScore),
			RequirementAlignment: a.Satisfaction.RequirementAlignment.Add(b.Satisfaction.RequirementAlignment),
			ProcessQuality:       a.Satisfaction.ProcessQuality.Add(b.Satisfaction.ProcessQuality),
			BusinessValue:        a.Satisfaction.BusinessValue.Add(b.Satisfaction.BusinessValue),
			Usability:            a.Satisfaction.Usability.Add(b.Satisfaction.Usability),
		},
		QuantityPoints: a.QuantityPoints + b.QuantityPoints,
		BasePoints:     a.BasePoints + b.BasePoints,
		AdjustedPoints: a.AdjustedPoints + b.AdjustedPoints,
		PenaltyPoints:  a.PenaltyPoints + b.PenaltyPoints,
		BonusPoints:    a.BonusPoints + b.BonusPoints,
		TotalPoints:    a.TotalPoints + b.TotalPoints,
		Records:        a.Records + b.Records,
	}
	if out.PersonID == "" {
		out.PersonID, out.Role = b.PersonID, b.Role
	}
	return out
}

// =============================================================================
// WEEKLY FORMULA
// =============================================================================

// reduceWeek computes
//
//	base     = quality × quantity × satisfaction
//	adjusted = base × roleWeight
//	total    = adjusted − penalty + bonus
//
// A missing primary axis counts as 0 and collapses base to 0. Several
// records of one primary axis within the week are averaged.
func (ag Aggregator) reduceWeek(personID generic.PersonID, role generic.Role, week period.WeekID, recs []AxisEvaluation) AggregatedEvaluation {
	var (
		quality      QualityBreakdown
		quantity     QuantityBreakdown
		satisfaction SatisfactionBreakdown
		quantityPts  Mean
		penalties    []Penalty
		bonus        float64
	)

	for _, rec := range recs {
		switch r := rec.(type) {
		case Quality:
			quality.QualityScore.observe(r.QualityScore)
			quality.RequirementCoverage.observe(r.RequirementCoverage)
			quality.TestCoverage.observe(r.TestCoverage)
			quality.SeniorReviewScore.observe(r.SeniorReviewScore)
			quality.AICrossEvaluation.observe(r.AICrossEvaluation)
		case Quantity:
			quantityPts.observe(r.QuantityPoints)
			quantity.CommitQuality.observe(r.CommitQuality)
			quantity.ProcessConsistency.observe(r.ProcessConsistency)
			quantity.DevelopmentRhythm.observe(r.DevelopmentRhythm)
			quantity.ProblemSolvingApproach.observe(r.ProblemSolvingApproach)
			// Reviewers of one week look at the same repository evidence;
			// keep the largest observation rather than double counting.
			quantity.FunctionFP = math.Max(quantity.FunctionFP, r.FunctionFP)
			quantity.AddedLines = max(quantity.AddedLines, r.AddedLines)
			quantity.DeletedLines = max(quantity.DeletedLines, r.DeletedLines)
			quantity.CommitCount = max(quantity.CommitCount, r.CommitCount)
		case Satisfaction:
			satisfaction.SatisfactionScore.observe(r.SatisfactionScore)
			satisfaction.RequirementAlignment.observe(r.RequirementAlignment)
			satisfaction.ProcessQuality.observe(r.ProcessQuality)
			satisfaction.BusinessValue.observe(r.BusinessValue)
			satisfaction.Usability.observe(r.Usability)
		case Penalty:
			penalties = append(penalties, r)
		case Bonus:
			bonus += r.Points
		}
	}

	q := quality.QualityScore.Value()
	qt := quantityPts.Value()
	s := satisfaction.SatisfactionScore.Value()

	base := q * qt * s
	adjusted := base * ag.Weights.For(role)

	var penalty float64
	for _, p := range penalties {
		penalty += p.deduction(adjusted)
	}

	return AggregatedEvaluation{
		PersonID:       personID,
		Role:           role,
		Weeks:          []period.WeekID{week},
		Quality:        collapse(quality),
		Quantity:       collapseQuantity(quantity),
		Satisfaction:   collapseSatisfaction(satisfaction),
		QuantityPoints: qt,
		BasePoints:     base,
		AdjustedPoints: adjusted,
		PenaltyPoints:  penalty,
		BonusPoints:    bonus,
		TotalPoints:    adjusted - penalty + bonus,
		Records:        len(recs),
	}
}

// deduction is the positive amount a penalty removes from the week.
// Absolute points take precedence; entry validation keeps the two
// inputs exclusive.
func (p Penalty) deduction(adjusted float64) float64 {
	switch {
	case p.Points != nil:
		return math.Abs(*p.Points)
	case p.Rate != nil:
		return math.Abs(adjusted * (*p.Rate / 100))
	}
	return 0
}

// Within one week every present axis counts as a single observation of
// the weekly mean, so multi-week means weigh weeks, not evaluators.
func weekly(m Mean) Mean {
	if m.Count == 0 {
		return Mean{}
	}
	return Mean{Sum: m.Value(), Count: 1}
}

func collapse(q QualityBreakdown) QualityBreakdown {
	return QualityBreakdown{
		QualityScore:        weekly(q.QualityScore),
		RequirementCoverage: weekly(q.RequirementCoverage),
		TestCoverage:        weekly(q.TestCoverage),
		SeniorReviewScore:   weekly(q.SeniorReviewScore),
		AICrossEvaluation:   weekly(q.AICrossEvaluation),
	}
}

func collapseQuantity(q QuantityBreakdown) QuantityBreakdown {
	q.CommitQuality = weekly(q.CommitQuality)
	q.ProcessConsistency = weekly(q.ProcessConsistency)
	q.DevelopmentRhythm = weekly(q.DevelopmentRhythm)
	q.ProblemSolvingApproach = weekly(q.ProblemSolvingApproach)
	return q
}

func collapseSatisfaction(s SatisfactionBreakdown) SatisfactionBreakdown {
	return SatisfactionBreakdown{
		SatisfactionScore:    weekly(s.SatisfactionScore),
		RequirementAlignment: weekly(s.RequirementAlignment),
		ProcessQuality:       weekly(s.ProcessQuality),
		BusinessValue:        weekly(s.BusinessValue),
		Usability:            weekly(s.Usability),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func groupByWeek(personID generic.PersonID, weeks []period.WeekID, records []AxisEvaluation) map[period.WeekID][]AxisEvaluation {
	wanted := make(map[period.WeekID]bool, len(weeks))
	for _, w := range weeks {
		wanted[w] = true
	}
	out := make(map[period.WeekID][]AxisEvaluation)
	for _, rec := range records {
		h := rec.header()
		if h.PersonID != personID || !h.Completed() || h.SubmittedLate() || !wanted[h.Week] {
			continue
		}
		out[h.Week] = append(out[h.Week], rec)
	}
	return out
}

func dedupeWeeks(weeks []period.WeekID) []period.WeekID {
	seen := make(map[period.WeekID]bool, len(weeks))
	out := make([]period.WeekID, 0, len(weeks))
	for _, w := range weeks {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func mergeWeeks(a, b []period.WeekID) []period.WeekID {
	out := dedupeWeeks(append(append([]period.WeekID(nil), a...), b...))
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
