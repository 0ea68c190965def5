package compensation

import (
	"github.com/shopspring/decimal"

	"github.com/warp/evaluation-engine/cohort"
	"github.com/warp/evaluation-engine/generic"
)

// DefaultWithholdingRate is the tax withheld from the unit price.
var DefaultWithholdingRate = decimal.RequireFromString("0.10")

// =============================================================================
// INPUT AND RESULT
// =============================================================================

// Input carries everything needed to price one person for one month.
type Input struct {
	Person      generic.Person
	TargetMonth generic.Month

	// TotalPoints is the person's aggregate for the target month.
	TotalPoints float64

	// Cohort holds the same-role totals of the target month. The person
	// is added when missing; an empty cohort is a cohort of one.
	Cohort []cohort.Member

	Config ConfigSet
}

// Compensation is the priced result. Amounts are in the configured
// currency; Net is rounded to whole units.
type Compensation struct {
	PersonID  generic.PersonID
	Month     generic.Month
	Evaluated bool

	BaseSalary decimal.Decimal
	Incentive  decimal.Decimal
	Allowance  decimal.Decimal
	UnitPrice  decimal.Decimal
	Net        decimal.Decimal

	Rank       int
	CohortSize int
	Deviation  float64
	Position   float64 // curve position t in [0, 1]
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver computes compensation. The zero value is not usable; create
// one with NewResolver.
type Resolver struct {
	curve           Curve
	withholdingRate decimal.Decimal
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCurve selects the incentive interpolation strategy.
func WithCurve(c Curve) Option {
	return func(r *Resolver) {
		if c != nil {
			r.curve = c
		}
	}
}

// WithWithholdingRate overrides the 10% withholding rate.
func WithWithholdingRate(rate decimal.Decimal) Option {
	return func(r *Resolver) { r.withholdingRate = rate }
}

// NewResolver creates a resolver using LinearRank and the default
// withholding rate unless overridden.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		curve:           LinearRank{},
		withholdingRate: DefaultWithholdingRate,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Curve returns the configured interpolation strategy.
func (r *Resolver) Curve() Curve { return r.curve }

// Resolve prices one person for the target month.
func (r *Resolver) Resolve(in Input) (Compensation, error) {
	out := Compensation{
		PersonID:   in.Person.ID,
		Month:      in.TargetMonth,
		BaseSalary: decimal.Zero,
		Incentive:  decimal.Zero,
		Allowance:  decimal.Zero,
		UnitPrice:  decimal.Zero,
		Net:        decimal.Zero,
	}
	if !in.Person.IsEvaluated {
		return out, nil
	}
	out.Evaluated = true

	base, err := in.Config.BaseSalary(in.Person.Role, in.Person.Tier, in.TargetMonth)
	if err != nil {
		return Compensation{}, err
	}
	minInc, maxInc, err := in.Config.IncentiveRange(in.Person.Role, in.TargetMonth)
	if err != nil {
		return Compensation{}, err
	}
	allowance, err := in.Config.Allowance(in.Person.EmploymentType, in.TargetMonth)
	if err != nil {
		return Compensation{}, err
	}

	stat := cohort.Rank(in.Person.Role, in.TargetMonth.String(), withPerson(in.Cohort, in.Person.ID, in.TotalPoints))
	st, _ := stat.Lookup(in.Person.ID)

	t := Midpoint
	if !stat.Degenerate() {
		t = clamp01(r.curve.Position(stat, st))
	}

	incentive := minInc.Add(maxInc.Sub(minInc).Mul(decimal.NewFromFloat(t)))
	unit := base.Add(incentive).Add(allowance)
	fte := decimal.NewFromFloat(in.Person.EffectiveFTE())
	net := unit.Mul(decimal.NewFromInt(1).Sub(r.withholdingRate)).Mul(fte).Round(0)

	out.BaseSalary = base
	out.Incentive = incentive
	out.Allowance = allowance
	out.UnitPrice = unit
	out.Net = net
	out.Rank = st.Rank
	out.CohortSize = stat.Size()
	out.Deviation = st.Deviation
	out.Position = t
	return out, nil
}

// withPerson returns a copy of members in which the person carries the
// given total, appending them when absent.
func withPerson(members []cohort.Member, id generic.PersonID, total float64) []cohort.Member {
	out := make([]cohort.Member, 0, len(members)+1)
	found := false
	for _, m := range members {
		if m.PersonID == id {
			m.TotalPoints = total
			found = true
		}
		out = append(out, m)
	}
	if !found {
		out = append(out, cohort.Member{PersonID: id, TotalPoints: total})
	}
	return out
}

func clamp01(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}
