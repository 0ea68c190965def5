/*
Package cohort ranks the members of one role within one period.

PURPOSE:
  A person's standing is only meaningful against same-role peers in the
  same period. Rank orders the cohort by total points and rescales each
  member's z-score onto a 50-centered, 10-wide deviation score.

RULES:
  - Rank 1 is the highest total. Ties get distinct sequential ranks in
    stable input order; nobody shares a rank.
  - Standard deviation is the population form sqrt(mean((x-mean)^2)).
  - deviation = 50 + 10 * (x - mean) / stddev, rounded to one decimal
    half away from zero. A cohort whose members all tie scores 50.0.
  - No clamping. Deviation may leave 0..100 at population extremes.

SEE ALSO:
  - evaluation/: Produces the totals ranked here
  - compensation/: Interpolates incentives from a Standing
*/
package cohort

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

// CenterScore is the deviation score of a member exactly at the mean.
const CenterScore = 50.0

// ScoreScale is the deviation distance of one standard deviation.
const ScoreScale = 10.0

// Member is one cohort entry before ranking.
type Member struct {
	PersonID    generic.PersonID
	TotalPoints float64
}

// Standing is a ranked member.
type Standing struct {
	PersonID    generic.PersonID
	TotalPoints float64
	Rank        int
	Deviation   float64
}

// Stat is the ranked cohort of one role in one period. It is computed
// on demand and never persisted.
type Stat struct {
	Role      generic.Role
	Label     string
	Mean      float64
	StdDev    float64
	Standings []Standing // rank order
}

// Size returns the number of ranked members.
func (s Stat) Size() int { return len(s.Standings) }

// Lookup returns the standing of a person.
func (s Stat) Lookup(id generic.PersonID) (Standing, bool) {
	for _, st := range s.Standings {
		if st.PersonID == id {
			return st, true
		}
	}
	return Standing{}, false
}

// Degenerate reports whether the cohort cannot discriminate between its
// members: fewer than two of them, or everybody tied.
func (s Stat) Degenerate() bool { return len(s.Standings) < 2 || s.StdDev == 0 }

// Members returns the cohort entries in rank order.
func (s Stat) Members() []Member {
	out := make([]Member, len(s.Standings))
	for i, st := range s.Standings {
		out[i] = Member{PersonID: st.PersonID, TotalPoints: st.TotalPoints}
	}
	return out
}

// =============================================================================
// SELECTION
// =============================================================================

// Select builds the cohort of a role for a window: evaluated persons of
// that role who were active during the window and have an aggregate.
// Persons without an aggregate (no data) are left out rather than scored
// as zero. Input order of persons is preserved.
func Select(role generic.Role, window period.Window, persons []generic.Person, aggregates map[generic.PersonID]evaluation.AggregatedEvaluation) []Member {
	span := window.Period()
	var members []Member
	for _, p := range persons {
		if !p.InCohort(role, span) {
			continue
		}
		agg, ok := aggregates[p.ID]
		if !ok {
			continue
		}
		members = append(members, Member{PersonID: p.ID, TotalPoints: agg.TotalPoints})
	}
	return members
}

// Build is Select followed by Rank.
func Build(role generic.Role, window period.Window, persons []generic.Person, aggregates map[generic.PersonID]evaluation.AggregatedEvaluation) Stat {
	return Rank(role, window.Label, Select(role, window, persons, aggregates))
}

// =============================================================================
// RANKING
// =============================================================================

// Rank sorts the members and assigns ranks and deviation scores. The
// input slice is not modified.
func Rank(role generic.Role, label string, members []Member) Stat {
	stat := Stat{Role: role, Label: label}
	if len(members) == 0 {
		return stat
	}

	sorted := append([]Member(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalPoints > sorted[j].TotalPoints
	})

	stat.Mean, stat.StdDev = meanStdDev(sorted)
	stat.Standings = make([]Standing, len(sorted))
	for i, m := range sorted {
		stat.Standings[i] = Standing{
			PersonID:    m.PersonID,
			TotalPoints: m.TotalPoints,
			Rank:        i + 1,
			Deviation:   deviation(m.TotalPoints, stat.Mean, stat.StdDev),
		}
	}
	return stat
}

// meanStdDev returns the mean and population standard deviation. A
// cohort whose values are all equal reports exactly 0 so that float
// noise in the mean cannot produce a spurious spread.
func meanStdDev(members []Member) (float64, float64) {
	var sum float64
	lo, hi := members[0].TotalPoints, members[0].TotalPoints
	for _, m := range members {
		sum += m.TotalPoints
		lo = math.Min(lo, m.TotalPoints)
		hi = math.Max(hi, m.TotalPoints)
	}
	mean := sum / float64(len(members))
	if lo == hi {
		return lo, 0
	}

	var sq float64
	for _, m := range members {
		d := m.TotalPoints - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(members)))
}

func deviation(x, mean, sd float64) float64 {
	if sd == 0 {
		return CenterScore
	}
	raw := CenterScore + ScoreScale*(x-mean)/sd
	return decimal.NewFromFloat(raw).Round(1).InexactFloat64()
}
