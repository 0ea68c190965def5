package compensation

import (
	"fmt"

	"github.com/warp/evaluation-engine/cohort"
	"github.com/warp/evaluation-engine/generic"
)

// Midpoint is the interpolation position used whenever the cohort cannot
// discriminate: a cohort of one, or everybody tied.
const Midpoint = 0.5

// Curve maps a standing within a ranked cohort to an interpolation
// position t in [0, 1]. The top of the cohort approaches 1 and the
// bottom approaches 0. Curves are only consulted for non-degenerate
// cohorts.
type Curve interface {
	Name() string
	Position(stat cohort.Stat, st cohort.Standing) float64
}

// Curve names accepted by ParseCurve.
const (
	CurveLinearRank      = "linear_rank"
	CurveLinearDeviation = "linear_deviation"
	CurvePercentile      = "percentile"
)

// ParseCurve returns the curve registered under name.
func ParseCurve(name string) (Curve, error) {
	switch name {
	case "", CurveLinearRank:
		return LinearRank{}, nil
	case CurveLinearDeviation:
		return LinearDeviation{}, nil
	case CurvePercentile:
		return Percentile{}, nil
	}
	return nil, fmt.Errorf("%w: unknown incentive curve %q", generic.ErrConfigParse, name)
}

// LinearRank places rank 1 at 1 and rank N at 0, evenly spaced.
type LinearRank struct{}

func (LinearRank) Name() string { return CurveLinearRank }

func (LinearRank) Position(stat cohort.Stat, st cohort.Standing) float64 {
	n := stat.Size()
	return float64(n-st.Rank) / float64(n-1)
}

// LinearDeviation spreads the cohort's deviation range over 0..1. Tied
// members share a position.
type LinearDeviation struct{}

func (LinearDeviation) Name() string { return CurveLinearDeviation }

func (LinearDeviation) Position(stat cohort.Stat, st cohort.Standing) float64 {
	hi := stat.Standings[0].Deviation
	lo := stat.Standings[stat.Size()-1].Deviation
	if hi == lo {
		return Midpoint
	}
	return (st.Deviation - lo) / (hi - lo)
}

// Percentile is the share of the other members with strictly fewer
// points. Tied members share a position.
type Percentile struct{}

func (Percentile) Name() string { return CurvePercentile }

func (Percentile) Position(stat cohort.Stat, st cohort.Standing) float64 {
	below := 0
	for _, other := range stat.Standings {
		if other.TotalPoints < st.TotalPoints {
			below++
		}
	}
	return float64(below) / float64(stat.Size()-1)
}
