package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/evaluation-engine/compensation"
	"github.com/warp/evaluation-engine/generic"
)

// =============================================================================
// PAYROLL RUN
// =============================================================================

// Run is the result of pricing every evaluated person for one month.
type Run struct {
	ID        string
	Month     generic.Month
	CreatedAt time.Time
	Curve     string

	Lines   []Line
	Skipped []generic.PersonID // evaluated but without completed records

	TotalNet decimal.Decimal
}

// Line is one priced person of a run.
type Line struct {
	Person       generic.Person
	TotalPoints  float64
	Compensation compensation.Compensation
}

// LineFor returns the line of a person.
func (r Run) LineFor(id generic.PersonID) (Line, bool) {
	for _, l := range r.Lines {
		if l.Person.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

func sumNet(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Compensation.Net)
	}
	return total
}

// =============================================================================
// OVERDUE SWEEP
// =============================================================================

// SweepResult reports what one overdue sweep changed.
type SweepResult struct {
	Marked    int // pending records now overdue
	Penalties int // penalty records appended
}
