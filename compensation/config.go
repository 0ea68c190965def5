/*
Package compensation resolves versioned pay configuration and computes the
net payment of one person for one month.

PURPOSE:
  Pay is configured in three independently versioned tables. Each row is
  tagged with the month it takes effect. The applicable row for a target
  month is the latest one whose effective month is not after the target:
  configuration changes are never retroactive, and never apply early.

TABLES:
  BaseSalaryRow   keyed by role + tier
  IncentiveRow    keyed by role, a min..max range
  AllowanceRow    keyed by employment type

CALCULATION:
  incentive = min + (max - min) * t        t from a Curve, 0.5 when degenerate
  unitPrice = base + incentive + allowance
  net       = round(unitPrice * (1 - withholdingRate) * fte)

  Persons that are not evaluated receive zero for every amount. That gate
  is checked before any table is read.

SEE ALSO:
  - curve.go: Interpolation strategies
  - resolver.go: Resolve entry point
  - cohort/: Standing used by the curves
*/
package compensation

import (
	"github.com/shopspring/decimal"

	"github.com/warp/evaluation-engine/generic"
)

// Table names used in ConfigParseError.
const (
	TableBaseSalary = "base_salary"
	TableIncentive  = "incentive"
	TableAllowance  = "allowance"
)

// =============================================================================
// CONFIGURATION ROWS
// =============================================================================

// BaseSalaryRow is one version of the base salary of a role and tier.
type BaseSalaryRow struct {
	ID             string
	Role           generic.Role
	Tier           generic.Tier
	EffectiveMonth string // YYYY-MM, parsed at resolution time
	BaseSalary     decimal.Decimal
}

// IncentiveRow is one version of the incentive range of a role.
type IncentiveRow struct {
	ID             string
	Role           generic.Role
	EffectiveMonth string
	MinIncentive   decimal.Decimal
	MaxIncentive   decimal.Decimal
}

// AllowanceRow is one version of the allowance of an employment type.
type AllowanceRow struct {
	ID             string
	EmploymentType generic.EmploymentType
	EffectiveMonth string
	Allowance      decimal.Decimal
}

func (r BaseSalaryRow) version() (string, string) { return r.ID, r.EffectiveMonth }
func (r IncentiveRow) version() (string, string)  { return r.ID, r.EffectiveMonth }
func (r AllowanceRow) version() (string, string)  { return r.ID, r.EffectiveMonth }

// ConfigSet groups the three tables. Rows may appear in any order.
type ConfigSet struct {
	BaseSalaries []BaseSalaryRow
	Incentives   []IncentiveRow
	Allowances   []AllowanceRow
}

// =============================================================================
// RESOLUTION
// =============================================================================

// BaseSalary returns the base salary applicable to role and tier in the
// target month, or zero when nothing is configured.
func (c ConfigSet) BaseSalary(role generic.Role, tier generic.Tier, target generic.Month) (decimal.Decimal, error) {
	row, ok, err := applicable(TableBaseSalary, c.BaseSalaries, target, func(r BaseSalaryRow) bool {
		return r.Role == role && r.Tier == tier
	})
	if err != nil || !ok {
		return decimal.Zero, err
	}
	return row.BaseSalary, nil
}

// IncentiveRange returns the applicable min and max incentive of a role.
func (c ConfigSet) IncentiveRange(role generic.Role, target generic.Month) (decimal.Decimal, decimal.Decimal, error) {
	row, ok, err := applicable(TableIncentive, c.Incentives, target, func(r IncentiveRow) bool {
		return r.Role == role
	})
	if err != nil || !ok {
		return decimal.Zero, decimal.Zero, err
	}
	return row.MinIncentive, row.MaxIncentive, nil
}

// Allowance returns the applicable allowance of an employment type.
func (c ConfigSet) Allowance(et generic.EmploymentType, target generic.Month) (decimal.Decimal, error) {
	row, ok, err := applicable(TableAllowance, c.Allowances, target, func(r AllowanceRow) bool {
		return r.EmploymentType == et
	})
	if err != nil || !ok {
		return decimal.Zero, err
	}
	return row.Allowance, nil
}

type versioned interface {
	version() (id string, effectiveMonth string)
}

// applicable picks, among rows matching the key, the one with the
// greatest effective month not after target. On equal months the row
// appearing later in the input wins. Only matching rows are parsed, so a
// malformed row for another key does not fail the lookup.
func applicable[R versioned](table string, rows []R, target generic.Month, match func(R) bool) (R, bool, error) {
	var (
		best      R
		bestMonth generic.Month
		found     bool
	)
	for _, row := range rows {
		if !match(row) {
			continue
		}
		id, raw := row.version()
		m, err := generic.ParseMonth(raw)
		if err != nil {
			return best, false, &generic.ConfigParseError{Table: table, RowID: id, Value: raw}
		}
		if m.After(target) {
			continue
		}
		if !found || !m.Before(bestMonth) {
			best, bestMonth, found = row, m, true
		}
	}
	return best, found, nil
}

// Validate parses every effective month of the set. Stores call it on
// import so that malformed rows are rejected before they can surface in
// a payroll run.
func (c ConfigSet) Validate() error {
	for _, r := range c.BaseSalaries {
		if err := checkMonth(TableBaseSalary, r); err != nil {
			return err
		}
	}
	for _, r := range c.Incentives {
		if err := checkMonth(TableIncentive, r); err != nil {
			return err
		}
		if r.MaxIncentive.LessThan(r.MinIncentive) {
			return &generic.ValidationError{Field: "max_incentive", Message: "must not be below min_incentive"}
		}
	}
	for _, r := range c.Allowances {
		if err := checkMonth(TableAllowance, r); err != nil {
			return err
		}
	}
	return nil
}

func checkMonth(table string, r versioned) error {
	id, raw := r.version()
	if _, err := generic.ParseMonth(raw); err != nil {
		return &generic.ConfigParseError{Table: table, RowID: id, Value: raw}
	}
	return nil
}
