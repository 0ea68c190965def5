/*
Package generic provides the shared vocabulary of the evaluation engine.

PURPOSE:
  This package contains the types every other package speaks: who is
  evaluated (Person, Role, Tier, EmploymentType), when (TimePoint, Period,
  Month), and what can go wrong (errors.go). It holds no algorithms beyond
  calendar arithmetic.

KEY CONCEPTS IN THIS FILE (types.go):
  - Person: One evaluated individual with role, tier, employment type, FTE
  - Role: Coarse job category; defines cohorts and compensation table keys
  - Tier: Ordinal seniority T0 (lowest) .. T7 (highest)
  - Month: A YYYY-MM calendar month (effective months, payroll months)

DESIGN PRINCIPLES:
  1. Closed sets: roles and tiers parse strictly, unknown values are errors
  2. Type Safety: PersonID is a distinct type so it cannot be mixed with
     evaluator or row identifiers
  3. Gates first: IsEvaluated and ActiveDuring are checked before any math

SEE ALSO:
  - month.go: Month parsing and ordering
  - errors.go: Error taxonomy
  - period/: ISO-week window resolution built on TimePoint
*/
package generic

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PersonID string

// =============================================================================
// ROLE - Cohort and compensation key
// =============================================================================

type Role string

const (
	RoleCorp     Role = "CORP"
	RoleEngineer Role = "ENGINEER"
	RoleDesigner Role = "DESIGNER"
	RoleOperator Role = "OPERATOR"

	// Administrative roles are never evaluated.
	RoleAdmin     Role = "ADMIN"
	RoleRequestor Role = "REQUESTOR"
	RoleSuperuser Role = "SUPERUSER"
)

// EvaluableRoles lists the roles that form evaluation cohorts, in display order.
var EvaluableRoles = []Role{RoleCorp, RoleEngineer, RoleDesigner, RoleOperator}

// IsEvaluable reports whether persons of this role take part in
// aggregation, ranking and compensation.
func (r Role) IsEvaluable() bool {
	switch r {
	case RoleCorp, RoleEngineer, RoleDesigner, RoleOperator:
		return true
	default:
		return false
	}
}

// ParseRole accepts any of the known roles, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleCorp, RoleEngineer, RoleDesigner, RoleOperator,
		RoleAdmin, RoleRequestor, RoleSuperuser:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidPerson, s)
}

// =============================================================================
// TIER - Ordinal seniority T0..T7
// =============================================================================

type Tier int

const (
	MinTier Tier = 0
	MaxTier Tier = 7
)

func (t Tier) String() string { return "T" + strconv.Itoa(int(t)) }

// Valid reports whether the tier lies in T0..T7.
func (t Tier) Valid() bool { return t >= MinTier && t <= MaxTier }

// ParseTier accepts "T3", "t3" or "3".
func ParseTier(s string) (Tier, error) {
	v := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "T")
	n, err := strconv.Atoi(v)
	if err != nil || !Tier(n).Valid() {
		return 0, fmt.Errorf("%w: tier %q must be T0..T7", ErrInvalidPerson, s)
	}
	return Tier(n), nil
}

// =============================================================================
// EMPLOYMENT TYPE - Allowance table key
// =============================================================================

type EmploymentType string

const (
	EmploymentEmployee   EmploymentType = "Employee"
	EmploymentContracted EmploymentType = "Contracted"
	EmploymentOutsourced EmploymentType = "Outsourced"
	EmploymentPartTime   EmploymentType = "PartTime"
)

// =============================================================================
// PERSON - One evaluated individual
// =============================================================================

// DefaultFTE is used whenever a person carries no explicit FTE.
const DefaultFTE = 1.0

type Person struct {
	ID             PersonID
	Name           string
	Role           Role
	Tier           Tier
	EmploymentType EmploymentType

	// FTE scales compensation for partial engagements. Zero means unset.
	FTE float64

	// IsEvaluated gates ranking and compensation entirely.
	IsEvaluated bool

	CreatedAt TimePoint
	RetiredAt *TimePoint // nil = still active
}

// EffectiveFTE returns FTE, falling back to DefaultFTE when unset.
func (p Person) EffectiveFTE() float64 {
	if p.FTE <= 0 {
		return DefaultFTE
	}
	return p.FTE
}

// ActiveDuring returns true if the person existed on or before the end
// of the period and had not retired at or before its start.
func (p Person) ActiveDuring(period Period) bool {
	if !p.CreatedAt.IsZero() && p.CreatedAt.After(period.End) {
		return false
	}
	if p.RetiredAt != nil && !p.RetiredAt.After(period.Start) {
		return false
	}
	return true
}

// InCohort returns true if the person takes part in the role's cohort
// for the period.
func (p Person) InCohort(role Role, period Period) bool {
	return p.IsEvaluated && p.Role == role && role.IsEvaluable() && p.ActiveDuring(period)
}

// Validate checks the closed-set attributes of a person.
func (p Person) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidPerson)
	}
	if _, err := ParseRole(string(p.Role)); err != nil {
		return err
	}
	if !p.Tier.Valid() {
		return fmt.Errorf("%w: tier %d must be T0..T7", ErrInvalidPerson, int(p.Tier))
	}
	if p.FTE < 0 || p.FTE > 1 {
		return fmt.Errorf("%w: fte %v must be within (0, 1]", ErrInvalidPerson, p.FTE)
	}
	return nil
}
