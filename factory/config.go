package factory

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/evaluation-engine/compensation"
	"github.com/warp/evaluation-engine/generic"
)

// =============================================================================
// JSON/YAML SCHEMA TYPES
// =============================================================================

// ConfigJSON is the import/export form of the three compensation tables.
//
//	base_salaries:
//	  - role: ENGINEER
//	    tier: T3
//	    effective_month: "2025-04"
//	    base_salary: "320000"
//	incentives:
//	  - role: ENGINEER
//	    effective_month: "2025-01"
//	    min_incentive: "0"
//	    max_incentive: "100000"
//	allowances:
//	  - employment_type: Employee
//	    effective_month: "2024-10"
//	    allowance: "20000"
type ConfigJSON struct {
	BaseSalaries []BaseSalaryJSON `json:"base_salaries,omitempty" yaml:"base_salaries,omitempty"`
	Incentives   []IncentiveJSON  `json:"incentives,omitempty" yaml:"incentives,omitempty"`
	Allowances   []AllowanceJSON  `json:"allowances,omitempty" yaml:"allowances,omitempty"`
}

type BaseSalaryJSON struct {
	ID             string          `json:"id,omitempty" yaml:"id,omitempty"`
	Role           string          `json:"role" yaml:"role"`
	Tier           string          `json:"tier" yaml:"tier"`
	EffectiveMonth string          `json:"effective_month" yaml:"effective_month"`
	BaseSalary     decimal.Decimal `json:"base_salary" yaml:"base_salary"`
}

type IncentiveJSON struct {
	ID             string          `json:"id,omitempty" yaml:"id,omitempty"`
	Role           string          `json:"role" yaml:"role"`
	EffectiveMonth string          `json:"effective_month" yaml:"effective_month"`
	MinIncentive   decimal.Decimal `json:"min_incentive" yaml:"min_incentive"`
	MaxIncentive   decimal.Decimal `json:"max_incentive" yaml:"max_incentive"`
}

type AllowanceJSON struct {
	ID             string          `json:"id,omitempty" yaml:"id,omitempty"`
	EmploymentType string          `json:"employment_type" yaml:"employment_type"`
	EffectiveMonth string          `json:"effective_month" yaml:"effective_month"`
	Allowance      decimal.Decimal `json:"allowance" yaml:"allowance"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseConfigFile decodes a config document, choosing YAML or JSON by
// file extension.
func ParseConfigFile(name string, data []byte) (compensation.ConfigSet, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return ParseConfigYAML(data)
	default:
		return ParseConfig(data)
	}
}

// ParseConfig decodes a JSON config document.
func ParseConfig(data []byte) (compensation.ConfigSet, error) {
	var cj ConfigJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return compensation.ConfigSet{}, fmt.Errorf("%w: failed to parse config JSON: %v", generic.ErrConfigParse, err)
	}
	return ConfigFromJSON(cj)
}

// ParseConfigYAML decodes a YAML config document.
func ParseConfigYAML(data []byte) (compensation.ConfigSet, error) {
	var cj ConfigJSON
	if err := yaml.Unmarshal(data, &cj); err != nil {
		return compensation.ConfigSet{}, fmt.Errorf("%w: failed to parse config YAML: %v", generic.ErrConfigParse, err)
	}
	return ConfigFromJSON(cj)
}

// ConfigFromJSON converts and validates rows. Rows without id get a UUID.
func ConfigFromJSON(cj ConfigJSON) (compensation.ConfigSet, error) {
	var set compensation.ConfigSet

	for _, r := range cj.BaseSalaries {
		role, err := generic.ParseRole(r.Role)
		if err != nil {
			return compensation.ConfigSet{}, err
		}
		tier, err := generic.ParseTier(r.Tier)
		if err != nil {
			return compensation.ConfigSet{}, err
		}
		set.BaseSalaries = append(set.BaseSalaries, compensation.BaseSalaryRow{
			ID:             rowID(r.ID),
			Role:           role,
			Tier:           tier,
			EffectiveMonth: r.EffectiveMonth,
			BaseSalary:     r.BaseSalary,
		})
	}

	for _, r := range cj.Incentives {
		role, err := generic.ParseRole(r.Role)
		if err != nil {
			return compensation.ConfigSet{}, err
		}
		set.Incentives = append(set.Incentives, compensation.IncentiveRow{
			ID:             rowID(r.ID),
			Role:           role,
			EffectiveMonth: r.EffectiveMonth,
			MinIncentive:   r.MinIncentive,
			MaxIncentive:   r.MaxIncentive,
		})
	}

	for _, r := range cj.Allowances {
		et, err := ParseEmploymentType(r.EmploymentType)
		if err != nil {
			return compensation.ConfigSet{}, err
		}
		set.Allowances = append(set.Allowances, compensation.AllowanceRow{
			ID:             rowID(r.ID),
			EmploymentType: et,
			EffectiveMonth: r.EffectiveMonth,
			Allowance:      r.Allowance,
		})
	}

	if err := set.Validate(); err != nil {
		return compensation.ConfigSet{}, err
	}
	return set, nil
}

// ConfigToJSON renders a config set for export.
func ConfigToJSON(set compensation.ConfigSet) ConfigJSON {
	var cj ConfigJSON
	for _, r := range set.BaseSalaries {
		cj.BaseSalaries = append(cj.BaseSalaries, BaseSalaryJSON{
			ID: r.ID, Role: string(r.Role), Tier: r.Tier.String(),
			EffectiveMonth: r.EffectiveMonth, BaseSalary: r.BaseSalary,
		})
	}
	for _, r := range set.Incentives {
		cj.Incentives = append(cj.Incentives, IncentiveJSON{
			ID: r.ID, Role: string(r.Role), EffectiveMonth: r.EffectiveMonth,
			MinIncentive: r.MinIncentive, MaxIncentive: r.MaxIncentive,
		})
	}
	for _, r := range set.Allowances {
		cj.Allowances = append(cj.Allowances, AllowanceJSON{
			ID: r.ID, EmploymentType: string(r.EmploymentType),
			EffectiveMonth: r.EffectiveMonth, Allowance: r.Allowance,
		})
	}
	return cj
}

// ParseEmploymentType accepts the known employment types case-insensitively.
func ParseEmploymentType(s string) (generic.EmploymentType, error) {
	for _, et := range []generic.EmploymentType{
		generic.EmploymentEmployee,
		generic.EmploymentContracted,
		generic.EmploymentOutsourced,
		generic.EmploymentPartTime,
	} {
		if strings.EqualFold(string(et), strings.TrimSpace(s)) {
			return et, nil
		}
	}
	return "", fmt.Errorf("%w: unknown employment type %q", generic.ErrInvalidPerson, s)
}

func rowID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
