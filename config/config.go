// Package config defines process configuration and its layered loading.
//
// Conventions:
//   - New(ctx) builds a Config with defaults.
//   - Load(ctx) layers an optional YAML file and EVAL_ environment
//     variables on top of the defaults.
//   - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/evaluation-engine/compensation"
	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/generic"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. Empty runs on the in-memory store.
	DBPath string `koanf:"db_path"`

	// WithholdingRate is the tax share withheld from the unit price.
	WithholdingRate float64 `koanf:"withholding_rate"`

	// IncentiveCurve selects the incentive interpolation strategy:
	// linear_rank, linear_deviation or percentile.
	IncentiveCurve string `koanf:"incentive_curve"`

	// RoleWeights scales weekly base points per role.
	RoleWeights map[string]float64 `koanf:"role_weights"`

	// OverduePenaltyPoints is deducted from evaluator and evaluatee when a
	// pending evaluation passes its due date.
	OverduePenaltyPoints float64 `koanf:"overdue_penalty_points"`

	// OverdueCheckInterval is how often the scheduler sweeps for overdue
	// evaluations.
	OverdueCheckInterval time.Duration `koanf:"overdue_check_interval"`

	// PayrollWorkers bounds the per-role fan-out of a payroll run.
	PayrollWorkers int `koanf:"payroll_workers"`

	// AllowedOrigins lists CORS origins accepted by the API.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// New creates a Config with defaults. Context is accepted first to
// follow the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":8080",
		DBPath:               "evaluation.db",
		WithholdingRate:      0.10,
		IncentiveCurve:       compensation.CurveLinearRank,
		RoleWeights:          map[string]float64{},
		OverduePenaltyPoints: 20,
		OverdueCheckInterval: time.Hour,
		PayrollWorkers:       4,
		AllowedOrigins:       []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Validate checks ranges and closed sets.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.WithholdingRate < 0 || c.WithholdingRate >= 1 {
		return fmt.Errorf("%w: withholding_rate %v must be within [0, 1)", ErrInvalidConfig, c.WithholdingRate)
	}
	if _, err := compensation.ParseCurve(c.IncentiveCurve); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Weights(); err != nil {
		return err
	}
	if c.OverduePenaltyPoints < 0 {
		return fmt.Errorf("%w: overdue_penalty_points must not be negative", ErrInvalidConfig)
	}
	if c.OverdueCheckInterval <= 0 {
		return fmt.Errorf("%w: overdue_check_interval must be positive", ErrInvalidConfig)
	}
	if c.PayrollWorkers < 1 {
		return fmt.Errorf("%w: payroll_workers must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Weights converts the role_weights map into typed role weights.
func (c *Config) Weights() (evaluation.RoleWeights, error) {
	out := make(evaluation.RoleWeights, len(c.RoleWeights))
	for name, w := range c.RoleWeights {
		role, err := generic.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("%w: role_weights: %v", ErrInvalidConfig, err)
		}
		if w <= 0 {
			return nil, fmt.Errorf("%w: role_weights.%s must be positive", ErrInvalidConfig, strings.ToLower(name))
		}
		out[role] = w
	}
	return out, nil
}

// Withholding returns the withholding rate as a decimal.
func (c *Config) Withholding() decimal.Decimal {
	return decimal.NewFromFloat(c.WithholdingRate)
}

// Curve returns the configured incentive curve.
func (c *Config) Curve() (compensation.Curve, error) {
	return compensation.ParseCurve(c.IncentiveCurve)
}
