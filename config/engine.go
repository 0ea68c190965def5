package config

import (
	"github.com/warp/evaluation-engine/compensation"
	"github.com/warp/evaluation-engine/engine"
)

// EngineOptions translates the evaluation and pricing settings into
// engine options. Logger and metrics are left to the caller.
func (c *Config) EngineOptions() ([]engine.Option, error) {
	weights, err := c.Weights()
	if err != nil {
		return nil, err
	}
	curve, err := c.Curve()
	if err != nil {
		return nil, err
	}

	resolver := compensation.NewResolver(
		compensation.WithCurve(curve),
		compensation.WithWithholdingRate(c.Withholding()),
	)

	return []engine.Option{
		engine.WithRoleWeights(weights),
		engine.WithResolver(resolver),
		engine.WithWorkers(c.PayrollWorkers),
		engine.WithOverduePenalty(c.OverduePenaltyPoints),
	}, nil
}
