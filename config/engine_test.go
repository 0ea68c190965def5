package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/warp/evaluation-engine/config"
	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/store/memory"
)

func TestEngineOptions(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When building engine options", func() {
			opts, err := cfg.EngineOptions()

			convey.Convey("Then they configure an engine", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(opts, convey.ShouldHaveLength, 4)

				eng := engine.New(memory.New(), opts...)
				convey.So(eng.Resolver(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the curve is unknown", func() {
			cfg.IncentiveCurve = "exponential"
			_, err := cfg.EngineOptions()

			convey.Convey("Then building options fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a role weight names an unknown role", func() {
			cfg.RoleWeights = map[string]float64{"pilot": 2}
			_, err := cfg.EngineOptions()

			convey.Convey("Then it is a config error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
