package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/warp/evaluation-engine/config"
	"github.com/warp/evaluation-engine/generic"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.LoadFile(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WithholdingRate, convey.ShouldEqual, 0.10)
				convey.So(cfg.IncentiveCurve, convey.ShouldEqual, "linear_rank")
				convey.So(cfg.OverduePenaltyPoints, convey.ShouldEqual, 20.0)
				convey.So(cfg.OverdueCheckInterval, convey.ShouldEqual, time.Hour)
				convey.So(cfg.PayrollWorkers, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("EVAL_ADDR", ":9090")
			_ = os.Setenv("EVAL_WITHHOLDING_RATE", "0.2")
			_ = os.Setenv("EVAL_INCENTIVE_CURVE", "percentile")
			_ = os.Setenv("EVAL_OVERDUE_CHECK_INTERVAL", "15m")
			_ = os.Setenv("EVAL_PAYROLL_WORKERS", "8")
			_ = os.Setenv("EVAL_ROLE_WEIGHTS__ENGINEER", "1.2")
			_ = os.Setenv("EVAL_ALLOWED_ORIGINS", "https://a.example, https://b.example")
			defer clearConfigEnvVars()

			cfg, err := config.LoadFile(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WithholdingRate, convey.ShouldEqual, 0.2)
				convey.So(cfg.IncentiveCurve, convey.ShouldEqual, "percentile")
				convey.So(cfg.OverdueCheckInterval, convey.ShouldEqual, 15*time.Minute)
				convey.So(cfg.PayrollWorkers, convey.ShouldEqual, 8)
				convey.So(cfg.AllowedOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})

				weights, err := cfg.Weights()
				convey.So(err, convey.ShouldBeNil)
				convey.So(weights.For(generic.RoleEngineer), convey.ShouldEqual, 1.2)
				convey.So(weights.For(generic.RoleDesigner), convey.ShouldEqual, 1.0)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := filepath.Join(t.TempDir(), "eval.yaml")
			err := os.WriteFile(path, []byte(`
addr: ":7070"
db_path: "/var/lib/eval/eval.db"
incentive_curve: linear_deviation
overdue_penalty_points: 15
role_weights:
  DESIGNER: 0.9
`), 0o600)
			convey.So(err, convey.ShouldBeNil)

			cfg, err := config.LoadFile(ctx, path)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/var/lib/eval/eval.db")
				convey.So(cfg.IncentiveCurve, convey.ShouldEqual, "linear_deviation")
				convey.So(cfg.OverduePenaltyPoints, convey.ShouldEqual, 15.0)

				weights, err := cfg.Weights()
				convey.So(err, convey.ShouldBeNil)
				convey.So(weights.For(generic.RoleDesigner), convey.ShouldEqual, 0.9)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_, err := config.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value is out of range", func() {
			_ = os.Setenv("EVAL_WITHHOLDING_RATE", "1.5")
			defer clearConfigEnvVars()

			_, err := config.LoadFile(ctx, "")

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the incentive curve is unknown", func() {
			_ = os.Setenv("EVAL_INCENTIVE_CURVE", "sigmoid")
			defer clearConfigEnvVars()

			_, err := config.LoadFile(ctx, "")

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}
