/*
main.go - Operator command line for the evaluation engine

PURPOSE:
  Runs engine operations against the same store the server uses, without
  going through HTTP: resolving periods, importing compensation config,
  running payroll and sweeping overdue evaluations.

COMMANDS:
  evalctl period --kind month --ref 2025-03
  evalctl config import ./compensation.yaml
  evalctl payroll run --month 2025-03
  evalctl payroll list
  evalctl sweep

GLOBAL FLAGS:
  --config  YAML config file (default: $EVAL_CONFIG)
  --db      SQLite database path (overrides db_path)

SEE ALSO:
  - cmd/server/main.go: HTTP server over the same store
  - config/config.go: Configuration keys
*/
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/evaluation-engine/config"
	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/logger"
	"github.com/warp/evaluation-engine/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once the root pre-run has
// loaded the configuration and opened the store.
type app struct {
	cfg    *config.Config
	store  store.Store
	engine *engine.Engine
	now    func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{now: time.Now}
	var (
		configPath string
		dbPath     string
	)

	root := &cobra.Command{
		Use:           "evalctl",
		Short:         "Operate the evaluation and compensation engine",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}

			opts, err := cfg.EngineOptions()
			if err != nil {
				st.Close()
				return err
			}
			opts = append(opts,
				engine.WithLogger(logger.New(cmd.ErrOrStderr()).Named("evalctl")),
				engine.WithClock(a.now),
			)

			a.cfg = cfg
			a.store = st
			a.engine = engine.New(st, opts...)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return nil
			}
			return a.store.Close()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv(config.EnvFile), "YAML config file")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")

	root.AddCommand(
		newPeriodCmd(a),
		newConfigCmd(a),
		newPayrollCmd(a),
		newSweepCmd(a),
	)
	return root
}
