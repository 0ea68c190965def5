package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/evaluation-engine/factory"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage compensation configuration rows",
	}

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Append base salary, incentive and allowance rows from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			set, err := factory.ParseConfigFile(args[0], data)
			if err != nil {
				return err
			}
			if err := a.store.SaveConfig(cmd.Context(), set); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d base salary, %d incentive, %d allowance rows\n",
				len(set.BaseSalaries), len(set.Incentives), len(set.Allowances))
			return nil
		},
	}

	cmd.AddCommand(importCmd)
	return cmd
}
