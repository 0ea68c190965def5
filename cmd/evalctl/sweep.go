package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark pending evaluations past their due date overdue and append penalties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.engine.SweepOverdue(cmd.Context(), a.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d overdue, appended %d penalties\n", res.Marked, res.Penalties)
			return nil
		},
	}
}
