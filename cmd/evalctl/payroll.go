package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/generic"
)

func newPayrollCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Run and inspect monthly payroll",
	}

	var month string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Price every evaluated person for a month and store the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.engine.DefaultMonth()
			if month != "" {
				parsed, err := generic.ParseMonth(month)
				if err != nil {
					return err
				}
				m = parsed
			}

			run, err := a.engine.RunPayroll(cmd.Context(), m)
			if err != nil {
				return err
			}
			return printRun(cmd.OutOrStdout(), run)
		},
	}
	runCmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: previous month)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored payroll runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.store.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tMONTH\tCURVE\tLINES\tTOTAL NET")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", run.ID, run.Month, run.Curve, len(run.Lines), run.TotalNet)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(runCmd, listCmd)
	return cmd
}

func printRun(out io.Writer, run engine.Run) error {
	fmt.Fprintf(out, "run %s  month %s  curve %s\n", run.ID, run.Month, run.Curve)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PERSON\tROLE\tRANK\tPOINTS\tBASE\tINCENTIVE\tALLOWANCE\tNET\t")
	for _, l := range run.Lines {
		c := l.Compensation
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%.0f\t%s\t%s\t%s\t%s\t\n",
			l.Person.ID, l.Person.Role, c.Rank, c.CohortSize, l.TotalPoints,
			c.BaseSalary, c.Incentive, c.Allowance, c.Net)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, id := range run.Skipped {
		fmt.Fprintf(out, "skipped %s: no completed evaluation\n", id)
	}
	fmt.Fprintf(out, "total net %s\n", run.TotalNet)
	return nil
}
