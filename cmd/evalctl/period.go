package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

func newPeriodCmd(a *app) *cobra.Command {
	var kind, ref string

	cmd := &cobra.Command{
		Use:   "period",
		Short: "Resolve a period into its qualifying weeks",
		Example: `  evalctl period --kind week --ref 2025-W11
  evalctl period --kind month --ref 2025-03
  evalctl period --kind half --ref 2025-H1
  evalctl period --kind month`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := period.ParseKind(kind)
			if err != nil {
				return err
			}

			var r *period.Reference
			if ref != "" {
				parsed, err := parseReference(k, ref)
				if err != nil {
					return err
				}
				r = &parsed
			}

			window, err := a.engine.Window(cmd.Context(), k, r)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s .. %s\n", window.Label, window.Start, window.End)
			for _, wk := range window.Weeks {
				fmt.Fprintf(out, "  %s  %d days\n", wk.ID, len(wk.Dates))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(period.KindMonth), "period kind: week, month or half")
	cmd.Flags().StringVar(&ref, "ref", "", "period reference, e.g. 2025-W11, 2025-03, 2025-H1 (default: current)")
	return cmd
}

// parseReference reads the textual form of a period of the given kind.
func parseReference(kind period.Kind, s string) (period.Reference, error) {
	switch kind {
	case period.KindWeek:
		id, err := period.ParseWeekID(s)
		if err != nil {
			return period.Reference{}, err
		}
		return period.Reference{Year: id.Year, Week: id}, nil

	case period.KindMonth:
		m, err := generic.ParseMonth(s)
		if err != nil {
			return period.Reference{}, err
		}
		return period.Reference{Year: m.Year, Month: m.Month}, nil

	case period.KindHalf:
		yearPart, halfPart, ok := strings.Cut(s, "-")
		if !ok {
			return period.Reference{}, &generic.InvalidPeriodError{Field: "half", Value: s}
		}
		year, err := strconv.Atoi(yearPart)
		if err != nil {
			return period.Reference{}, &generic.InvalidPeriodError{Field: "year", Value: yearPart}
		}
		half, err := period.ParseHalf(halfPart)
		if err != nil {
			return period.Reference{}, err
		}
		return period.Reference{Year: year, Half: half}, nil
	}
	return period.Reference{}, &generic.InvalidPeriodError{Field: "kind", Value: string(kind)}
}
