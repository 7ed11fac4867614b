package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"laborsim.ai/internal/persistence/snapshot"
	"laborsim.ai/internal/sim/scenario"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <run.snap.zst>",
		Short: "Show the header and summary of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			showMonths, _ := cmd.Flags().GetBool("months")

			run, err := snapshot.ReadRun(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			res, err := run.Result()
			if err != nil {
				return err
			}

			if jsonOut {
				out := map[string]any{
					"header":   run.Header,
					"scenario": res.Scenario,
					"summary":  res.Summary,
				}
				if showMonths {
					out["months"] = res.Months
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			st := newStyles(defaultTheme)
			h := run.Header
			header := []kv{
				{"run", h.RunID},
				{"scenario", res.Scenario.Name},
				{"seed", fmt.Sprintf("%d", h.Seed)},
				{"months", fmt.Sprintf("%d/%d", h.Month, h.Months)},
				{"completed", fmt.Sprintf("%v", h.Completed)},
				{"created", h.CreatedAt},
				{"population", fmt.Sprintf("%d workers, %d firms, %d regions", res.Scenario.NumWorkers, res.Scenario.NumFirms, res.Scenario.NumRegions)},
				{"interventions", interventionList(res.Scenario.Interventions)},
			}
			w := cmd.OutOrStdout()
			fmt.Fprint(w, renderSummary(st, "labsim snapshot v"+fmt.Sprint(h.Version), header, res.Summary))
			if showMonths {
				fmt.Fprintln(w, st.Dim.Render("month  unemp   partic  median   gini   adopt  frontier  hires  layoffs"))
				for _, m := range res.Months {
					fmt.Fprintf(w, "%5d  %.3f  %.3f  %7.0f  %.3f  %.3f  %.3f     %5d  %7d\n",
						m.Month, m.UnemploymentRate, m.ParticipationRate, m.MedianWage, m.WageGini,
						m.AdoptingFirmShare, m.FrontierLevel, m.Hires, m.Layoffs)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("months", false, "include the monthly time series")
	return cmd
}

func interventionList(ivs []scenario.Intervention) string {
	if len(ivs) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.Active {
			continue
		}
		p := iv.Type
		switch {
		case iv.StartMonth > 0 && iv.EndMonth > 0:
			p += fmt.Sprintf(" [%d-%d]", iv.StartMonth, iv.EndMonth)
		case iv.StartMonth > 0:
			p += fmt.Sprintf(" [%d-]", iv.StartMonth)
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "none active"
	}
	return strings.Join(parts, ", ")
}
