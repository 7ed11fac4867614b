package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	persistlog "laborsim.ai/internal/persistence/log"
	"laborsim.ai/internal/persistence/snapshot"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/engine"
)

type verifyReport struct {
	RunID         string `json:"run_id"`
	Months        int    `json:"months"`
	LogMonths     int    `json:"log_months,omitempty"`
	FinalDigest   string `json:"final_digest"`
	CatalogDigest string `json:"catalog_digest"`
	OK            bool   `json:"ok"`
}

// errMismatch is returned when a replay diverges from the saved run.
var errMismatch = errors.New("digest mismatch")

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <run.snap.zst>",
		Short: "Replay a saved run from its scenario and seed and compare month digests",
		Long: `Replay a saved run from its scenario and seed and compare month digests.

With --log the month log written next to the snapshot is checked against
the snapshot as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			logDir, _ := cmd.Flags().GetString("log")

			run, err := snapshot.ReadRun(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			rep, err := verifyRun(run, logDir)
			if jsonOut {
				if werr := writeJSON(cmd.OutOrStdout(), rep); werr != nil {
					return werr
				}
			} else if err == nil {
				st := newStyles(defaultTheme)
				fmt.Fprintf(cmd.OutOrStdout(), "%s run %s: %d months replayed, final digest %s\n",
					st.Title.Render("ok"), rep.RunID, rep.Months, rep.FinalDigest)
			}
			return err
		},
	}
	cmd.Flags().String("log", "", "run directory whose month log is checked too (optional)")
	return cmd
}

func verifyRun(run snapshot.RunV1, logDir string) (verifyReport, error) {
	rep := verifyReport{RunID: run.Header.RunID}
	res, err := run.Result()
	if err != nil {
		return rep, err
	}
	cat := catalogs.Default()
	rep.CatalogDigest = cat.Digest
	if res.CatalogDigest != "" && res.CatalogDigest != cat.Digest {
		return rep, fmt.Errorf("%w: catalog %s, snapshot was written with %s", errMismatch, cat.Digest, res.CatalogDigest)
	}

	sim, err := engine.New(res.Scenario, engine.Options{RunID: res.RunID, Catalog: cat})
	if err != nil {
		return rep, err
	}
	for i, want := range res.Digests() {
		month, got, err := sim.StepOnce()
		if err != nil {
			return rep, fmt.Errorf("replay month %d: %w", i+1, err)
		}
		if got != want {
			return rep, fmt.Errorf("%w at month %d: got %s want %s", errMismatch, month, got, want)
		}
		rep.Months = month
		rep.FinalDigest = got
	}

	if logDir != "" {
		entries, err := persistlog.ReadMonths(logDir)
		if err != nil {
			return rep, fmt.Errorf("read month log: %w", err)
		}
		digests := res.Digests()
		for _, e := range entries {
			if e.Month < 1 || e.Month > len(digests) {
				return rep, fmt.Errorf("%w: month log has month %d, snapshot has %d", errMismatch, e.Month, len(digests))
			}
			if e.Digest != digests[e.Month-1] {
				return rep, fmt.Errorf("%w at logged month %d: got %s want %s", errMismatch, e.Month, e.Digest, digests[e.Month-1])
			}
		}
		rep.LogMonths = len(entries)
	}
	rep.OK = true
	return rep, nil
}
