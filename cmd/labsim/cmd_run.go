package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"laborsim.ai/internal/sim/engine"
	"laborsim.ai/internal/sim/scenario"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario to completion and save the result",
		Long: `Run a scenario to completion and save the result.

Every month is appended to data/runs/<run id>/months, indexed in
data/index.db (unless --no-db) and the final result is written as a
snapshot that inspect and verify can read. Completed runs are also copied
to data/archives/<run id>.`,
		Example: `  labsim run -s configs/baseline.yaml
  labsim run -s configs/ubi.yaml --seed 42 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(cmd)
			if err != nil {
				return err
			}
			cfg, err := storageFlags(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			quiet, _ := cmd.Flags().GetBool("quiet")
			logger := newLogger(cmd)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			runID := uuid.NewString()
			st, err := openStorage(cfg, runID, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			opts := engine.Options{RunID: runID, Logger: logger, Sinks: st.Sinks()}
			if !quiet {
				opts.OnProgress = func(p engine.Progress) {
					fmt.Fprintf(cmd.ErrOrStderr(), "month %d/%d  unemployment=%.3f  adopting=%.3f  frontier=%.3f\n",
						p.Month, p.TotalMonths, p.CurrentStats.UnemploymentRate, p.CurrentStats.AdoptingFirmShare, p.CurrentStats.FrontierLevel)
				}
			}
			sim, err := engine.New(sc, opts)
			if err != nil {
				return err
			}

			st.Start(sim.Scenario())
			res, runErr := sim.Run(ctx)
			status := sim.CurrentState().Status
			done, err := st.Finish(res, status)
			if err != nil {
				return err
			}
			if err := st.Close(); err != nil {
				logger.Printf("close storage: %v", err)
			}

			if jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), struct {
					finishedRun
					Summary any `json:"summary"`
				}{done, res.Summary}); err != nil {
					return err
				}
			} else {
				header := []kv{
					{"run", done.RunID},
					{"scenario", sc.Name},
					{"status", done.Status},
					{"snapshot", done.SnapshotPath},
				}
				fmt.Fprint(cmd.OutOrStdout(), renderSummary(newStyles(defaultTheme), "labsim run", header, res.Summary))
			}
			if runErr != nil && !errors.Is(runErr, ctx.Err()) {
				return fmt.Errorf("run %s: %w", runID, runErr)
			}
			return nil
		},
	}
	cmd.Flags().StringP("scenario", "s", "", "scenario file (YAML or JSON)")
	cmd.Flags().Int64("seed", 0, "override the scenario seed")
	addStorageFlags(cmd)
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("data", "./data", "runtime data directory")
	cmd.Flags().Bool("no-db", false, "disable the SQLite run index")
	cmd.Flags().String("index-endpoint", "", "remote index ingest URL (optional)")
	cmd.Flags().String("index-token", "", "remote index token (default $LABSIM_INDEX_TOKEN)")
}

func storageFlags(cmd *cobra.Command) (storageConfig, error) {
	var cfg storageConfig
	var err error
	if cfg.DataDir, err = cmd.Flags().GetString("data"); err != nil {
		return cfg, err
	}
	if cfg.DisableDB, err = cmd.Flags().GetBool("no-db"); err != nil {
		return cfg, err
	}
	if cfg.IndexEndpoint, err = cmd.Flags().GetString("index-endpoint"); err != nil {
		return cfg, err
	}
	if cfg.IndexToken, err = cmd.Flags().GetString("index-token"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadScenario(cmd *cobra.Command) (scenario.Scenario, error) {
	path, _ := cmd.Flags().GetString("scenario")
	sc, err := scenario.Load(path)
	if err != nil {
		return sc, fmt.Errorf("load scenario: %w", err)
	}
	if cmd.Flags().Changed("seed") {
		sc.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	return sc, nil
}
