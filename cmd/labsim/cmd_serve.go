package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"laborsim.ai/internal/sim/engine"
	"laborsim.ai/internal/transport/progress"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a scenario while serving progress, queries and control over HTTP",
		Long: `Run a scenario while serving progress, queries and control over HTTP.

Endpoints:
  GET  /v1/state /v1/regions /v1/programs /v1/wages /v1/events
  POST /v1/control {"action":"pause|resume|stop"}
  WS   /v1/progress
  GET  /healthz /metrics

The server keeps answering queries after the run ends until it is
interrupted, unless --exit-when-done is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(cmd)
			if err != nil {
				return err
			}
			cfg, err := storageFlags(cmd)
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")
			startPaused, _ := cmd.Flags().GetBool("paused")
			exitWhenDone, _ := cmd.Flags().GetBool("exit-when-done")
			logger := newLogger(cmd)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			runID := uuid.NewString()
			st, err := openStorage(cfg, runID, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			hub := progress.NewHub(runID, sc.DurationMonths)
			sim, err := engine.New(sc, engine.Options{
				RunID:  runID,
				Logger: logger,
				Sinks:  append(st.Sinks(), hub),
			})
			if err != nil {
				return err
			}
			srv := progress.NewServer(sim, hub, logger)

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			httpSrv := &http.Server{
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			serveErr := make(chan error, 1)
			go func() {
				if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()
			logger.Printf("run %s listening on http://%s", runID, ln.Addr())

			if startPaused {
				sim.Pause()
			}
			st.Start(sim.Scenario())
			res, runErr := sim.Run(ctx)
			state := sim.CurrentState()
			hub.BroadcastStatus(state)
			if runErr != nil {
				logger.Printf("run %s ended: %v", runID, runErr)
			}
			if _, err := st.Finish(res, state.Status); err != nil {
				logger.Printf("save run: %v", err)
			}
			if err := st.Close(); err != nil {
				logger.Printf("close storage: %v", err)
			}

			if !exitWhenDone && ctx.Err() == nil {
				logger.Printf("run %s %s after %d months; serving until interrupted", runID, state.Status, state.Month)
				select {
				case <-ctx.Done():
				case err := <-serveErr:
					if err != nil {
						return fmt.Errorf("serve: %w", err)
					}
				}
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			if err := <-serveErr; err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringP("scenario", "s", "", "scenario file (YAML or JSON)")
	cmd.Flags().Int64("seed", 0, "override the scenario seed")
	cmd.Flags().String("addr", ":8080", "http listen address")
	cmd.Flags().Bool("paused", false, "start the run paused until a resume control arrives")
	cmd.Flags().Bool("exit-when-done", false, "shut the server down when the run ends")
	addStorageFlags(cmd)
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}
