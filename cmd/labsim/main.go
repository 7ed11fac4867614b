// Command labsim runs labor market scenarios, inspects and verifies saved
// runs, and serves a live run over HTTP and websocket.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "labsim",
		Short:         "Agent-based simulation of AI adoption in a labor market",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress per-month progress and log lines")

	rootCmd.AddCommand(
		newRunCmd(),
		newInspectCmd(),
		newVerifyCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func newLogger(cmd *cobra.Command) *log.Logger {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return log.New(io.Discard, "", 0)
	}
	return log.New(cmd.ErrOrStderr(), "[labsim] ", log.LstdFlags|log.Lmicroseconds)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
