// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// ash-sample runs a simulated workload whose goroutines report wait states,
// and periodically prints what every goroutine is waiting on.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/ash/pkg/util/ash"
	"github.com/cockroachdb/ash/pkg/util/buildutil"
	"github.com/cockroachdb/ash/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runFlags = pflag.NewFlagSet(`run`, pflag.ExitOnError)

var (
	workers      = runFlags.Int("workers", 4, "number of goroutines serving simulated requests")
	duration     = runFlags.Duration("duration", 10*time.Second, "how long to run for; 0 runs until interrupted")
	interval     = runFlags.Duration("interval", time.Second, "time between samples")
	format       = runFlags.String("format", "text", "sample output format: text or json")
	trackHistory = runFlags.Bool("track-history", buildutil.TrackWaitHistory, "record the status history of every request")
	historyLimit = runFlags.Int("history-limit", ash.DefaultHistoryLimit, "maximum statuses recorded per request; 0 is unbounded")
	seed         = runFlags.Int64("seed", 0, "random seed for the simulated workload; 0 picks one")
	verbosity    = runFlags.Int32P("verbosity", "v", 0, "log verbosity")
)

var rootCmd = &cobra.Command{
	Use:   "ash-sample",
	Short: "sample the wait states of a simulated workload",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the simulated workload and print wait-state samples",
	Long: `run starts a number of worker goroutines that serve simulated requests,
moving each request through a sequence of wait statuses. Every interval, the
wait state of every worker is sampled and printed.

Examples:

  ash-sample run --workers 8 --interval 500ms
  ash-sample run --format json --duration 30s --track-history
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config{
			workers:      *workers,
			duration:     *duration,
			interval:     *interval,
			format:       *format,
			historyLimit: *historyLimit,
			trackHistory: *trackHistory,
			seed:         *seed,
		}
		if err := cfg.validate(); err != nil {
			return err
		}
		log.SetVerbosity(*verbosity)
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg, cmd.OutOrStdout())
	},
}

// config holds the parsed flags of the run command.
type config struct {
	workers      int
	duration     time.Duration
	interval     time.Duration
	format       string
	trackHistory bool
	historyLimit int
	seed         int64
}

func (c config) validate() error {
	if c.workers <= 0 {
		return errors.Newf("--workers must be positive, got %d", c.workers)
	}
	if c.interval <= 0 {
		return errors.Newf("--interval must be positive, got %s", c.interval)
	}
	if c.duration < 0 {
		return errors.Newf("--duration must not be negative, got %s", c.duration)
	}
	if c.historyLimit < 0 {
		return errors.Newf("--history-limit must not be negative, got %d", c.historyLimit)
	}
	if _, err := makeRenderer(c.format); err != nil {
		return err
	}
	return nil
}

func (c config) waitStateOptions() ash.Options {
	return ash.Options{TrackHistory: c.trackHistory, HistoryLimit: c.historyLimit}
}

func init() {
	runCmd.Flags().AddFlagSet(runFlags)
	rootCmd.AddCommand(runCmd)
}

func main() {
	log.CopyStandardLogTo("INFO")
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		// Cobra has already printed the error message.
		os.Exit(1)
	}
}
