// Package cmd implements the CLI surface using the cobra framework.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/otus-labs/logwatch-agent/internal/agent"
	"github.com/otus-labs/logwatch-agent/internal/config"
	"github.com/otus-labs/logwatch-agent/internal/log"
)

var (
	configFile           string
	workers              int
	queueCapacity        int
	reportIntervalSecond int
	topK                 int
)

// rootCmd is the single command this CLI exposes: watch a directory and
// report on the log lines appended to it.
var rootCmd = &cobra.Command{
	Use:   "logwatch-agent <watch_path>",
	Short: "Tail a directory of log files and report line/latency statistics",
	Long: `logwatch-agent watches a flat directory of log files, tails every
file it sees appended to, parses each line's level/message/latency, and
prints periodic report frames to stdout summarizing throughput, top
message keys, and latency percentiles.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(1)(cmd, args); err != nil {
			return &invalidArgsErr{err}
		}
		return nil
	},
	RunE: run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"optional YAML config file for log/metrics settings")
	rootCmd.Flags().IntVar(&workers, "workers", 0,
		"number of worker goroutines (default: host CPU count)")
	rootCmd.Flags().IntVar(&queueCapacity, "queue-capacity", 0,
		"bounded event bus capacity (default: 10000)")
	rootCmd.Flags().IntVar(&reportIntervalSecond, "report-interval-seconds", 0,
		"seconds between report frames (default: 2)")
	rootCmd.Flags().IntVar(&topK, "topk", 0,
		"number of top message keys to report (default: 10)")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &invalidArgsErr{err}
	})
}

// Execute runs the root command. It is called once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	watchDir := args[0]

	for _, v := range []struct {
		name  string
		value int
	}{
		{"--workers", workers},
		{"--queue-capacity", queueCapacity},
		{"--report-interval-seconds", reportIntervalSecond},
		{"--topk", topK},
	} {
		if v.value < 0 {
			return &invalidArgsErr{fmt.Errorf("%s must be >= 1, got %d", v.name, v.value)}
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return &invalidArgsErr{err}
	}
	cfg.ApplyOverrides(watchDir, workers, queueCapacity, topK, time.Duration(reportIntervalSecond)*time.Second)
	if err := cfg.Validate(); err != nil {
		return &invalidArgsErr{err}
	}

	log.Init(&cfg.Log)

	a, err := agent.New(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return a.Run(context.Background())
}

// invalidArgsErr marks an error as an argument-validation failure so
// ExitCode can map it to exit code 2 rather than the generic runtime-error
// code 1.
type invalidArgsErr struct{ err error }

func (e *invalidArgsErr) Error() string { return e.err.Error() }
func (e *invalidArgsErr) Unwrap() error { return e.err }

// ExitCode maps an error returned by Execute to the process exit code the
// CLI surface specifies: 0 success, 2 invalid arguments, 1 runtime error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var invalid *invalidArgsErr
	if errors.As(err, &invalid) {
		return 2
	}
	return 1
}
