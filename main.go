// Command logwatch-agent tails a directory of log files and reports
// throughput, top message keys, and latency percentiles at a fixed
// interval.
package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/otus-labs/logwatch-agent/cmd"
)

func main() {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set GOMAXPROCS from cgroup quota: %v\n", err)
	}

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cmd.ExitCode(err))
}
