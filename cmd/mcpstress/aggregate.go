package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bc-dunia/mcpstress/internal/stats"
)

// newAggregateCmd combines N already-completed run files into the same
// cross-run mean±stddev shape engine.AggregateResult produces for
// `run --repeat`, per §4.6.5/§6, but over files captured independently
// (e.g. from separate `run` invocations) rather than one process's own
// repeat loop.
func newAggregateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate RUN1 RUN2 ...",
		Short: "Combine multiple NDJSON run files into a cross-run aggregate",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(args)
		},
	}
}

func runAggregate(paths []string) error {
	var durations, totals, rps, errs, errRates, mins, maxs, means, p50s, p95s, p99s []float64

	for _, p := range paths {
		rf, err := readRunFile(p)
		if err != nil {
			return withExitCode(err, 1)
		}
		if rf.Summary == nil {
			return withExitCode(fmt.Errorf("%s has no summary line", p), 1)
		}
		overall, _ := rf.Summary["overall"].(map[string]interface{})
		durations = append(durations, numericField(rf.Summary, "durationMs"))
		totals = append(totals, numericField(rf.Summary, "totalRequests"))
		rps = append(rps, numericField(rf.Summary, "requestsPerSecond"))
		errs = append(errs, numericField(rf.Summary, "totalErrors"))
		errRates = append(errRates, numericField(rf.Summary, "errorRate"))
		mins = append(mins, numericField(overall, "min"))
		maxs = append(maxs, numericField(overall, "max"))
		means = append(means, numericField(overall, "mean"))
		p50s = append(p50s, numericField(overall, "p50"))
		p95s = append(p95s, numericField(overall, "p95"))
		p99s = append(p99s, numericField(overall, "p99"))
	}

	fmt.Printf("runCount=%d\n", len(paths))
	printStat("durationMs", durations)
	printStat("totalRequests", totals)
	printStat("requestsPerSecond", rps)
	printStat("totalErrors", errs)
	printStat("errorRate", errRates)
	printStat("overall.min", mins)
	printStat("overall.max", maxs)
	printStat("overall.mean", means)
	printStat("overall.p50", p50s)
	printStat("overall.p95", p95s)
	printStat("overall.p99", p99s)
	return nil
}

func printStat(name string, xs []float64) {
	s := stats.ComputeMeanStddevStat(xs)
	fmt.Printf("%-20s mean=%.2f stddev=%.2f\n", name, s.Mean, s.Stddev)
}
