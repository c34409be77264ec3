package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bc-dunia/mcpstress/internal/stats"
)

// newCompareCmd diffs two run files' summaries. The actual regression
// statistics (Welch t-test, Cohen's d) are an out-of-scope external
// collaborator per spec.md §2 ("their internals are mechanical"); this
// reports the plain percentage delta per metric and flags a regression past
// a fixed threshold, which is the mechanical surface the core exposes.
func newCompareCmd() *cobra.Command {
	var assertions []string
	var regressionPct float64
	cmd := &cobra.Command{
		Use:   "compare BASE CUR",
		Short: "Diff two NDJSON run files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(args[0], args[1], assertions, regressionPct)
		},
	}
	cmd.Flags().StringArrayVar(&assertions, "assert", nil, "Repeatable assertion evaluated against CUR")
	cmd.Flags().Float64Var(&regressionPct, "regression-threshold", 10, "Percent worsening in p50/p95/p99/error_rate/rps considered a regression")
	return cmd
}

func runCompare(basePath, curPath string, assertions []string, thresholdPct float64) error {
	base, err := readRunFile(basePath)
	if err != nil {
		return withExitCode(err, 1)
	}
	cur, err := readRunFile(curPath)
	if err != nil {
		return withExitCode(err, 1)
	}
	if base.Summary == nil || cur.Summary == nil {
		return withExitCode(fmt.Errorf("both run files must contain a summary line"), 1)
	}

	baseOverall, _ := base.Summary["overall"].(map[string]interface{})
	curOverall, _ := cur.Summary["overall"].(map[string]interface{})

	regressed := false
	for _, metric := range []string{"p50", "p95", "p99", "requestsPerSecond", "errorRate"} {
		var baseVal, curVal float64
		if metric == "requestsPerSecond" || metric == "errorRate" {
			baseVal = numericField(base.Summary, metric)
			curVal = numericField(cur.Summary, metric)
		} else {
			baseVal = numericField(baseOverall, metric)
			curVal = numericField(curOverall, metric)
		}
		delta := percentDelta(baseVal, curVal)
		worse := metric == "requestsPerSecond" && delta < -thresholdPct
		worse = worse || (metric != "requestsPerSecond" && delta > thresholdPct)
		marker := "ok"
		if worse {
			marker = "REGRESSION"
			regressed = true
		}
		fmt.Printf("%-20s base=%.2f cur=%.2f delta=%+.1f%% %s\n", metric, baseVal, curVal, delta, marker)
	}

	curSummary := stats.Summary{
		RPS:          numericField(cur.Summary, "requestsPerSecond"),
		P50:          numericField(curOverall, "p50"),
		P95:          numericField(curOverall, "p95"),
		P99:          numericField(curOverall, "p99"),
		ErrorRatePct: numericField(cur.Summary, "errorRate"),
		Errors:       int64(numericField(cur.Summary, "totalErrors")),
		Requests:     int64(numericField(cur.Summary, "totalRequests")),
	}
	assertFailed := evaluateAssertions(curSummary, assertions)

	if regressed || assertFailed {
		return withExitCode(fmt.Errorf("regression or assertion failure detected"), 1)
	}
	return nil
}

func percentDelta(base, cur float64) float64 {
	if base == 0 {
		if cur == 0 {
			return 0
		}
		return 100
	}
	return (cur - base) / base * 100
}
