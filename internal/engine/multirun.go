package engine

import (
	"fmt"

	"github.com/bc-dunia/mcpstress/internal/stats"
)

// OverallAggregate is the cross-run mean±stddev for each overall latency
// statistic, per §4.6.5.
type OverallAggregate struct {
	Min  stats.MeanStddevStat `json:"min"`
	Max  stats.MeanStddevStat `json:"max"`
	Mean stats.MeanStddevStat `json:"mean"`
	P50  stats.MeanStddevStat `json:"p50"`
	P95  stats.MeanStddevStat `json:"p95"`
	P99  stats.MeanStddevStat `json:"p99"`
}

// AggregateResult is the `--repeat N` cross-run aggregate of §4.6.5: mean ±
// sample stddev (n-1 denominator) over durationMs, totalRequests,
// requestsPerSecond, totalErrors, errorRate, and overall.{min,max,mean,p50,
// p95,p99}.
type AggregateResult struct {
	RunCount       int                  `json:"runCount"`
	DurationMs     stats.MeanStddevStat `json:"durationMs"`
	TotalRequests  stats.MeanStddevStat `json:"totalRequests"`
	RequestsPerSec stats.MeanStddevStat `json:"requestsPerSecond"`
	TotalErrors    stats.MeanStddevStat `json:"totalErrors"`
	ErrorRate      stats.MeanStddevStat `json:"errorRate"`
	Overall        OverallAggregate     `json:"overall"`
}

// Repeat runs runOne N times (each producing its own NDJSON file and
// SummaryEvent, per §4.6.5) and computes the cross-run aggregate. It does
// not itself manage transports/recorders per run — runOne is responsible
// for building a fresh Engine/Recorder/Aggregator for each iteration and
// returning that iteration's Result.
func Repeat(n int, runOne func(iteration int) (*Result, error)) ([]*Result, *AggregateResult, error) {
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: repeat count must be > 0", ErrInvalidConfig)
	}

	results := make([]*Result, 0, n)
	for i := 0; i < n; i++ {
		r, err := runOne(i)
		if err != nil {
			return results, nil, fmt.Errorf("engine: repeat run %d failed: %w", i, err)
		}
		results = append(results, r)
	}

	agg := aggregateRuns(results)
	return results, agg, nil
}

func aggregateRuns(results []*Result) *AggregateResult {
	n := len(results)
	durations := make([]float64, n)
	totals := make([]float64, n)
	rps := make([]float64, n)
	errs := make([]float64, n)
	errRates := make([]float64, n)
	mins := make([]float64, n)
	maxs := make([]float64, n)
	means := make([]float64, n)
	p50s := make([]float64, n)
	p95s := make([]float64, n)
	p99s := make([]float64, n)

	for i, r := range results {
		s := r.Summary
		durations[i] = float64(s.DurationMs)
		totals[i] = float64(s.TotalRequests)
		rps[i] = s.RequestsPerSec
		errs[i] = float64(s.TotalErrors)
		if s.TotalRequests > 0 {
			errRates[i] = float64(s.TotalErrors) / float64(s.TotalRequests) * 100
		}
		mins[i] = s.Overall.Min
		maxs[i] = s.Overall.Max
		means[i] = s.Overall.Mean
		p50s[i] = s.Overall.P50
		p95s[i] = s.Overall.P95
		p99s[i] = s.Overall.P99
	}

	return &AggregateResult{
		RunCount:       n,
		DurationMs:     stats.ComputeMeanStddevStat(durations),
		TotalRequests:  stats.ComputeMeanStddevStat(totals),
		RequestsPerSec: stats.ComputeMeanStddevStat(rps),
		TotalErrors:    stats.ComputeMeanStddevStat(errs),
		ErrorRate:      stats.ComputeMeanStddevStat(errRates),
		Overall: OverallAggregate{
			Min:  stats.ComputeMeanStddevStat(mins),
			Max:  stats.ComputeMeanStddevStat(maxs),
			Mean: stats.ComputeMeanStddevStat(means),
			P50:  stats.ComputeMeanStddevStat(p50s),
			P95:  stats.ComputeMeanStddevStat(p95s),
			P99:  stats.ComputeMeanStddevStat(p99s),
		},
	}
}
