package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bc-dunia/mcpstress/internal/aggregator"
	"github.com/bc-dunia/mcpstress/internal/config"
	"github.com/bc-dunia/mcpstress/internal/dashboard"
	"github.com/bc-dunia/mcpstress/internal/engine"
	"github.com/bc-dunia/mcpstress/internal/events"
	"github.com/bc-dunia/mcpstress/internal/otelmetrics"
	"github.com/bc-dunia/mcpstress/internal/recorder"
	"github.com/bc-dunia/mcpstress/internal/stats"
)

type runFlags struct {
	connectOptions

	profilePath  string
	output       string
	durationSec  float64
	requests     int64
	concurrency  int
	shape        string
	tool         string
	method       string
	seed         uint32
	repeat       int
	live         bool
	jsonOutput   bool
	assertions   []string
	metrics      bool
	findCeiling  bool
	churn        bool
	churnWorkers int
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run -- cmd args... | run --url URL",
		Short: "Execute a workload against an MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.command = splitArgsOnDashDash(args, cmd.ArgsLenAtDash())
			return runRun(cmd.Context(), f)
		},
	}
	bindConnectFlags(cmd, &f.connectOptions)
	cmd.Flags().StringVar(&f.profilePath, "profile", "", "YAML workload profile file (overrides the flags below where set)")
	cmd.Flags().StringVar(&f.output, "out", "", "NDJSON output path (empty disables file output)")
	cmd.Flags().Float64Var(&f.durationSec, "duration", 0, "Run duration in seconds")
	cmd.Flags().Int64Var(&f.requests, "requests", 0, "Request cap (run ends at whichever of duration/requests is hit first)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 10, "Peak concurrency")
	cmd.Flags().StringVar(&f.shape, "shape", "constant", "Load shape (see `mcpstress shapes`)")
	cmd.Flags().StringVar(&f.tool, "tool", "", "Target tool name for tools/call")
	cmd.Flags().StringVar(&f.method, "method", "tools/call", "MCP method to drive")
	cmd.Flags().Uint32Var(&f.seed, "seed", 1, "PRNG seed for generated tool arguments")
	cmd.Flags().IntVar(&f.repeat, "repeat", 1, "Repeat the run N times and report the cross-run aggregate")
	cmd.Flags().BoolVar(&f.live, "live", false, "Start the live SSE dashboard on an ephemeral port")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Print the summary object verbatim instead of a table")
	cmd.Flags().StringArrayVar(&f.assertions, "assert", nil, "Repeatable assertion, e.g. --assert 'p99<=250ms'")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "Export OpenTelemetry metrics (stdout, or OTLP/HTTP via OTEL_EXPORTER_OTLP_ENDPOINT)")
	cmd.Flags().BoolVar(&f.findCeiling, "find-ceiling", false, "Use the find-ceiling phase controller instead of a fixed shape")
	cmd.Flags().BoolVar(&f.churn, "connection-churn", false, "Use the connection-churn controller instead of a single session")
	cmd.Flags().IntVar(&f.churnWorkers, "churn-workers", 4, "Worker count for --connection-churn")
	return cmd
}

func bindConnectFlags(cmd *cobra.Command, o *connectOptions) {
	cmd.Flags().StringVar(&o.url, "url", "", "MCP server URL (streamable-http, or legacy SSE with --legacy-sse)")
	_ = viper.BindPFlag("url", cmd.Flags().Lookup("url"))
	cmd.Flags().BoolVar(&o.legacySSE, "legacy-sse", false, "Use the legacy SSE transport against --url")
	cmd.Flags().StringToStringVar(&o.headers, "header", nil, "Repeatable HTTP header, e.g. --header Authorization=Bearer...")
	cmd.Flags().BoolVar(&o.allowPrivateNetworks, "allow-private-networks", false, "Permit the HTTP transport to dial RFC1918/loopback addresses")
	cmd.Flags().BoolVar(&o.tlsSkipVerify, "insecure-skip-tls-verify", false, "Skip TLS certificate verification")
	cmd.Flags().IntVar(&o.requestTimeoutMs, "timeout-ms", config.DefaultRequestTimeoutMs, "Per-request timeout in milliseconds")
}

func runRun(ctx context.Context, f *runFlags) error {
	profile, assertionStrs, err := resolveProfile(f)
	if err != nil {
		return withExitCode(err, 1)
	}
	assertionStrs = append(assertionStrs, f.assertions...)

	newTransport, err := f.connectOptions.newTransportFactory()
	if err != nil {
		return withExitCode(err, 1)
	}

	var hub *dashboard.Hub
	var dashSrv *dashboard.Server
	if f.live {
		hub = dashboard.NewHub()
		dashSrv = dashboard.NewServer(hub)
		if err := dashSrv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "dashboard unavailable, continuing without it: %v\n", err)
			hub = nil
		} else {
			fmt.Fprintf(os.Stderr, "dashboard listening on %s\n", dashSrv.URL())
			defer dashSrv.Shutdown(context.Background())
		}
	}

	var meter *otelmetrics.Meter
	if f.metrics {
		meter, err = otelmetrics.New(ctx, otelmetrics.ConfigFromEnv(true))
		if err != nil {
			return withExitCode(fmt.Errorf("starting metrics: %w", err), 1)
		}
		defer meter.Shutdown(context.Background())
	}

	runOne := func(iteration int) (*engine.Result, error) {
		agg := aggregator.New()
		if hub != nil {
			agg.SetSink(hub)
		}
		rec := recorder.New(agg, time.Duration(config.RecorderBatchIntervalMs)*time.Millisecond)
		if meter != nil {
			rec.SetInstrumenter(meter)
		}
		log := events.NewEventLogger(runID(f, iteration), false)

		outputPath := f.output
		if outputPath != "" && f.repeat > 1 {
			outputPath = fmt.Sprintf("%s.%d", outputPath, iteration)
		}
		agg.Init(outputPath, runMeta(f, profile, iteration))

		if hub != nil && f.repeat > 1 {
			hub.NewRun(iteration+1, f.repeat)
		}

		eng := engine.New(rec, agg, log, newTransport)
		result, err := eng.Run(ctx, profile)
		if hub != nil && f.repeat > 1 && result != nil {
			hub.RunComplete(iteration+1, result.Summary)
		}
		return result, err
	}

	var results []*engine.Result
	var aggResult *engine.AggregateResult
	if f.repeat > 1 {
		results, aggResult, err = engine.Repeat(f.repeat, runOne)
	} else {
		var r *engine.Result
		r, err = runOne(0)
		if r != nil {
			results = []*engine.Result{r}
		}
	}
	if err != nil {
		return withExitCode(fmt.Errorf("engine: %w", err), 1)
	}
	if hub != nil && f.repeat > 1 {
		hub.AllComplete(aggResult)
	}

	failed := renderRunOutput(f, results, aggResult, assertionStrs)
	if failed {
		return withExitCode(fmt.Errorf("one or more assertions failed"), 1)
	}
	return nil
}

func runID(f *runFlags, iteration int) string {
	if f.repeat > 1 {
		return fmt.Sprintf("run-%d", iteration)
	}
	return "run"
}

func runMeta(f *runFlags, profile engine.WorkloadProfile, iteration int) map[string]interface{} {
	return map[string]interface{}{
		"runId":        uuid.NewString(),
		"reproCommand": reproCommand(f),
		"profile":      profile,
		"iteration":    iteration,
	}
}

func reproCommand(f *runFlags) string {
	parts := []string{"mcpstress", "run"}
	if f.url != "" {
		parts = append(parts, "--url", f.url)
	}
	parts = append(parts, "--concurrency", fmt.Sprint(f.concurrency), "--shape", f.shape)
	if f.durationSec > 0 {
		parts = append(parts, "--duration", fmt.Sprint(f.durationSec))
	}
	if len(f.command) > 0 {
		parts = append(parts, "--", strings.Join(f.command, " "))
	}
	return strings.Join(parts, " ")
}

func resolveProfile(f *runFlags) (engine.WorkloadProfile, []string, error) {
	if f.profilePath != "" {
		return loadProfileFile(f.profilePath)
	}

	mix := []engine.MixEntry{{Method: f.method, Tool: f.tool, Weight: 1}}
	profile := engine.WorkloadProfile{
		Mix:              mix,
		DurationSec:      f.durationSec,
		Requests:         f.requests,
		PeakConcurrency:  f.concurrency,
		Shape:            f.shape,
		RequestTimeoutMs: f.requestTimeoutMs,
		ConnectionChurn:  f.churn,
		ChurnWorkers:     f.churnWorkers,
		Seed:             f.seed,
	}
	if f.findCeiling {
		profile.FindCeiling = &engine.FindCeilingConfig{MaxConcurrency: config.DefaultMaxConcurrency}
	}
	return profile, nil, nil
}

// renderRunOutput prints either the JSON summary or the tabular console
// summary (totals, per-category breakdown, per-method p50/p95/p99) plus
// assertion PASS/FAIL lines, per spec.md §7. Returns true if any assertion
// failed. Assertions are evaluated only when exactly one run was made; with
// --repeat > 1 they are not evaluated and false is returned.
func renderRunOutput(f *runFlags, results []*engine.Result, aggResult *engine.AggregateResult, assertionStrs []string) bool {
	if f.jsonOutput {
		var out interface{} = aggResult
		if len(results) == 1 {
			out = results[0].Summary
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(b))
	} else if len(results) == 1 {
		printSummaryTable(results[0])
	} else {
		printAggregateTable(aggResult)
	}

	if len(results) != 1 || len(assertionStrs) == 0 {
		return false
	}
	return evaluateAssertions(assertionSummaryFrom(results[0].Summary), assertionStrs)
}

func printSummaryTable(r *engine.Result) {
	s := r.Summary
	fmt.Printf("requests=%d errors=%d (%.2f%%) rps=%.1f duration=%dms\n",
		s.TotalRequests, s.TotalErrors, s.ErrorRate, s.RequestsPerSec, s.DurationMs)
	fmt.Printf("overall  p50=%.2fms p95=%.2fms p99=%.2fms min=%.2fms max=%.2fms mean=%.2fms\n",
		s.Overall.P50, s.Overall.P95, s.Overall.P99, s.Overall.Min, s.Overall.Max, s.Overall.Mean)
	for cat, n := range s.CategoryHistogram {
		if n > 0 {
			fmt.Printf("  %-10s %d\n", cat, n)
		}
	}
	for name, ms := range s.ByMethod {
		fmt.Printf("  %-20s count=%-6d errors=%-4d p50=%.2fms p95=%.2fms p99=%.2fms\n",
			name, ms.Count, ms.Errors, ms.Stats.P50, ms.Stats.P95, ms.Stats.P99)
	}
	if r.Plateau != nil {
		fmt.Printf("plateau: %s at concurrency=%d\n", r.Plateau.Reason, r.Plateau.Concurrency)
	}
}

func printAggregateTable(a *engine.AggregateResult) {
	fmt.Printf("runs=%d requests=%.1f±%.1f rps=%.1f±%.1f errors=%.1f±%.1f (%.2f%%±%.2f%%)\n",
		a.RunCount,
		a.TotalRequests.Mean, a.TotalRequests.Stddev,
		a.RequestsPerSec.Mean, a.RequestsPerSec.Stddev,
		a.TotalErrors.Mean, a.TotalErrors.Stddev,
		a.ErrorRate.Mean, a.ErrorRate.Stddev)
	fmt.Printf("overall p50=%.2f±%.2fms p95=%.2f±%.2fms p99=%.2f±%.2fms\n",
		a.Overall.P50.Mean, a.Overall.P50.Stddev,
		a.Overall.P95.Mean, a.Overall.P95.Stddev,
		a.Overall.P99.Mean, a.Overall.P99.Stddev)
}

func assertionSummaryFrom(s *aggregator.Summary) stats.Summary {
	return stats.Summary{
		RPS: s.RequestsPerSec, P50: s.Overall.P50, P95: s.Overall.P95, P99: s.Overall.P99,
		Min: s.Overall.Min, Max: s.Overall.Max, Mean: s.Overall.Mean,
		ErrorRatePct: s.ErrorRate, Errors: s.TotalErrors, Requests: s.TotalRequests,
	}
}

func evaluateAssertions(sum stats.Summary, raw []string) (anyFailed bool) {
	for _, assertStr := range raw {
		a, err := stats.ParseAssertion(assertStr)
		if err != nil {
			fmt.Printf("FAIL %s (unparsable: %v)\n", assertStr, err)
			anyFailed = true
			continue
		}
		actual, pass := a.Evaluate(sum)
		status := "PASS"
		if !pass {
			status = "FAIL"
			anyFailed = true
		}
		fmt.Printf("%s %s (observed %.2f)\n", status, a.Raw, actual)
	}
	return anyFailed
}
