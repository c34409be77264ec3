package engine

import (
	"context"
	"sync"
	"time"

	"github.com/bc-dunia/mcpstress/internal/client"
	"github.com/bc-dunia/mcpstress/internal/config"
	"github.com/bc-dunia/mcpstress/internal/stats"
)

// ceilingConcurrencySequence generates the §4.6.3 concurrency sequence:
// +1 up to 5, +5 up to 20, then +10, stopping once it exceeds max.
func ceilingConcurrencySequence(max int) []int {
	var seq []int
	c := 1
	for c <= max || len(seq) == 0 {
		seq = append(seq, c)
		if c >= max {
			break
		}
		switch {
		case c < 5:
			c++
		case c < 20:
			c += 5
		default:
			c += 10
		}
	}
	return seq
}

func phaseDurationSeconds(cfg *FindCeilingConfig, totalDurationSec float64) float64 {
	d := config.DefaultPhaseDurationSec
	if cfg != nil && cfg.PhaseDurationSec > 0 {
		d = cfg.PhaseDurationSec
	}
	bound := float64(d)
	if totalDurationSec > 0 {
		capped := totalDurationSec / 5
		if capped < bound {
			bound = capped
		}
	}
	if bound < 5 {
		bound = 5
	}
	return bound
}

// runFindCeiling implements §4.6.3: step concurrency upward, phase by
// phase, until a plateau/degradation/error-saturation rule fires.
func (e *Engine) runFindCeiling(ctx context.Context, profile WorkloadProfile, c *client.Client, mix *Mix) (*Result, error) {
	cfg := profile.FindCeiling
	maxConcurrency := config.DefaultMaxConcurrency
	if cfg.MaxConcurrency > 0 {
		maxConcurrency = cfg.MaxConcurrency
	}
	plateauThreshold := config.DefaultPlateauThreshold
	if cfg.PlateauThreshold > 0 {
		plateauThreshold = cfg.PlateauThreshold
	}
	phaseDur := time.Duration(phaseDurationSeconds(cfg, profile.DurationSec) * float64(time.Second))
	timeout := e.requestTimeout(profile)
	seq := ceilingConcurrencySequence(maxConcurrency)

	var phases []PhaseResult
	var prevRPS, prevP50 float64
	var plateau *PlateauResult

	for phaseIdx, concurrency := range seq {
		e.rec.SetConcurrency(concurrency)
		e.rec.SetPhase(phaseIdx)

		startTotal := e.rec.Total()
		startErrors := e.rec.Errors()
		startIdx := e.rec.LatencyCount()
		phaseStart := time.Now()

		e.runPhaseWorkers(ctx, concurrency, phaseDur, timeout, c, mix)

		phaseElapsed := time.Since(phaseStart).Seconds()
		phaseTotal := e.rec.Total() - startTotal
		phaseErrors := e.rec.Errors() - startErrors
		latencies := e.rec.LatenciesSince(startIdx)

		rps := 0.0
		if phaseElapsed > 0 {
			rps = float64(phaseTotal) / phaseElapsed
		}
		st := stats.ComputeLatencyStats(latencies)

		phases = append(phases, PhaseResult{
			Concurrency: concurrency,
			Total:       phaseTotal,
			Errors:      phaseErrors,
			RPS:         rps,
			P50:         st.P50,
			P99:         st.P99,
		})

		if phaseIdx > 0 {
			rpsGain := 0.0
			if prevRPS > 0 {
				rpsGain = (rps - prevRPS) / prevRPS
			}
			p50Gain := 0.0
			if prevP50 > 0 {
				p50Gain = (st.P50 - prevP50) / prevP50
			}

			switch {
			case rpsGain < plateauThreshold && p50Gain > config.PlateauP50GainThreshold:
				prevConcurrency := seq[phaseIdx-1]
				plateau = &PlateauResult{Reason: "plateau", Concurrency: prevConcurrency}
			case rps < config.DegradationRPSFactor*prevRPS:
				plateau = &PlateauResult{Reason: "degradation", Concurrency: concurrency}
			case float64(phaseErrors) > config.ErrorSaturationFraction*float64(phaseTotal):
				plateau = &PlateauResult{Reason: "errorSaturation", Concurrency: concurrency}
			}
		}

		if plateau != nil {
			e.log.LogPlateauDetected(plateau.Reason, plateau.Concurrency)
			break
		}

		prevRPS, prevP50 = rps, st.P50
	}

	if plateau == nil {
		last := seq[len(seq)-1]
		plateau = &PlateauResult{Reason: "noPlateauDetected", Concurrency: last}
	}

	e.rec.Complete()
	return &Result{
		Summary:           e.agg.Summary(),
		WorkerHealth:      samplePtr(e.health),
		FindCeilingPhases: phases,
		Plateau:           plateau,
	}, nil
}

// runPhaseWorkers runs `concurrency` workers in a tight loop for `dur`,
// per §4.6.3.
func (e *Engine) runPhaseWorkers(ctx context.Context, concurrency int, dur time.Duration, timeout time.Duration, c *client.Client, mix *Mix) {
	deadline := time.Now().Add(dur)
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				select {
				case <-ctx.Done():
					return
				default:
				}
				e.execOne(ctx, timeout, c, mix)
			}
		}()
	}
	wg.Wait()
}
