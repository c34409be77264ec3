// Package engine implements the Engine that ties a Transport factory, the
// MCP client, and the Recorder together into shaped execution, the
// find-ceiling phase controller, and the connection-churn controller. Each
// tick fans work out across goroutines and awaits them with a
// sync.WaitGroup before advancing, with operation-mix expansion done as
// flat round-robin rather than weighted-random sampling.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bc-dunia/mcpstress/internal/aggregator"
	"github.com/bc-dunia/mcpstress/internal/client"
	"github.com/bc-dunia/mcpstress/internal/config"
	"github.com/bc-dunia/mcpstress/internal/events"
	"github.com/bc-dunia/mcpstress/internal/mcpwire"
	"github.com/bc-dunia/mcpstress/internal/recorder"
	"github.com/bc-dunia/mcpstress/internal/schema"
	"github.com/bc-dunia/mcpstress/internal/transport"
)

// TransportFactory builds a fresh, unconnected Transport. The Engine calls
// it once for shaped/find-ceiling execution (one long-lived connection) and
// repeatedly for connection-churn (a new connection per churn iteration).
type TransportFactory func() (transport.Transport, error)

// Engine runs one WorkloadProfile to completion.
type Engine struct {
	fsm          *runFSM
	rec          *recorder.Recorder
	agg          *aggregator.Aggregator
	log          *events.EventLogger
	newTransport TransportFactory
	health       *healthSampler
}

func New(rec *recorder.Recorder, agg *aggregator.Aggregator, log *events.EventLogger, newTransport TransportFactory) *Engine {
	if log == nil {
		log = events.NewEventLogger("", false)
	}
	return &Engine{
		fsm:          newRunFSM(),
		rec:          rec,
		agg:          agg,
		log:          log,
		newTransport: newTransport,
		health:       newHealthSampler(),
	}
}

func (e *Engine) requestTimeout(p WorkloadProfile) time.Duration {
	ms := p.RequestTimeoutMs
	if ms <= 0 {
		ms = config.DefaultRequestTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Run executes profile to completion and returns the final result. A bad
// configuration is rejected with ErrInvalidConfig before the FSM starts.
// Any other fatal error (handshake failure, output I/O failure) aborts the
// run and transitions the FSM to failed; per-request failures never do.
func (e *Engine) Run(ctx context.Context, profile WorkloadProfile) (*Result, error) {
	if profile.PeakConcurrency <= 0 && profile.FindCeiling == nil && !profile.ConnectionChurn {
		return nil, fmt.Errorf("%w: peakConcurrency must be > 0", ErrInvalidConfig)
	}
	if profile.DurationSec <= 0 && profile.Requests <= 0 {
		return nil, fmt.Errorf("%w: one of durationSec or requests is required", ErrInvalidConfig)
	}
	if err := e.fsm.start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	result, err := e.run(ctx, profile)
	if err != nil {
		e.fsm.fail()
		return nil, err
	}
	if err := e.fsm.complete(); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) run(ctx context.Context, profile WorkloadProfile) (*Result, error) {
	if profile.ConnectionChurn {
		return e.runChurn(ctx, profile)
	}

	t, err := e.newTransport()
	if err != nil {
		return nil, fmt.Errorf("engine: building transport: %w", err)
	}
	if err := t.Connect(ctx); err != nil {
		return nil, fmt.Errorf("engine: connecting transport: %w", err)
	}
	defer t.Close()

	c := client.New(t, e.slogLogger())
	initID := e.rec.RegisterMethod("initialize")
	start := time.Now()
	if err := c.Handshake(ctx); err != nil {
		e.rec.Error(initID, latencyMs(start), err)
		return nil, fmt.Errorf("engine: handshake failed: %w", err)
	}
	e.rec.Success(initID, latencyMs(start))

	mix, err := e.buildMix(ctx, profile, c)
	if err != nil {
		return nil, err
	}

	if profile.FindCeiling != nil {
		return e.runFindCeiling(ctx, profile, c, mix)
	}
	return e.runShaped(ctx, profile, c, mix)
}

func (e *Engine) buildMix(ctx context.Context, profile WorkloadProfile, c *client.Client) (*Mix, error) {
	needsDiscovery := false
	for _, m := range profile.Mix {
		if m.Method == "tools/call" && m.Tool == "" {
			needsDiscovery = true
		}
	}

	var tools []mcpwire.Tool
	if needsDiscovery {
		listed, _, err := c.ListTools(ctx)
		if err == nil {
			tools = listed.Tools
		} else {
			e.log.Logger().Warn("tools_list_failed_for_mix", "error", err)
		}
	}

	resolver := newArgResolver(tools, seededPRNG(profile.Seed), e.log)
	return NewMix(profile.Mix, tools, resolver, e.rec, e.log)
}

func seededPRNG(seed uint32) *schema.PRNG {
	var rng schema.PRNG
	rng.SetSeed(seed)
	return &rng
}

func (e *Engine) slogLogger() *slog.Logger {
	return e.log.Logger()
}

func latencyMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// runShaped implements §4.6.1's batch-per-tick model.
func (e *Engine) runShaped(ctx context.Context, profile WorkloadProfile, c *client.Client, mix *Mix) (*Result, error) {
	shapeFn, ok := Shape(profile.Shape)
	if !ok {
		shapeFn, _ = Shape("constant")
	}
	timeout := e.requestTimeout(profile)
	start := time.Now()

	for {
		elapsed := time.Since(start).Seconds()
		total := e.rec.Total()

		if profile.DurationSec > 0 && elapsed >= profile.DurationSec {
			break
		}
		if profile.Requests > 0 && total >= profile.Requests {
			break
		}

		target := shapeFn(elapsed, profile.DurationSec, profile.PeakConcurrency)
		if profile.Requests > 0 {
			remaining := profile.Requests - total
			if remaining <= 0 {
				break
			}
			if int64(target) > remaining {
				target = int(remaining)
			}
		}
		if target < 1 {
			target = 1
		}

		e.rec.SetConcurrency(target)
		e.tickBatch(ctx, target, timeout, c, mix)
	}

	e.rec.Complete()
	return &Result{Summary: e.agg.Summary(), WorkerHealth: samplePtr(e.health)}, nil
}

// tickBatch launches exactly n operations in parallel and waits for all of
// them before returning, per §4.6.1.c.
func (e *Engine) tickBatch(ctx context.Context, n int, timeout time.Duration, c *client.Client, mix *Mix) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			e.execOne(ctx, timeout, c, mix)
		}()
	}
	wg.Wait()
}

func (e *Engine) execOne(ctx context.Context, timeout time.Duration, c *client.Client, mix *Mix) {
	op := mix.Next()
	opCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	methodID, lat, err := op(opCtx, c)
	if err != nil {
		e.rec.Error(methodID, lat, err)
		return
	}
	e.rec.Success(methodID, lat)
}

func samplePtr(h *healthSampler) *HealthSample {
	s := h.Sample()
	return &s
}
