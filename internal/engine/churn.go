package engine

import (
	"context"
	"sync"
	"time"

	"github.com/bc-dunia/mcpstress/internal/client"
)

// runChurn implements §4.6.4: N parallel workers, each in a tight loop for
// the run duration, creating a fresh Transport, connecting, pinging once,
// and closing.
func (e *Engine) runChurn(ctx context.Context, profile WorkloadProfile) (*Result, error) {
	workers := profile.ChurnWorkers
	if workers <= 0 {
		workers = 1
	}
	initID := e.rec.RegisterMethod("initialize")
	pingID := e.rec.RegisterMethod("ping")

	deadline := time.Now().Add(365 * 24 * time.Hour) // effectively unbounded; Requests cap ends the loop below
	if profile.DurationSec > 0 {
		deadline = time.Now().Add(time.Duration(profile.DurationSec * float64(time.Second)))
	}
	e.rec.SetConcurrency(workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				select {
				case <-ctx.Done():
					return
				default:
				}
				e.churnIteration(ctx, initID, pingID)
				if profile.Requests > 0 && e.rec.Total() >= profile.Requests {
					return
				}
			}
		}()
	}
	wg.Wait()

	e.rec.Complete()
	return &Result{Summary: e.agg.Summary(), WorkerHealth: samplePtr(e.health)}, nil
}

func (e *Engine) churnIteration(ctx context.Context, initID, pingID int) {
	t, err := e.newTransport()
	if err != nil {
		e.rec.Error(initID, 0, err)
		return
	}

	start := time.Now()
	if err := t.Connect(ctx); err != nil {
		e.rec.Error(initID, latencyMs(start), err)
		return
	}
	c := client.New(t, e.slogLogger())
	if err := c.Handshake(ctx); err != nil {
		e.rec.Error(initID, latencyMs(start), err)
		_ = t.Close()
		return
	}
	e.rec.Success(initID, latencyMs(start))

	lat, err := c.Ping(ctx)
	if err != nil {
		e.rec.Error(pingID, lat, err)
	} else {
		e.rec.Success(pingID, lat)
	}

	_ = t.Close()
}
