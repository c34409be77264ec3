package stats

import "github.com/bc-dunia/mcpstress/internal/config"

// WindowMs picks the bucket width for a run of the given duration, per the
// exact thresholds §4.7/§9 require so a round-trip through the NDJSON file
// reproduces identical chart bucketing.
func WindowMs(durationSec float64) int {
	switch {
	case durationSec <= config.WindowThresholdSec1:
		return config.WindowMs1s
	case durationSec <= config.WindowThresholdSec2:
		return config.WindowMs5s
	case durationSec <= config.WindowThresholdSec3:
		return config.WindowMs10s
	default:
		return config.WindowMs30s
	}
}

// Window is one fixed-duration bucket used for charting and the live
// dashboard, per §4.7/§6.
type Window struct {
	T           int64   `json:"t"`
	Count       int     `json:"count"`
	Errors      int     `json:"errors"`
	P50         float64 `json:"p50"`
	P95         float64 `json:"p95"`
	P99         float64 `json:"p99"`
	Concurrency int     `json:"concurrency,omitempty"`
}

// Bucketer assigns records to fixed-width time windows, emitting every slot
// (including empties) so bar widths stay uniform, and carries the
// last-observed concurrency forward into empty windows.
type Bucketer struct {
	windowMs        int64
	lastConcurrency int
	windows         map[int64]*bucket
	order           []int64
}

type bucket struct {
	count, errors int
	latencies     []float64
	concurrency   int
}

func NewBucketer(windowMs int) *Bucketer {
	return &Bucketer{windowMs: int64(windowMs), windows: make(map[int64]*bucket)}
}

func (b *Bucketer) Add(t int64, latencyMs float64, ok bool, concurrency int) {
	slot := t / b.windowMs
	bk, exists := b.windows[slot]
	if !exists {
		bk = &bucket{}
		b.windows[slot] = bk
		b.order = append(b.order, slot)
	}
	bk.count++
	if !ok {
		bk.errors++
	}
	bk.latencies = append(bk.latencies, latencyMs)
	bk.concurrency = concurrency
	b.lastConcurrency = concurrency
}

// Windows materializes every slot from 0 to the last populated slot,
// inclusive, carrying concurrency forward across empty slots.
func (b *Bucketer) Windows() []Window {
	if len(b.order) == 0 {
		return nil
	}
	maxSlot := b.order[0]
	for _, s := range b.order {
		if s > maxSlot {
			maxSlot = s
		}
	}
	out := make([]Window, 0, maxSlot+1)
	lastConcurrency := 0
	for slot := int64(0); slot <= maxSlot; slot++ {
		bk, exists := b.windows[slot]
		if !exists {
			out = append(out, Window{T: slot * b.windowMs, Concurrency: lastConcurrency})
			continue
		}
		sorted := SortedCopy(bk.latencies)
		out = append(out, Window{
			T:           slot * b.windowMs,
			Count:       bk.count,
			Errors:      bk.errors,
			P50:         Percentile(sorted, 0.5),
			P95:         Percentile(sorted, 0.95),
			P99:         Percentile(sorted, 0.99),
			Concurrency: bk.concurrency,
		})
		lastConcurrency = bk.concurrency
	}
	return out
}
