// Package recorder implements the hot-path recording component: method
// interning, O(1) success/error accounting, and a batched hand-off to the
// Aggregator. Split deliberately into its own hot-path/off-hot-path halves
// rather than one combined type, so Success/Error stay allocation-free while
// batching and fan-out happen off to the side.
package recorder

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bc-dunia/mcpstress/internal/aggregator"
	"github.com/bc-dunia/mcpstress/internal/transport"
)

// Record is an alias for the aggregator's wire-level raw record shape, kept
// under this name on the hot-path side per §3's vocabulary.
type Record = aggregator.RawRecord

// Instrumenter receives the same flushed batches the Aggregator does. It
// exists so an external observability facade (internal/otelmetrics) can
// ride the Recorder's existing off-hot-path batching instead of adding a
// second hot-path call next to Success/Error — defined here, not in
// otelmetrics, so the Recorder never imports that package.
type Instrumenter interface {
	RecordBatch(records []Record)
}

// Recorder is safe for concurrent use: the Engine's worker goroutines call
// Success/Error/RegisterMethod concurrently, while LatenciesSince and the
// accessors are read from Engine controller goroutines. Method interning,
// the error-dedup set, the latency vector and the pending batch each have
// their own mutex; the totals, concurrency and phase are atomics.
type Recorder struct {
	agg   *aggregator.Aggregator
	instr Instrumenter
	start time.Time

	methodMu  sync.Mutex
	methodIDs map[string]int
	nextID    int

	seenErrMu sync.Mutex
	seenErr   map[[2]int]struct{}

	latMu   sync.RWMutex
	latency []float64

	pending   []Record
	pendingMu sync.Mutex

	total  atomic.Int64
	errors atomic.Int64

	concurrency atomic.Int64
	phase       atomic.Int64

	batchInterval time.Duration
	stopCh        chan struct{}
	flushDone     chan struct{}
}

func New(agg *aggregator.Aggregator, batchInterval time.Duration) *Recorder {
	r := &Recorder{
		agg:           agg,
		start:         time.Now(),
		methodIDs:     make(map[string]int),
		seenErr:       make(map[[2]int]struct{}),
		batchInterval: batchInterval,
		stopCh:        make(chan struct{}),
		flushDone:     make(chan struct{}),
	}
	r.phase.Store(-1)
	go r.batchLoop()
	return r
}

// RegisterMethod interns name, posting a `method` message to the Aggregator
// the first time it is seen. Idempotent.
func (r *Recorder) RegisterMethod(name string) int {
	r.methodMu.Lock()
	defer r.methodMu.Unlock()
	if id, ok := r.methodIDs[name]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.methodIDs[name] = id
	if r.agg != nil {
		r.agg.Method(id, name)
	}
	return id
}

// SetInstrumenter attaches an optional observability facade. Must be called
// before the first flush to avoid a torn first batch; the run command does
// this immediately after New, before the Engine starts any transports.
func (r *Recorder) SetInstrumenter(i Instrumenter) { r.instr = i }

// SetConcurrency publishes the engine's current target concurrency, read by
// the next recorded rows until changed again.
func (r *Recorder) SetConcurrency(n int) { r.concurrency.Store(int64(n)) }

// SetPhase publishes the current find-ceiling phase index, -1 when not
// phased.
func (r *Recorder) SetPhase(p int) { r.phase.Store(int64(p)) }

func (r *Recorder) Success(methodID int, latencyMs float64) {
	r.record(methodID, latencyMs, true, 0, -1)
}

func (r *Recorder) Error(methodID int, latencyMs float64, err error) {
	opErr := transport.Classify(err)
	category := categoryInt(opErr.Category)
	r.maybeDispatchErrorMessage(category, opErr.Code, opErr.Message)
	r.record(methodID, latencyMs, false, category, opErr.Code)
}

func categoryInt(c transport.Category) int {
	switch c {
	case transport.CategoryTimeout:
		return 1
	case transport.CategoryProtocol:
		return 2
	case transport.CategoryServer:
		return 3
	case transport.CategoryNetwork:
		return 4
	case transport.CategoryClient:
		return 5
	default:
		return 0
	}
}

func (r *Recorder) maybeDispatchErrorMessage(category, code int, msg string) {
	key := [2]int{category, code}
	r.seenErrMu.Lock()
	_, seen := r.seenErr[key]
	if !seen {
		r.seenErr[key] = struct{}{}
	}
	r.seenErrMu.Unlock()
	if !seen && r.agg != nil {
		r.agg.ErrorMessage(category, code, msg)
	}
}

func roundTwoDecimals(x float64) float64 {
	return math.Round(x*100) / 100
}

func (r *Recorder) record(methodID int, latencyMs float64, ok bool, category, code int) {
	latencyMs = roundTwoDecimals(latencyMs)
	t := time.Since(r.start).Milliseconds()

	r.latMu.Lock()
	r.latency = append(r.latency, latencyMs)
	r.latMu.Unlock()

	rec := Record{
		T:                t,
		MethodID:         methodID,
		LatencyMs:        latencyMs,
		OK:               ok,
		ErrorCategoryInt: category,
		ErrorCode:        code,
		ConcurrencyLevel: int(r.concurrency.Load()),
		Phase:            int(r.phase.Load()),
	}
	r.total.Add(1)
	if !ok {
		r.errors.Add(1)
	}

	r.pendingMu.Lock()
	r.pending = append(r.pending, rec)
	r.pendingMu.Unlock()
}

func (r *Recorder) batchLoop() {
	ticker := time.NewTicker(r.batchInterval)
	defer ticker.Stop()
	defer close(r.flushDone)
	for {
		select {
		case <-ticker.C:
			r.flushBatch()
		case <-r.stopCh:
			r.flushBatch()
			return
		}
	}
}

func (r *Recorder) flushBatch() {
	r.pendingMu.Lock()
	if len(r.pending) == 0 {
		r.pendingMu.Unlock()
		return
	}
	batch := r.pending
	r.pending = nil
	r.pendingMu.Unlock()
	if r.agg != nil {
		r.agg.Batch(batch)
	}
	if r.instr != nil {
		r.instr.RecordBatch(batch)
	}
}

// LatenciesSince returns a copy of the latency vector from startIdx to the
// current end. A defensive copy is used since the vector is concurrently
// appended to by the hot path and a slice re-slice would alias a growing
// backing array across goroutines.
func (r *Recorder) LatenciesSince(startIdx int) []float64 {
	r.latMu.RLock()
	defer r.latMu.RUnlock()
	if startIdx >= len(r.latency) {
		return nil
	}
	out := make([]float64, len(r.latency)-startIdx)
	copy(out, r.latency[startIdx:])
	return out
}

func (r *Recorder) LatencyCount() int {
	r.latMu.RLock()
	defer r.latMu.RUnlock()
	return len(r.latency)
}

// Complete flushes any buffered records and signals the Aggregator.
func (r *Recorder) Complete() {
	close(r.stopCh)
	<-r.flushDone
	if r.agg != nil {
		r.agg.Complete()
	}
}

func (r *Recorder) Total() int64           { return r.total.Load() }
func (r *Recorder) Errors() int64          { return r.errors.Load() }
func (r *Recorder) Elapsed() time.Duration { return time.Since(r.start) }
