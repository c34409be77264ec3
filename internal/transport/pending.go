package transport

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// rawResult is the completion payload delivered to a waiter: either the raw
// JSON-RPC result or a classified error, never both.
type rawResult struct {
	data json.RawMessage
	err  error
}

type waiter struct {
	resultCh  chan rawResult
	startedAt time.Time
	timer     *time.Timer
}

// pendingTable maps monotonically increasing request ids to their waiter.
// It is the single hot shared structure per Transport instance and is
// guarded by a plain mutex rather than a single-owner actor goroutine — a
// mutex is simpler here since completion and timeout both need to
// remove-and-complete atomically.
type pendingTable struct {
	mu      sync.Mutex
	waiters map[int64]*waiter
	nextID  atomic.Int64
	closed  atomic.Bool
}

func newPendingTable() *pendingTable {
	return &pendingTable{waiters: make(map[int64]*waiter)}
}

func (p *pendingTable) nextRequestID() int64 {
	return p.nextID.Add(1)
}

// register adds id to the table and returns a channel that receives exactly
// one completion. timeout <= 0 disables the per-request timer.
func (p *pendingTable) register(id int64, timeout time.Duration) (<-chan rawResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return nil, false
	}
	w := &waiter{resultCh: make(chan rawResult, 1), startedAt: time.Now()}
	if timeout > 0 {
		w.timer = time.AfterFunc(timeout, func() {
			p.completeTimeout(id)
		})
	}
	p.waiters[id] = w
	return w.resultCh, true
}

func (p *pendingTable) complete(id int64, result rawResult) {
	p.mu.Lock()
	w, ok := p.waiters[id]
	if ok {
		delete(p.waiters, id)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.resultCh <- result
}

func (p *pendingTable) completeTimeout(id int64) {
	p.mu.Lock()
	w, ok := p.waiters[id]
	if ok {
		delete(p.waiters, id)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	w.resultCh <- rawResult{err: NewTimeoutError()}
}

// drain rejects every outstanding waiter with a closing error. Idempotent.
func (p *pendingTable) drain() {
	p.closed.Store(true)
	p.mu.Lock()
	waiters := p.waiters
	p.waiters = make(map[int64]*waiter)
	p.mu.Unlock()
	for _, w := range waiters {
		if w.timer != nil {
			w.timer.Stop()
		}
		w.resultCh <- rawResult{err: NewClosingError()}
	}
}

func (p *pendingTable) startedAt(id int64) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.waiters[id]
	if !ok {
		return time.Time{}, false
	}
	return w.startedAt, true
}
