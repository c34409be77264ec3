// Package dashboard implements §6's live-dashboard SSE endpoint: an
// ephemeral HTTP server that serves a minimal dashboard page at `/` and
// streams meta/window/message/complete (and, for multi-run, new-run/
// run-complete/all-complete) events over `/events`. Grounded on the
// teacher's internal/controlplane/api SSE handler (event/id/data framing,
// Last-Event-ID-free single-shot stream since a dashboard viewer only ever
// wants "from now on") and its ephemeral-listener Server lifecycle.
package dashboard

import (
	"sync"

	"github.com/bc-dunia/mcpstress/internal/aggregator"
	"github.com/bc-dunia/mcpstress/internal/config"
	"github.com/bc-dunia/mcpstress/internal/stats"
	"golang.org/x/time/rate"
)

// event is one SSE frame: Type becomes the `event:` line, Data is
// marshaled as the `data:` line.
type event struct {
	Type string
	Data interface{}
}

// Hub fans out dashboard events to every connected SSE client. It
// implements aggregator.Sink directly so the Aggregator can push into it
// without knowing anything about HTTP.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan event]*rate.Limiter
	closed      bool
	multiRun    bool
}

// NewHub builds an empty fan-out hub. One Hub serves exactly one run (or
// one multi-run repeat sequence); the CLI layer discards it once the run's
// SSE connections have drained.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan event]*rate.Limiter)}
}

// subscribe registers a new client and returns its event channel plus an
// unsubscribe func. The channel is buffered so publish never blocks on a
// slow reader; a full channel drops the event instead. window events are
// the only high-frequency event (roughly 1/sec from the Aggregator
// already), but a slow/misbehaving client still gets its own independent
// throttle, per config.DashboardRateLimitPerSec, so one laggy browser tab
// can never block the others or the publish call itself.
func (h *Hub) subscribe() (<-chan event, func()) {
	ch := make(chan event, 32)
	limiter := rate.NewLimiter(rate.Limit(config.DashboardRateLimitPerSec), config.DashboardRateLimitPerSec)

	h.mu.Lock()
	h.subscribers[ch] = limiter
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
	}
	return ch, unsub
}

func (h *Hub) publish(ev event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch, limiter := range h.subscribers {
		if ev.Type == "window" && !limiter.Allow() {
			continue
		}
		select {
		case ch <- ev:
		default:
			// slow consumer; drop rather than block the Aggregator's loop.
		}
	}
}

// closeAll marks the hub closed and closes every subscriber channel, which
// ends their SSE handler goroutines. Called once the hub's events are
// exhausted (after Complete for a single run, or AllComplete for a repeat).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = make(map[chan event]*rate.Limiter)
}

// Meta implements aggregator.Sink.
func (h *Hub) Meta(meta map[string]interface{}) {
	h.publish(event{Type: "meta", Data: meta})
}

// Window implements aggregator.Sink.
func (h *Hub) Window(w stats.Window) {
	h.publish(event{Type: "window", Data: w})
}

// Message implements aggregator.Sink.
func (h *Hub) Message(text string) {
	h.publish(event{Type: "message", Data: map[string]string{"text": text}})
}

// Complete implements aggregator.Sink. A single-run dashboard closes all
// connections immediately after per §6 ("connections close after
// complete/all-complete"); once NewRun has been called the hub is a
// multi-run dashboard, Complete does nothing, and the hub stays open until
// AllComplete.
func (h *Hub) Complete(summary *aggregator.Summary) {
	h.mu.Lock()
	multiRun := h.multiRun
	h.mu.Unlock()
	if multiRun {
		return
	}
	h.publish(event{Type: "complete", Data: summary})
	h.closeAll()
}

// NewRun announces the start of iteration `index` (1-based) of `total` in a
// multi-run repeat, per §6.
func (h *Hub) NewRun(index, total int) {
	h.mu.Lock()
	h.multiRun = true
	h.mu.Unlock()
	h.publish(event{Type: "new-run", Data: map[string]int{"index": index, "total": total}})
}

// RunComplete announces that iteration `index` finished with the given
// prepared chart data, per §6. Unlike Complete, this never closes the hub.
func (h *Hub) RunComplete(index int, prepared interface{}) {
	h.publish(event{Type: "run-complete", Data: map[string]interface{}{"index": index, "prepared": prepared}})
}

// AllComplete announces the end of a multi-run repeat and closes every
// connection, per §6.
func (h *Hub) AllComplete(summary interface{}) {
	h.publish(event{Type: "all-complete", Data: map[string]interface{}{"summary": summary}})
	h.closeAll()
}
