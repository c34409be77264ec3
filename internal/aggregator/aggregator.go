// Package aggregator implements the off-hot-path worker that holds the
// method/error-message dictionaries, serialises NDJSON, and computes the
// final summary. The by-operation/by-tool computation shape is built around
// an explicit message-passing inbox (init/method/errorMsg/batch/complete)
// rather than a mutex-guarded struct, and emits a fixed meta/request/summary
// NDJSON event vocabulary.
package aggregator

import (
	"io"
	"os"
	"sync"
	"time"

	json "github.com/segmentio/encoding/json"

	"github.com/bc-dunia/mcpstress/internal/stats"
)

type methodAcc struct {
	name      string
	latencies []float64
	count     int
	errors    int
}

// Aggregator is a single-owner consumer: the Recorder talks to it only
// through the methods below, which internally push onto a buffered inbox
// channel consumed by one goroutine — a single-writer shape expressed as
// message passing rather than mutual exclusion.
type Aggregator struct {
	inbox chan interface{}
	done  chan struct{}

	// State owned exclusively by the consumer goroutine below this point.
	methodNames   map[int]string
	methods       map[int]*methodAcc
	errMsgs       map[[2]int]string
	categoryCount [6]int64

	total, errorsTotal int64
	lastT              int64

	out       io.WriteCloser
	buf       []byte
	lastFlush time.Time

	meta map[string]interface{}

	summaryMu sync.Mutex
	summary   *Summary
	summaryCh chan *Summary

	// sink, when set, receives the same lifecycle/window events the NDJSON
	// file does, for the live dashboard (§6). Nil by default so the
	// Aggregator never depends on a dashboard server existing.
	sink Sink

	windowTicker    *time.Ticker
	windowLatencies []float64
	windowCount     int
	windowErrors    int
	windowConc      int
}

// Sink receives the live-dashboard event stream a run produces, mirroring
// the NDJSON vocabulary: a meta object once, a window roughly every second,
// free-form messages, and a final summary. Implemented by
// internal/dashboard.Hub; kept as an interface here so the Aggregator never
// imports the dashboard package.
type Sink interface {
	Meta(meta map[string]interface{})
	Window(w stats.Window)
	Message(text string)
	Complete(summary *Summary)
}

const liveWindowInterval = time.Second

type initMsg struct {
	outputPath string
	meta       map[string]interface{}
}
type methodMsg struct {
	id   int
	name string
}
type errorMsgMsg struct {
	category, code int
	msg            string
}
type batchMsg struct {
	records []RawRecord
}
type completeMsg struct{}
type sinkMsg struct{ sink Sink }
type messageMsg struct{ text string }

func New() *Aggregator {
	a := &Aggregator{
		inbox:       make(chan interface{}, 1024),
		done:        make(chan struct{}),
		methodNames: make(map[int]string),
		methods:     make(map[int]*methodAcc),
		errMsgs:     make(map[[2]int]string),
		summaryCh:   make(chan *Summary, 1),
	}
	go a.loop()
	return a
}

// SetSink wires a live-dashboard sink. Safe to call once, before the first
// Batch/Complete call; later calls replace the sink.
func (a *Aggregator) SetSink(s Sink) {
	a.inbox <- sinkMsg{sink: s}
}

// Message pushes a free-form dashboard message, per §6's `message` event.
func (a *Aggregator) Message(text string) {
	a.inbox <- messageMsg{text: text}
}

// Init opens outputPath (if non-empty) and records the run's meta object as
// the first NDJSON line.
func (a *Aggregator) Init(outputPath string, meta map[string]interface{}) {
	a.inbox <- initMsg{outputPath: outputPath, meta: meta}
}

func (a *Aggregator) Method(id int, name string) {
	a.inbox <- methodMsg{id: id, name: name}
}

func (a *Aggregator) ErrorMessage(category, code int, msg string) {
	a.inbox <- errorMsgMsg{category: category, code: code, msg: msg}
}

func (a *Aggregator) Batch(records []RawRecord) {
	a.inbox <- batchMsg{records: records}
}

func (a *Aggregator) Complete() {
	a.inbox <- completeMsg{}
	<-a.done
}

// Summary blocks until Complete has finished computing the final summary.
func (a *Aggregator) Summary() *Summary {
	return <-a.summaryCh
}

func (a *Aggregator) loop() {
	a.windowTicker = time.NewTicker(liveWindowInterval)
	defer a.windowTicker.Stop()

	for {
		select {
		case msg, ok := <-a.inbox:
			if !ok {
				return
			}
			switch m := msg.(type) {
			case initMsg:
				a.handleInit(m)
			case methodMsg:
				a.methodNames[m.id] = m.name
				a.methods[m.id] = &methodAcc{name: m.name}
			case errorMsgMsg:
				a.errMsgs[[2]int{m.category, m.code}] = m.msg
			case batchMsg:
				a.handleBatch(m.records)
			case sinkMsg:
				a.sink = m.sink
			case messageMsg:
				if a.sink != nil {
					a.sink.Message(m.text)
				}
			case completeMsg:
				a.flushWindow()
				a.handleComplete()
				close(a.done)
				return
			default:
				panic("aggregator: malformed inbox message") // programming error, per §4.9
			}
		case <-a.windowTicker.C:
			a.flushWindow()
		}
	}
}

// flushWindow emits (and resets) the live-dashboard window accumulated
// since the last tick, per §6's roughly-one-per-second `window` event.
// A no-op when no sink is attached or nothing happened this tick.
func (a *Aggregator) flushWindow() {
	if a.sink == nil {
		return
	}
	sorted := stats.SortedCopy(a.windowLatencies)
	a.sink.Window(stats.Window{
		T:           a.lastT,
		Count:       a.windowCount,
		Errors:      a.windowErrors,
		P50:         stats.Percentile(sorted, 0.5),
		P95:         stats.Percentile(sorted, 0.95),
		P99:         stats.Percentile(sorted, 0.99),
		Concurrency: a.windowConc,
	})
	a.windowLatencies = a.windowLatencies[:0]
	a.windowCount = 0
	a.windowErrors = 0
}

func (a *Aggregator) handleInit(m initMsg) {
	a.meta = m.meta
	if a.sink != nil {
		a.sink.Meta(m.meta)
	}
	if m.outputPath == "" {
		return
	}
	f, err := os.Create(m.outputPath)
	if err != nil {
		return // dashboard/file errors are logged by the caller layer, never fatal here
	}
	a.out = f
	a.writeLine(mergeType(m.meta, "meta"))
}

func (a *Aggregator) handleBatch(records []RawRecord) {
	for _, r := range records {
		a.total++
		if !r.OK {
			a.errorsTotal++
		}
		if r.T > a.lastT {
			a.lastT = r.T
		}
		a.categoryCount[r.ErrorCategoryInt]++

		acc, ok := a.methods[r.MethodID]
		if !ok {
			acc = &methodAcc{name: a.methodNames[r.MethodID]}
			a.methods[r.MethodID] = acc
		}
		acc.count++
		acc.latencies = append(acc.latencies, r.LatencyMs)
		if !r.OK {
			acc.errors++
		}

		a.windowCount++
		a.windowLatencies = append(a.windowLatencies, r.LatencyMs)
		if !r.OK {
			a.windowErrors++
		}
		if r.ConcurrencyLevel > 0 {
			a.windowConc = r.ConcurrencyLevel
		}

		a.writeLine(a.requestEvent(r))
	}
}

func (a *Aggregator) requestEvent(r RawRecord) map[string]interface{} {
	ev := map[string]interface{}{
		"t":         r.T,
		"method":    a.methodNames[r.MethodID],
		"latencyMs": r.LatencyMs,
		"ok":        r.OK,
	}
	if !r.OK {
		ev["errorCategory"] = categoryName(r.ErrorCategoryInt)
		ev["errorCode"] = r.ErrorCode
		if m, ok := a.errMsgs[[2]int{r.ErrorCategoryInt, r.ErrorCode}]; ok {
			ev["error"] = m
		}
	}
	if r.ConcurrencyLevel > 0 {
		ev["concurrency"] = r.ConcurrencyLevel
	}
	if r.Phase >= 0 {
		ev["phase"] = r.Phase
	}
	return ev
}

func categoryName(i int) string {
	switch i {
	case 1:
		return "timeout"
	case 2:
		return "protocol"
	case 3:
		return "server"
	case 4:
		return "network"
	case 5:
		return "client"
	default:
		return ""
	}
}

func (a *Aggregator) writeLine(v interface{}) {
	if a.out == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	a.buf = append(a.buf, b...)
	a.buf = append(a.buf, '\n')
	if len(a.buf) >= 64*1024 || time.Since(a.lastFlush) > 100*time.Millisecond {
		a.flush()
	}
}

func (a *Aggregator) flush() {
	if a.out == nil || len(a.buf) == 0 {
		a.lastFlush = time.Now()
		return
	}
	_, _ = a.out.Write(a.buf)
	a.buf = a.buf[:0]
	a.lastFlush = time.Now()
}

// MethodStats is the per-method breakdown in the final summary, per §3/§4.4.
type MethodStats struct {
	Count  int                `json:"count"`
	Errors int                `json:"errors"`
	Stats  stats.LatencyStats `json:"stats"`
}

// Summary is the final `summary` NDJSON line, per §3/§6.
type Summary struct {
	Type              string                 `json:"type"`
	TotalRequests     int64                  `json:"totalRequests"`
	TotalErrors       int64                  `json:"totalErrors"`
	DurationMs        int64                  `json:"durationMs"`
	RequestsPerSec    float64                `json:"requestsPerSecond"`
	ErrorRate         float64                `json:"errorRate"`
	Overall           stats.LatencyStats     `json:"overall"`
	ByMethod          map[string]MethodStats `json:"byMethod"`
	CategoryHistogram map[string]int64       `json:"categoryHistogram"`
}

func (a *Aggregator) handleComplete() {
	var overallLatencies []float64
	byMethod := make(map[string]MethodStats, len(a.methods))
	for _, acc := range a.methods {
		overallLatencies = append(overallLatencies, acc.latencies...)
		byMethod[acc.name] = MethodStats{
			Count:  acc.count,
			Errors: acc.errors,
			Stats:  stats.ComputeLatencyStats(acc.latencies),
		}
	}

	rps := 0.0
	// §13 open-question decision: rps = (totalRequests / lastRecordT) * 1000,
	// not wall-clock, so NDJSON round-trips stay stable.
	if a.lastT > 0 {
		rps = (float64(a.total) / float64(a.lastT)) * 1000
	}
	errorRate := 0.0
	if a.total > 0 {
		errorRate = float64(a.errorsTotal) / float64(a.total) * 100
	}

	hist := make(map[string]int64)
	for i, name := range []string{"success", "timeout", "protocol", "server", "network", "client"} {
		hist[name] = a.categoryCount[i]
	}

	summary := &Summary{
		Type:              "summary",
		TotalRequests:     a.total,
		TotalErrors:       a.errorsTotal,
		DurationMs:        a.lastT,
		RequestsPerSec:    rps,
		ErrorRate:         errorRate,
		Overall:           stats.ComputeLatencyStats(overallLatencies),
		ByMethod:          byMethod,
		CategoryHistogram: hist,
	}

	// Per §13: empty runs still emit a summary line with zeroed fields.
	if a.out != nil {
		a.writeLine(summary)
		a.flush()
		_ = a.out.Close()
	}

	a.summaryMu.Lock()
	a.summary = summary
	a.summaryMu.Unlock()
	a.summaryCh <- summary

	if a.sink != nil {
		a.sink.Complete(summary)
	}
}

func mergeType(m map[string]interface{}, typ string) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out["type"] = typ
	return out
}
