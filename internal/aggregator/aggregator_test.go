package aggregator

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bc-dunia/mcpstress/internal/stats"
)

func TestAggregatorWritesMetaRequestAndSummaryLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ndjson")

	a := New()
	a.Init(path, map[string]interface{}{"runId": "abc"})
	a.Method(1, "tools/call")
	a.Batch([]RawRecord{
		{T: 10, MethodID: 1, LatencyMs: 5, OK: true},
		{T: 20, MethodID: 1, LatencyMs: 15, OK: false, ErrorCategoryInt: 3, ErrorCode: -32000},
	})
	a.Complete()

	summary := a.Summary()
	if summary.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", summary.TotalRequests)
	}
	if summary.TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1", summary.TotalErrors)
	}
	if summary.ErrorRate != 50 {
		t.Errorf("ErrorRate = %v, want 50", summary.ErrorRate)
	}
	if got := summary.ByMethod["tools/call"].Count; got != 2 {
		t.Errorf("ByMethod[tools/call].Count = %d, want 2", got)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening run file: %v", err)
	}
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("unmarshalling line: %v", err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4 (meta, 2 requests, summary)", len(lines))
	}
	if lines[0]["type"] != "meta" || lines[0]["runId"] != "abc" {
		t.Errorf("first line = %+v, want meta with runId abc", lines[0])
	}
	if lines[len(lines)-1]["type"] != "summary" {
		t.Errorf("last line = %+v, want summary", lines[len(lines)-1])
	}
}

func TestAggregatorEmptyRunStillEmitsZeroedSummary(t *testing.T) {
	a := New()
	a.Init("", nil)
	a.Complete()

	summary := a.Summary()
	if summary.TotalRequests != 0 || summary.TotalErrors != 0 {
		t.Errorf("expected zeroed summary for empty run, got %+v", summary)
	}
	if summary.RequestsPerSec != 0 {
		t.Errorf("RequestsPerSec = %v, want 0 for a run with no lastT", summary.RequestsPerSec)
	}
}

func TestAggregatorSinkReceivesLifecycleEvents(t *testing.T) {
	sink := &fakeSink{}
	a := New()
	a.SetSink(sink)
	a.Init("", map[string]interface{}{"runId": "xyz"})
	a.Method(1, "ping")
	a.Batch([]RawRecord{{T: 5, MethodID: 1, LatencyMs: 1, OK: true}})
	a.Message("hello")
	a.Complete()
	_ = a.Summary()

	if sink.metaCalls != 1 {
		t.Errorf("metaCalls = %d, want 1", sink.metaCalls)
	}
	if sink.messages != 1 {
		t.Errorf("messages = %d, want 1", sink.messages)
	}
	if sink.completeCalls != 1 {
		t.Errorf("completeCalls = %d, want 1", sink.completeCalls)
	}
}

type fakeSink struct {
	metaCalls     int
	messages      int
	completeCalls int
}

func (f *fakeSink) Meta(map[string]interface{}) { f.metaCalls++ }
func (f *fakeSink) Window(w stats.Window)       {}
func (f *fakeSink) Message(text string)         { f.messages++ }
func (f *fakeSink) Complete(summary *Summary)   { f.completeCalls++ }
