package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bc-dunia/mcpstress/internal/engine"
	"github.com/bc-dunia/mcpstress/internal/mcpwire"
	"github.com/bc-dunia/mcpstress/internal/stats"
	"github.com/bc-dunia/mcpstress/internal/transport"
)

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestReadRunFileParsesMetaSummaryAndCountsRequests(t *testing.T) {
	path := writeTempFile(t, "run.ndjson", `{"type":"meta","runId":"abc"}
{"type":"request","methodId":1}
{"type":"request","methodId":2}
{"type":"summary","totalRequests":2,"overall":{"p50":10}}
`)
	rf, err := readRunFile(path)
	if err != nil {
		t.Fatalf("readRunFile: %v", err)
	}
	if rf.Meta["runId"] != "abc" {
		t.Errorf("meta runId = %v, want abc", rf.Meta["runId"])
	}
	if rf.RequestRows != 2 {
		t.Errorf("RequestRows = %d, want 2", rf.RequestRows)
	}
	if rf.Summary == nil {
		t.Fatal("Summary = nil, want non-nil")
	}
	overall, _ := rf.Summary["overall"].(map[string]interface{})
	if numericField(overall, "p50") != 10 {
		t.Errorf("p50 = %v, want 10", numericField(overall, "p50"))
	}
}

func TestReadRunFileRejectsEmptyFile(t *testing.T) {
	path := writeTempFile(t, "empty.ndjson", "")
	if _, err := readRunFile(path); err == nil {
		t.Fatal("expected error for empty run file, got nil")
	}
}

func TestReadRunFileRejectsMissingMeta(t *testing.T) {
	path := writeTempFile(t, "nometa.ndjson", `{"type":"summary","totalRequests":1}
`)
	if _, err := readRunFile(path); err == nil {
		t.Fatal("expected error for run file missing meta line, got nil")
	}
}

func TestNumericFieldMissingKeyReturnsZero(t *testing.T) {
	m := map[string]interface{}{"present": 3.5}
	if got := numericField(m, "present"); got != 3.5 {
		t.Errorf("present = %v, want 3.5", got)
	}
	if got := numericField(m, "absent"); got != 0 {
		t.Errorf("absent = %v, want 0", got)
	}
	if got := numericField(nil, "absent"); got != 0 {
		t.Errorf("nil map = %v, want 0", got)
	}
}

func TestLoadProfileFileConvertsFieldsAndAssertions(t *testing.T) {
	path := writeTempFile(t, "profile.yaml", `
mix:
  - method: tools/call
    tool: echo
    weight: 3
durationSec: 30
peakConcurrency: 10
shape: linear-ramp
findCeiling:
  maxConcurrency: 200
  plateauThreshold: 0.05
assertions:
  - "p99 < 500ms"
  - "error_rate < 1%"
`)
	profile, assertions, err := loadProfileFile(path)
	if err != nil {
		t.Fatalf("loadProfileFile: %v", err)
	}
	if len(profile.Mix) != 1 || profile.Mix[0].Method != "tools/call" || profile.Mix[0].Weight != 3 {
		t.Errorf("Mix = %+v, want one entry tools/call weight 3", profile.Mix)
	}
	if profile.DurationSec != 30 || profile.PeakConcurrency != 10 || profile.Shape != "linear-ramp" {
		t.Errorf("profile = %+v, unexpected scalar fields", profile)
	}
	if profile.FindCeiling == nil || profile.FindCeiling.MaxConcurrency != 200 {
		t.Errorf("FindCeiling = %+v, want MaxConcurrency 200", profile.FindCeiling)
	}
	if len(assertions) != 2 {
		t.Errorf("assertions = %v, want 2 entries", assertions)
	}
}

func TestLoadProfileFileMissingFile(t *testing.T) {
	if _, _, err := loadProfileFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing profile file, got nil")
	}
}

func TestConnectOptionsBuildConfigRequiresURLOrCommand(t *testing.T) {
	o := connectOptions{}
	if _, _, err := o.buildConfig(); err == nil {
		t.Fatal("expected error when neither --url nor a command is set")
	}
}

func TestConnectOptionsBuildConfigURLPicksStreamableHTTPByDefault(t *testing.T) {
	o := connectOptions{url: "https://example.com/mcp"}
	kind, cfg, err := o.buildConfig()
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if kind != transport.KindStreamableHTTP {
		t.Errorf("kind = %v, want %v", kind, transport.KindStreamableHTTP)
	}
	if cfg.URL != o.url {
		t.Errorf("cfg.URL = %q, want %q", cfg.URL, o.url)
	}
}

func TestConnectOptionsBuildConfigLegacySSE(t *testing.T) {
	o := connectOptions{url: "https://example.com/mcp", legacySSE: true}
	kind, _, err := o.buildConfig()
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if kind != transport.KindSSE {
		t.Errorf("kind = %v, want %v", kind, transport.KindSSE)
	}
}

func TestConnectOptionsBuildConfigStdioCommand(t *testing.T) {
	o := connectOptions{command: []string{"./server", "--flag"}}
	kind, cfg, err := o.buildConfig()
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if kind != transport.KindStdio {
		t.Errorf("kind = %v, want %v", kind, transport.KindStdio)
	}
	if len(cfg.Command) != 2 {
		t.Errorf("cfg.Command = %v, want 2 elements", cfg.Command)
	}
}

func TestSplitArgsOnDashDash(t *testing.T) {
	args := []string{"./server", "--flag", "value"}
	if got := splitArgsOnDashDash(args, 0); len(got) != 3 {
		t.Errorf("dashAt=0: got %v", got)
	}
	if got := splitArgsOnDashDash(args, -1); got != nil {
		t.Errorf("dashAt=-1: got %v, want nil", got)
	}
	if got := splitArgsOnDashDash(args, 5); got != nil {
		t.Errorf("dashAt beyond len: got %v, want nil", got)
	}
}

func TestPercentDelta(t *testing.T) {
	cases := []struct {
		base, cur, want float64
	}{
		{100, 110, 10},
		{100, 90, -10},
		{0, 0, 0},
		{0, 5, 100},
	}
	for _, c := range cases {
		if got := percentDelta(c.base, c.cur); got != c.want {
			t.Errorf("percentDelta(%v, %v) = %v, want %v", c.base, c.cur, got, c.want)
		}
	}
}

func TestEvaluateAssertionsPassAndFail(t *testing.T) {
	sum := stats.Summary{RPS: 120, P99: 250, ErrorRatePct: 0.5}
	if failed := evaluateAssertions(sum, []string{"rps > 100", "p99 < 500ms"}); failed {
		t.Error("expected all assertions to pass")
	}
	if failed := evaluateAssertions(sum, []string{"rps > 1000"}); !failed {
		t.Error("expected assertion to fail")
	}
	if failed := evaluateAssertions(sum, []string{"not an assertion"}); !failed {
		t.Error("expected unparsable assertion to count as a failure")
	}
}

func TestIsMethodNotFound(t *testing.T) {
	notFound := &transport.OpError{Category: transport.CategoryServer, Code: mcpwire.CodeMethodNotFound}
	if !isMethodNotFound(notFound) {
		t.Error("expected -32601 server error to be recognized as method-not-found")
	}
	other := &transport.OpError{Category: transport.CategoryServer, Code: -32000}
	if isMethodNotFound(other) {
		t.Error("expected a different server error code to not be recognized as method-not-found")
	}
	if isMethodNotFound(errors.New("plain error")) {
		t.Error("expected a plain error to not be recognized as method-not-found")
	}
}

func TestHistoryRemoveRejectsInvalidName(t *testing.T) {
	if err := historyRemove("../etc/passwd"); err == nil {
		t.Fatal("expected error for invalid run name")
	}
	if err := historyRemove("name with spaces"); err == nil {
		t.Fatal("expected error for run name with spaces")
	}
}

func TestBuiltinProfilesAndShapesAreNonEmpty(t *testing.T) {
	if len(builtinProfiles) == 0 {
		t.Error("expected at least one built-in profile")
	}
	seen := map[string]bool{}
	for _, p := range builtinProfiles {
		if seen[p.name] {
			t.Errorf("duplicate built-in profile name %q", p.name)
		}
		seen[p.name] = true
	}
	if len(engine.ShapeNames) == 0 {
		t.Error("expected at least one built-in shape")
	}
}
