// Package events provides structured event logging for one run of the
// driver: one slog.JSONHandler logger per run with pre-bound fields, scoped
// to this driver's own run lifecycle events.
package events

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

type EventLogger struct {
	logger *slog.Logger
	runID  string
}

func NewEventLogger(runID string, verbose bool) *EventLogger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With("run_id", runID)
	return &EventLogger{logger: logger, runID: runID}
}

func NewEventLoggerWithWriter(runID string, w io.Writer) *EventLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(handler).With("run_id", runID)
	return &EventLogger{logger: logger, runID: runID}
}

// LogSessionConnect logs a successful transport connect.
func (el *EventLogger) LogSessionConnect(sessionID, transportKind string, latencyMs float64) {
	el.logger.Info("session_connect", "session_id", sessionID, "transport", transportKind, "latency_ms", latencyMs)
}

// LogStreamStall logs a detected SSE stream stall.
func (el *EventLogger) LogStreamStall(sessionID string, stallMs float64) {
	el.logger.Warn("stream_stall", "session_id", sessionID, "stall_ms", stallMs)
}

// LogPhaseTransition logs a find-ceiling phase boundary.
func (el *EventLogger) LogPhaseTransition(phase int, concurrency int, outcome string) {
	el.logger.Info("phase_transition", "phase", phase, "concurrency", concurrency, "outcome", outcome)
}

// LogPlateauDetected logs the find-ceiling controller's terminal decision.
func (el *EventLogger) LogPlateauDetected(reason string, concurrency int) {
	el.logger.Info("plateau_detected", "reason", reason, "concurrency", concurrency)
}

// LogProtocolVersionMismatch logs a non-fatal handshake version mismatch.
func (el *EventLogger) LogProtocolVersionMismatch(requested, returned string) {
	el.logger.Warn("protocol_version_mismatch", "requested", requested, "returned", returned)
}

// LogOperationFallback logs the tools/call-with-no-tools -> ping fallback.
func (el *EventLogger) LogOperationFallback(from, to string) {
	el.logger.Info("operation_fallback", "from", from, "to", to)
}

// LogDashboardError logs a non-fatal dashboard write/broadcast failure.
func (el *EventLogger) LogDashboardError(err error) {
	el.logger.Warn("dashboard_error", "error", err.Error())
}

// LogRawGarbageLine surfaces a non-JSON stdio line at Debug, per §10 verbose
// mode.
func (el *EventLogger) LogRawGarbageLine(line string) {
	el.logger.Debug("stdio_garbage_line", "line", line)
}

func (el *EventLogger) Logger() *slog.Logger { return el.logger }

var (
	globalLogger *EventLogger
	globalMu     sync.RWMutex
	noopLogger   = NoopEventLogger()
)

func SetGlobalEventLogger(l *EventLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

func GetGlobalEventLogger() *EventLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger
	}
	return noopLogger
}

func NoopEventLogger() *EventLogger {
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &EventLogger{logger: slog.New(handler)}
}
