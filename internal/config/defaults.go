// Package config centralizes the driver's numeric/timing defaults as typed
// constants, grouped the same way a session/telemetry defaults file groups
// its own knobs.
package config

const (
	// Recorder batching cadence, per §4.3/§5.
	RecorderBatchIntervalMs = 50

	// Aggregator file-writer flush thresholds, per §5.
	AggregatorFlushBytes = 64 * 1024
	AggregatorFlushMs    = 100

	// Default per-request timeout, per §5/§6.
	DefaultRequestTimeoutMs = 30000

	// Window bucketing thresholds, per §4.7/§9 ("keep these exact values").
	WindowMs1s  = 1000
	WindowMs5s  = 5000
	WindowMs10s = 10000
	WindowMs30s = 30000

	// Duration thresholds (seconds) that select the window size above.
	WindowThresholdSec1 = 60
	WindowThresholdSec2 = 300
	WindowThresholdSec3 = 600

	// Anomaly detection, per §4.7.
	AnomalyRollingWindowCount = 10
	AnomalyP99Multiplier      = 3.0

	// Find-ceiling defaults, per §4.6.3.
	DefaultPhaseDurationSec = 5
	DefaultPlateauThreshold = 0.05
	DefaultMaxConcurrency   = 500
	PlateauP50GainThreshold = 0.2
	DegradationRPSFactor    = 0.9
	ErrorSaturationFraction = 0.1

	// Dashboard, per §6.
	DashboardWindowIntervalMs = 1000
	DashboardRateLimitPerSec  = 5

	// Named-run library, per §6.
	RunsDirName = ".mcp-stress/runs"
)
