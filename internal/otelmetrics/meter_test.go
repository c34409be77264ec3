package otelmetrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bc-dunia/mcpstress/internal/recorder"
)

func TestNewDisabledMeterIsSafeToUse(t *testing.T) {
	m, err := New(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	assert.False(t, m.Enabled())
	m.RecordBatch([]recorder.Record{{MethodID: 1, LatencyMs: 5, OK: true, Phase: -1}})
}

func TestNewStdoutMeterRecordsBatch(t *testing.T) {
	m, err := New(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "mcpstress-test",
		ExporterType: ExporterStdout,
	})
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	assert.True(t, m.Enabled())
	m.RecordBatch([]recorder.Record{
		{MethodID: 1, LatencyMs: 12.5, OK: true, ConcurrencyLevel: 4, Phase: 2},
		{MethodID: 1, LatencyMs: 40, OK: false, ErrorCategoryInt: 1, ConcurrencyLevel: 4, Phase: 2},
	})
	assert.EqualValues(t, 4, m.currentConcurrency.Load())
	assert.EqualValues(t, 2, m.currentPhase.Load())
}

func TestConfigFromEnvDefaultsToStdout(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg := ConfigFromEnv(true)
	assert.Equal(t, ExporterStdout, cfg.ExporterType)
}

func TestConfigFromEnvPicksOTLPHTTP(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	cfg := ConfigFromEnv(true)
	assert.Equal(t, ExporterOTLPHTTP, cfg.ExporterType)
	assert.Equal(t, "http://collector:4318", cfg.OTLPEndpoint)
}

func TestConfigFromEnvDisabledIsNone(t *testing.T) {
	cfg := ConfigFromEnv(false)
	assert.Equal(t, ExporterNone, cfg.ExporterType)
}

func TestCategoryNameMapsAllBuckets(t *testing.T) {
	cases := map[int]string{
		1: "timeout",
		2: "protocol",
		3: "server",
		4: "network",
		5: "client",
		0: "unknown",
	}
	for category, want := range cases {
		got := categoryName(recorder.Record{OK: false, ErrorCategoryInt: category})
		assert.Equal(t, want, got)
	}
	assert.Equal(t, "success", categoryName(recorder.Record{OK: true, ErrorCategoryInt: 3}))
}
