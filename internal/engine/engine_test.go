package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bc-dunia/mcpstress/internal/aggregator"
	"github.com/bc-dunia/mcpstress/internal/events"
	"github.com/bc-dunia/mcpstress/internal/recorder"
	"github.com/bc-dunia/mcpstress/internal/transport"
)

func newEngineForTest(t *testing.T, newTransport TransportFactory) (*Engine, *aggregator.Aggregator) {
	t.Helper()
	agg := aggregator.New()
	agg.Init("", map[string]interface{}{"runId": "test"})
	rec := recorder.New(agg, 10*time.Millisecond)
	log := events.NewEventLoggerWithWriter("test", &discardWriter{})
	return New(rec, agg, log, newTransport), agg
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestEngineRunShapedConstant(t *testing.T) {
	e, _ := newEngineForTest(t, func() (transport.Transport, error) {
		return &fakeTransport{}, nil
	})

	profile := WorkloadProfile{
		Mix:             []MixEntry{{Method: "ping", Weight: 1}},
		Shape:           "constant",
		PeakConcurrency: 3,
		DurationSec:     0.05,
	}
	result, err := e.Run(context.Background(), profile)
	require.NoError(t, err)
	require.NotNil(t, result.Summary)
	assert.Greater(t, result.Summary.TotalRequests, int64(0))
	assert.Equal(t, int64(0), result.Summary.TotalErrors)
}

func TestEngineRunShapedWithRequestCap(t *testing.T) {
	e, _ := newEngineForTest(t, func() (transport.Transport, error) {
		return &fakeTransport{}, nil
	})

	profile := WorkloadProfile{
		Mix:             []MixEntry{{Method: "ping", Weight: 1}},
		Shape:           "constant",
		PeakConcurrency: 5,
		Requests:        7,
		DurationSec:     5,
	}
	result, err := e.Run(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Summary.TotalRequests)
}

func TestEngineRunRecordsErrorsOnPingFailure(t *testing.T) {
	e, _ := newEngineForTest(t, func() (transport.Transport, error) {
		return &fakeTransport{failPing: true}, nil
	})

	profile := WorkloadProfile{
		Mix:             []MixEntry{{Method: "ping", Weight: 1}},
		Shape:           "constant",
		PeakConcurrency: 2,
		DurationSec:     0.05,
	}
	result, err := e.Run(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, result.Summary.TotalRequests, result.Summary.TotalErrors)
}

func TestEngineRunChurn(t *testing.T) {
	e, _ := newEngineForTest(t, func() (transport.Transport, error) {
		return &fakeTransport{}, nil
	})

	profile := WorkloadProfile{
		ConnectionChurn: true,
		ChurnWorkers:    2,
		DurationSec:     0.05,
	}
	result, err := e.Run(context.Background(), profile)
	require.NoError(t, err)
	require.NotNil(t, result.Summary)
	assert.Greater(t, result.Summary.TotalRequests, int64(0))
}

func TestEngineRunFindCeilingReportsPhases(t *testing.T) {
	e, _ := newEngineForTest(t, func() (transport.Transport, error) {
		return &fakeTransport{}, nil
	})

	profile := WorkloadProfile{
		Mix:         []MixEntry{{Method: "ping", Weight: 1}},
		DurationSec: 1,
		// MaxConcurrency: 1 keeps this to a single phase; the phase-duration
		// floor (max(5, ...), per §4.6.3) still applies regardless.
		FindCeiling: &FindCeilingConfig{PhaseDurationSec: 1, MaxConcurrency: 1},
	}
	result, err := e.Run(context.Background(), profile)
	require.NoError(t, err)
	assert.NotEmpty(t, result.FindCeilingPhases)
	require.NotNil(t, result.Plateau)
}

func TestEngineRunRejectsInvalidConfig(t *testing.T) {
	e, _ := newEngineForTest(t, func() (transport.Transport, error) {
		return &fakeTransport{}, nil
	})
	_, err := e.Run(context.Background(), WorkloadProfile{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
