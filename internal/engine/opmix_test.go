package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bc-dunia/mcpstress/internal/aggregator"
	"github.com/bc-dunia/mcpstress/internal/client"
	"github.com/bc-dunia/mcpstress/internal/events"
	"github.com/bc-dunia/mcpstress/internal/mcpwire"
	"github.com/bc-dunia/mcpstress/internal/recorder"
	"github.com/bc-dunia/mcpstress/internal/schema"
)

func newTestRecorder() *recorder.Recorder {
	agg := aggregator.New()
	return recorder.New(agg, 10*time.Millisecond)
}

func TestMixFlatExpansionRoundRobin(t *testing.T) {
	rec := newTestRecorder()
	ft := &fakeTransport{}
	c := client.New(ft, nil)

	entries := []MixEntry{
		{Method: "ping", Weight: 2},
		{Method: "tools/list", Weight: 1},
	}
	resolver := newArgResolver(nil, seededPRNG(1), nil)
	mix, err := NewMix(entries, nil, resolver, rec, nil)
	require.NoError(t, err)
	require.Equal(t, 3, mix.Len())

	var methodIDs []int
	for i := 0; i < 6; i++ {
		op := mix.Next()
		id, _, err := op(context.Background(), c)
		require.NoError(t, err)
		methodIDs = append(methodIDs, id)
	}
	// round-robin over 3 slots repeats with period 3.
	assert.Equal(t, methodIDs[0], methodIDs[3])
	assert.Equal(t, methodIDs[1], methodIDs[4])
	assert.Equal(t, methodIDs[2], methodIDs[5])
}

func TestMixToolsCallBoundToSingleTool(t *testing.T) {
	rec := newTestRecorder()
	entries := []MixEntry{{Method: "tools/call", Tool: "search", Weight: 1}}
	resolver := newArgResolver(nil, seededPRNG(1), nil)
	mix, err := NewMix(entries, nil, resolver, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mix.Len())
}

func TestMixToolsCallFallsBackToPingWithNoDiscoveredTools(t *testing.T) {
	rec := newTestRecorder()
	log := events.NewEventLogger("test", false)
	entries := []MixEntry{{Method: "tools/call", Weight: 1}}
	resolver := newArgResolver(nil, seededPRNG(1), nil)
	mix, err := NewMix(entries, nil, resolver, rec, log)
	require.NoError(t, err)
	assert.Equal(t, 1, mix.Len())
}

func TestMixEmptyReturnsErrNoOperations(t *testing.T) {
	rec := newTestRecorder()
	resolver := newArgResolver(nil, seededPRNG(1), nil)
	_, err := NewMix(nil, nil, resolver, rec, nil)
	assert.ErrorIs(t, err, ErrNoOperations)
}

func TestArgResolverUsesDiscoveredSchema(t *testing.T) {
	tools := []mcpwire.Tool{
		{Name: "echo", InputSchema: []byte(`{"type":"object","properties":{"msg":{"type":"string"}},"required":["msg"]}`)},
	}
	var rng schema.PRNG
	rng.SetSeed(5)
	r := newArgResolver(tools, &rng, nil)
	args, err := r.args("echo")
	require.NoError(t, err)
	_, ok := args["msg"]
	assert.True(t, ok)
}
