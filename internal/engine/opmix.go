package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/bc-dunia/mcpstress/internal/client"
	"github.com/bc-dunia/mcpstress/internal/events"
	"github.com/bc-dunia/mcpstress/internal/mcpwire"
	"github.com/bc-dunia/mcpstress/internal/recorder"
)

// OpFunc executes one operation against the client and reports the
// interned method id it ran under, the latency the client measured at the
// transport boundary, and its outcome, per §4.6.1's "each operation records
// a success ... using the method id returned by the op" and §4.1's "the
// Engine never measures itself".
type OpFunc func(ctx context.Context, c *client.Client) (methodID int, latencyMs float64, err error)

// MixEntry is one `OperationMix` row: a method name, an optional bound tool
// (only meaningful for "tools/call"), and a weight, per §4.6.2.
type MixEntry struct {
	Method string
	Tool   string
	Weight int
}

// Mix is the flat-expanded, round-robin operation dispatcher: each entry is
// repeated Weight times into a fixed-size slice, and Next returns
// list[i++ mod len(list)]. This is intentionally NOT weighted-random
// sampling by cumulative weight with math/rand — flat-expansion round-robin
// gives a tighter, more predictable mix ratio over short windows.
type Mix struct {
	ops []OpFunc
	idx atomic.Int64
}

// ErrNoOperations reports an empty operations mix.
var ErrNoOperations = fmt.Errorf("engine: operation mix has no entries")

// NewMix builds the flat dispatch list. rec is used to intern method ids up
// front so the hot path never pays registration cost. tools is the tool list
// fetched by a prior tools/list call; it is only consulted for "tools/call"
// entries that don't bind a specific tool. resolver generates each call's
// arguments from the matching tool's discovered schema.
func NewMix(entries []MixEntry, tools []mcpwire.Tool, resolver *argResolver, rec *recorder.Recorder, log *events.EventLogger) (*Mix, error) {
	if len(entries) == 0 {
		return nil, ErrNoOperations
	}

	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}

	var ops []OpFunc
	for _, e := range entries {
		if e.Weight <= 0 {
			continue
		}
		op, err := buildOp(e, names, resolver, rec, log)
		if err != nil {
			return nil, err
		}
		for i := 0; i < e.Weight; i++ {
			ops = append(ops, op)
		}
	}
	if len(ops) == 0 {
		return nil, ErrNoOperations
	}
	return &Mix{ops: ops}, nil
}

func buildOp(e MixEntry, discoveredTools []string, resolver *argResolver, rec *recorder.Recorder, log *events.EventLogger) (OpFunc, error) {
	switch e.Method {
	case "tools/call":
		return buildToolsCallOp(e, discoveredTools, resolver, rec, log)
	case "ping":
		id := rec.RegisterMethod("ping")
		return func(ctx context.Context, c *client.Client) (int, float64, error) {
			lat, err := c.Ping(ctx)
			return id, lat, err
		}, nil
	case "tools/list":
		id := rec.RegisterMethod("tools/list")
		return func(ctx context.Context, c *client.Client) (int, float64, error) {
			_, lat, err := c.ListTools(ctx)
			return id, lat, err
		}, nil
	case "resources/list":
		id := rec.RegisterMethod("resources/list")
		return func(ctx context.Context, c *client.Client) (int, float64, error) {
			_, lat, err := c.ListResources(ctx)
			return id, lat, err
		}, nil
	case "prompts/list":
		id := rec.RegisterMethod("prompts/list")
		return func(ctx context.Context, c *client.Client) (int, float64, error) {
			_, lat, err := c.ListPrompts(ctx)
			return id, lat, err
		}, nil
	default:
		return nil, fmt.Errorf("engine: unsupported operation mix method %q", e.Method)
	}
}

func buildToolsCallOp(e MixEntry, discoveredTools []string, resolver *argResolver, rec *recorder.Recorder, log *events.EventLogger) (OpFunc, error) {
	if e.Tool != "" {
		id := rec.RegisterMethod("tools/call:" + e.Tool)
		return func(ctx context.Context, c *client.Client) (int, float64, error) {
			args, err := resolver.args(e.Tool)
			if err != nil {
				return id, 0, err
			}
			_, lat, err := c.CallTool(ctx, e.Tool, args)
			return id, lat, err
		}, nil
	}

	if len(discoveredTools) == 0 {
		// §13 decision 3: no discovered tools falls back to ping, logged once,
		// rather than a hard error.
		if log != nil {
			log.LogOperationFallback("tools/call", "ping")
		}
		id := rec.RegisterMethod("ping")
		return func(ctx context.Context, c *client.Client) (int, float64, error) {
			lat, err := c.Ping(ctx)
			return id, lat, err
		}, nil
	}

	ids := make([]int, len(discoveredTools))
	for i, name := range discoveredTools {
		ids[i] = rec.RegisterMethod("tools/call:" + name)
	}
	var rr atomic.Int64
	return func(ctx context.Context, c *client.Client) (int, float64, error) {
		i := int(rr.Add(1)-1) % len(discoveredTools)
		name := discoveredTools[i]
		args, err := resolver.args(name)
		if err != nil {
			return ids[i], 0, err
		}
		_, lat, err := c.CallTool(ctx, name, args)
		return ids[i], lat, err
	}, nil
}

// Next returns the next operation in round-robin order.
func (m *Mix) Next() OpFunc {
	i := int(m.idx.Add(1)-1) % len(m.ops)
	return m.ops[i]
}

// Len reports the flat-expanded operation count.
func (m *Mix) Len() int {
	return len(m.ops)
}
