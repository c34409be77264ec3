package engine

import (
	"sync"

	"github.com/bc-dunia/mcpstress/internal/events"
	"github.com/bc-dunia/mcpstress/internal/mcpwire"
	"github.com/bc-dunia/mcpstress/internal/schema"
)

// argResolver generates a tools/call argument object for each dispatched
// call. It owns the one PRNG for the whole run, so every access is
// serialized: §4.5 requires all randomness to route through a single seeded
// generator, and the mix dispatches tool calls from many concurrent workers
// within a tick.
type argResolver struct {
	mu      sync.Mutex
	rng     *schema.PRNG
	schemas map[string]schema.ToolInputSchema
	log     *events.EventLogger
}

func newArgResolver(tools []mcpwire.Tool, rng *schema.PRNG, log *events.EventLogger) *argResolver {
	r := &argResolver{
		rng:     rng,
		schemas: make(map[string]schema.ToolInputSchema, len(tools)),
		log:     log,
	}
	for _, t := range tools {
		if err := schema.ValidateInputSchema(t.InputSchema); err != nil {
			if log != nil {
				log.Logger().Warn("tool_schema_invalid", "tool", t.Name, "error", err)
			}
			continue
		}
		s, err := schema.Parse(t.InputSchema)
		if err != nil {
			if log != nil {
				log.Logger().Warn("tool_schema_unparseable", "tool", t.Name, "error", err)
			}
			continue
		}
		r.schemas[t.Name] = s
	}
	return r
}

// args builds a seeded-random argument object for tool, matching the shape
// of its discovered inputSchema. A tool with no usable schema gets an empty
// object, which most handlers accept.
func (r *argResolver) args(name string) (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schemas[name]
	if !ok {
		return map[string]interface{}{}, nil
	}
	return schema.GenerateRandomArgs(s, r.rng)
}
