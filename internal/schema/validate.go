package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateInputSchema checks that raw is itself a well-formed JSON Schema
// document before the sampler generates arguments against it, per
// SPEC_FULL.md §11. A malformed schema is reported, not panicked on, so the
// Engine can skip the tool and log rather than abort the run.
func ValidateInputSchema(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("malformed inputSchema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("inputSchema.json", doc); err != nil {
		return fmt.Errorf("malformed inputSchema: %w", err)
	}
	if _, err := c.Compile("inputSchema.json"); err != nil {
		return fmt.Errorf("malformed inputSchema: %w", err)
	}
	return nil
}
