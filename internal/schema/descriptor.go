package schema

import "encoding/json"

// PropertySchema is one JSON-Schema property descriptor, adapted from an
// argument-validation schema type with an added Enum field (the original
// validator never needed enum support; the sampler here does).
type PropertySchema struct {
	Type       string                    `json:"type"`
	Format     string                    `json:"format,omitempty"`
	MinLength  *int                      `json:"minLength,omitempty"`
	MaxLength  *int                      `json:"maxLength,omitempty"`
	Minimum    *float64                  `json:"minimum,omitempty"`
	Maximum    *float64                  `json:"maximum,omitempty"`
	MinItems   *int                      `json:"minItems,omitempty"`
	MaxItems   *int                      `json:"maxItems,omitempty"`
	Enum       []interface{}             `json:"enum,omitempty"`
	Items      *PropertySchema           `json:"items,omitempty"`
	Properties map[string]PropertySchema `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

// ToolInputSchema is the top-level descriptor a tool's `inputSchema` decodes
// into.
type ToolInputSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

// Parse decodes raw JSON Schema bytes into a ToolInputSchema. Malformed input
// is returned as an error so the caller can skip + log rather than panic,
// per SPEC_FULL.md §11's jsonschema/v6 pre-validation note.
func Parse(raw json.RawMessage) (ToolInputSchema, error) {
	var s ToolInputSchema
	if len(raw) == 0 {
		return ToolInputSchema{Type: "object"}, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return ToolInputSchema{}, err
	}
	if s.Type == "" {
		s.Type = "object"
	}
	return s, nil
}
