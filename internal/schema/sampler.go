package schema

import (
	"fmt"
	"math"
	"strings"
)

// wordPool backs GenerateRandomArgs's string generation: a small fixed pool
// of nouns/verbs/adjectives/phrases, per §4.5.
var wordPool = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "fox", "golf", "hotel",
	"run", "build", "deploy", "sample", "stress", "drift", "ceiling", "spike",
	"quick", "slow", "tiny", "large", "stale", "fresh", "noisy", "quiet",
	"session", "worker", "client", "server", "stream", "socket", "payload",
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateArgs deterministically builds an argument object satisfying
// schema's required properties, per §4.5.
func GenerateArgs(s ToolInputSchema) (map[string]interface{}, error) {
	return generateObject(s.Properties, s.Required, genLeafDeterministic)
}

// GenerateRandomArgs builds the same shape but drives every leaf value from
// rng, per §4.5.
func GenerateRandomArgs(s ToolInputSchema, rng *PRNG) (map[string]interface{}, error) {
	gen := func(p PropertySchema) (interface{}, error) {
		return genLeafRandom(p, rng)
	}
	return generateObject(s.Properties, s.Required, gen)
}

type leafGenFn func(PropertySchema) (interface{}, error)

func generateObject(props map[string]PropertySchema, required []string, gen leafGenFn) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(required))
	for _, name := range required {
		p, ok := props[name]
		if !ok {
			// Required property absent from the schema's properties map: treat
			// as an untyped string leaf rather than erroring, since the tool
			// declared it required without describing its shape.
			p = PropertySchema{Type: "string"}
		}
		v, err := genValue(p, gen)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func genValue(p PropertySchema, gen leafGenFn) (interface{}, error) {
	switch p.Type {
	case "object":
		return generateObject(p.Properties, p.Required, gen)
	case "array":
		item := PropertySchema{Type: "string"}
		if p.Items != nil {
			item = *p.Items
		}
		v, err := genValue(item, gen)
		if err != nil {
			return nil, err
		}
		return []interface{}{v}, nil
	default:
		return gen(p)
	}
}

func genLeafDeterministic(p PropertySchema) (interface{}, error) {
	if len(p.Enum) > 0 {
		return p.Enum[0], nil
	}
	switch p.Type {
	case "integer", "number":
		min := 0.0
		if p.Minimum != nil {
			min = *p.Minimum
		}
		v := math.Floor(min + (min+100-min)/2)
		if p.Type == "integer" {
			return int64(v), nil
		}
		return v, nil
	case "boolean":
		return true, nil
	case "string", "":
		return formatAwareDefault(p), nil
	default:
		return formatAwareDefault(p), nil
	}
}

func formatAwareDefault(p PropertySchema) string {
	switch p.Format {
	case "uri", "url":
		return "https://example.com"
	case "email":
		return "test@example.com"
	case "date":
		return "2025-01-01"
	case "date-time":
		return "2025-01-01T00:00:00Z"
	}
	s := "test"
	if p.MinLength != nil && *p.MinLength > len(s) {
		s += strings.Repeat("x", *p.MinLength-len(s))
	}
	return s
}

func genLeafRandom(p PropertySchema, rng *PRNG) (interface{}, error) {
	if len(p.Enum) > 0 {
		return p.Enum[rng.NextIntRange(0, len(p.Enum)-1)], nil
	}
	switch p.Type {
	case "integer":
		min, max := 0.0, 100.0
		if p.Minimum != nil {
			min = *p.Minimum
		}
		if p.Maximum != nil {
			max = *p.Maximum
		}
		return int64(rng.NextIntRange(int(min), int(max))), nil
	case "number":
		min, max := 0.0, 100.0
		if p.Minimum != nil {
			min = *p.Minimum
		}
		if p.Maximum != nil {
			max = *p.Maximum
		}
		return rng.NextFloatRange(min, max), nil
	case "boolean":
		return rng.NextBool(), nil
	case "string", "":
		return randomString(p, rng), nil
	default:
		return randomString(p, rng), nil
	}
}

func randomString(p PropertySchema, rng *PRNG) string {
	switch p.Format {
	case "uri", "url":
		return "https://example.com"
	case "email":
		return "test@example.com"
	case "date":
		return "2025-01-01"
	case "date-time":
		return "2025-01-01T00:00:00Z"
	}
	if strings.EqualFold(p.Format, "uuid") || strings.Contains(strings.ToLower(p.Format), "id") {
		return randomID(rng)
	}

	n := rng.NextIntRange(1, 4)
	words := make([]string, n)
	for i := 0; i < n; i++ {
		words[i] = wordPool[rng.NextIntRange(0, len(wordPool)-1)]
	}
	s := strings.Join(words, " ")
	if p.MinLength != nil && *p.MinLength > len(s) {
		s += strings.Repeat("x", *p.MinLength-len(s))
	}
	return s
}

func randomID(rng *PRNG) string {
	n := rng.NextIntRange(8, 23)
	b := make([]byte, n)
	for i := range b {
		b[i] = idAlphabet[rng.NextIntRange(0, len(idAlphabet)-1)]
	}
	return string(b)
}
