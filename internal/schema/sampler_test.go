package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateArgsDeterministic(t *testing.T) {
	s := ToolInputSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"name":  {Type: "string", MinLength: intPtr(6)},
			"count": {Type: "integer", Minimum: floatPtr(10)},
			"flag":  {Type: "boolean"},
			"lang":  {Type: "string", Enum: []interface{}{"a", "b", "c"}},
			"url":   {Type: "string", Format: "uri"},
		},
		Required: []string{"name", "count", "flag", "lang", "url"},
	}

	a, err := GenerateArgs(s)
	require.NoError(t, err)
	b, err := GenerateArgs(s)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	assert.Equal(t, "a", a["lang"])
	assert.Equal(t, "https://example.com", a["url"])
	assert.Equal(t, true, a["flag"])
	assert.GreaterOrEqual(t, len(a["name"].(string)), 6)
	assert.Equal(t, int64(60), a["count"])
}

func TestGenerateArgsOmitsNonRequired(t *testing.T) {
	s := ToolInputSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"required_field": {Type: "string"},
			"optional_field": {Type: "string"},
		},
		Required: []string{"required_field"},
	}
	out, err := GenerateArgs(s)
	require.NoError(t, err)
	_, ok := out["optional_field"]
	assert.False(t, ok)
	_, ok = out["required_field"]
	assert.True(t, ok)
}

func TestGenerateArgsArrayAndObject(t *testing.T) {
	s := ToolInputSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"tags": {Type: "array", Items: &PropertySchema{Type: "string"}},
			"nested": {
				Type: "object",
				Properties: map[string]PropertySchema{
					"inner": {Type: "integer"},
				},
				Required: []string{"inner"},
			},
		},
		Required: []string{"tags", "nested"},
	}
	out, err := GenerateArgs(s)
	require.NoError(t, err)

	tags, ok := out["tags"].([]interface{})
	require.True(t, ok)
	require.Len(t, tags, 1)

	nested, ok := out["nested"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, nested, "inner")
}

// PRNG determinism: SetSeed(k); [rng(), rng(), ...] equals itself across calls
// for any k, per §8 testable property 2.
func TestPRNGDeterminism(t *testing.T) {
	var p1, p2 PRNG
	p1.SetSeed(42)
	p2.SetSeed(42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, p1.NextFloat01(), p2.NextFloat01())
	}
}

// Schema sampler determinism scenario (§8 scenario 4): seed 42, 20 calls over
// a 6-value enum yields at least 2 distinct values, and repeating the seed
// reproduces the identical 20-element sequence.
func TestGenerateRandomArgsSeed42Scenario(t *testing.T) {
	s := ToolInputSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"lang": {Type: "string", Enum: []interface{}{"a", "b", "c", "d", "e", "f"}},
		},
		Required: []string{"lang"},
	}

	run := func() []interface{} {
		var rng PRNG
		rng.SetSeed(42)
		vals := make([]interface{}, 20)
		for i := 0; i < 20; i++ {
			out, err := GenerateRandomArgs(s, &rng)
			require.NoError(t, err)
			vals[i] = out["lang"]
		}
		return vals
	}

	seq1 := run()
	seq2 := run()
	assert.Equal(t, seq1, seq2)

	distinct := map[interface{}]struct{}{}
	for _, v := range seq1 {
		distinct[v] = struct{}{}
	}
	assert.GreaterOrEqual(t, len(distinct), 2)
}

func TestGenerateRandomArgsBounds(t *testing.T) {
	s := ToolInputSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"n": {Type: "number", Minimum: floatPtr(5), Maximum: floatPtr(10)},
		},
		Required: []string{"n"},
	}
	var rng PRNG
	rng.SetSeed(7)
	for i := 0; i < 100; i++ {
		out, err := GenerateRandomArgs(s, &rng)
		require.NoError(t, err)
		n := out["n"].(float64)
		assert.GreaterOrEqual(t, n, 5.0)
		assert.LessOrEqual(t, n, 10.0)
	}
}

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }
