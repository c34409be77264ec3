package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShapeConstant(t *testing.T) {
	fn, ok := Shape("constant")
	assert.True(t, ok)
	assert.Equal(t, 10, fn(0, 100, 10))
	assert.Equal(t, 10, fn(99, 100, 10))
}

func TestShapeLinearRamp(t *testing.T) {
	fn, _ := Shape("linear-ramp")
	assert.Equal(t, 1, fn(0, 100, 10))
	assert.Equal(t, 10, fn(100, 100, 10))
	assert.Equal(t, 5, fn(50, 100, 10))
}

func TestShapeStepFiveLevels(t *testing.T) {
	fn, _ := Shape("step")
	seen := map[int]bool{}
	for t10 := 0.0; t10 < 100; t10 += 1 {
		seen[fn(t10, 100, 10)] = true
	}
	assert.LessOrEqual(t, len(seen), 5)
}

func TestShapeSpikeBaselineAndPeak(t *testing.T) {
	fn, _ := Shape("spike")
	assert.Equal(t, 1, fn(0, 100, 10)) // baseline = ceil(10*0.1) = 1
	assert.Equal(t, 10, fn(50, 100, 10))
}

func TestShapeSawtoothCycles(t *testing.T) {
	fn, _ := Shape("sawtooth")
	// four cycles of 0..peak over duration; at each cycle start, value is low.
	assert.Equal(t, 1, fn(0, 100, 10))
}

func TestShapeExponentialClampedToOne(t *testing.T) {
	fn, _ := Shape("exponential")
	assert.GreaterOrEqual(t, fn(0, 100, 10), 1)
}

func TestAllShapesClampToAtLeastOne(t *testing.T) {
	for _, name := range ShapeNames {
		fn, ok := Shape(name)
		assert.True(t, ok, name)
		for _, tt := range []float64{0, 1, 50, 99, 100} {
			v := fn(tt, 100, 3)
			assert.GreaterOrEqual(t, v, 1, "%s at t=%v", name, tt)
		}
	}
}
