package engine

import "math"

// ShapeFunc maps (elapsedSec, totalDurationSec, peak) to a target concurrency
// for the current tick, per §4.6. All six required shapes are clamped to at
// least 1 by Shape.
type ShapeFunc func(t, duration float64, peak int) int

// ShapeNames lists the built-in shapes, in the order `shapes` (the CLI
// enumerator) should print them.
var ShapeNames = []string{"constant", "linear-ramp", "exponential", "step", "spike", "sawtooth"}

// Shape resolves a built-in shape by name and wraps it with the ≥1 clamp
// every shape output must satisfy.
func Shape(name string) (ShapeFunc, bool) {
	fn, ok := rawShapes[name]
	if !ok {
		return nil, false
	}
	return func(t, duration float64, peak int) int {
		v := fn(t, duration, peak)
		if v < 1 {
			v = 1
		}
		return v
	}, true
}

var rawShapes = map[string]ShapeFunc{
	"constant": func(t, duration float64, peak int) int {
		return peak
	},
	"linear-ramp": func(t, duration float64, peak int) int {
		if duration <= 0 {
			return peak
		}
		return int(math.Ceil(t / duration * float64(peak)))
	},
	"exponential": func(t, duration float64, peak int) int {
		if duration <= 0 {
			return peak
		}
		num := math.Exp(3*t/duration) - 1
		den := math.Exp(3) - 1
		return int(math.Ceil(num / den * float64(peak)))
	},
	"step": func(t, duration float64, peak int) int {
		if duration <= 0 {
			return peak
		}
		// Five equal steps from peak/5 to peak.
		stepIdx := int(t / duration * 5)
		if stepIdx > 4 {
			stepIdx = 4
		}
		return int(math.Ceil(float64(peak) / 5 * float64(stepIdx+1)))
	},
	"spike": func(t, duration float64, peak int) int {
		if duration <= 0 {
			return peak
		}
		baseline := int(math.Ceil(float64(peak) * 0.1))
		lo := duration * 0.4
		hi := duration * 0.6
		if t >= lo && t < hi {
			return peak
		}
		return baseline
	},
	"sawtooth": func(t, duration float64, peak int) int {
		if duration <= 0 {
			return peak
		}
		cycleLen := duration / 4
		if cycleLen <= 0 {
			return peak
		}
		phase := math.Mod(t, cycleLen)
		return int(math.Ceil(phase / cycleLen * float64(peak)))
	},
}
