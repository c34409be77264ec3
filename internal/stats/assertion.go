package stats

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Assertion is a parsed "<metric> <op> <value>[<unit>]" string, per §4.7/§8.
type Assertion struct {
	Metric string
	Op     string
	Value  float64
	Unit   string
	Raw    string
}

var assertionPattern = regexp.MustCompile(
	`^\s*(rps|p50|p95|p99|min|max|mean|error_rate|errors|requests)\s*(<=|>=|==|!=|<|>)\s*(-?[0-9]+(?:\.[0-9]+)?)\s*(ms|%|s)?\s*$`,
)

// ParseAssertion parses one assertion string. Returns an error for anything
// that doesn't match the grammar exactly, per the "garbage" scenario in §8.
func ParseAssertion(s string) (Assertion, error) {
	m := assertionPattern.FindStringSubmatch(s)
	if m == nil {
		return Assertion{}, fmt.Errorf("invalid assertion: %q", s)
	}
	value, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return Assertion{}, fmt.Errorf("invalid assertion value: %q", s)
	}
	unit := m[4]
	if unit == "s" {
		value *= 1000
		unit = "ms"
	}
	return Assertion{Metric: m[1], Op: m[2], Value: value, Unit: unit, Raw: s}, nil
}

// Summary is the minimal read surface Evaluate needs from a run summary.
type Summary struct {
	RPS            float64
	P50, P95, P99  float64
	Min, Max, Mean float64
	ErrorRatePct   float64
	Errors         int64
	Requests       int64
}

// Evaluate resolves a.Metric against sum and checks a.Op/a.Value. A missing
// metric (shouldn't happen given the closed enum above, but kept for
// defence) yields actual=NaN and a failing comparison.
func (a Assertion) Evaluate(sum Summary) (actual float64, pass bool) {
	switch a.Metric {
	case "rps":
		actual = sum.RPS
	case "p50":
		actual = sum.P50
	case "p95":
		actual = sum.P95
	case "p99":
		actual = sum.P99
	case "min":
		actual = sum.Min
	case "max":
		actual = sum.Max
	case "mean":
		actual = sum.Mean
	case "error_rate":
		actual = sum.ErrorRatePct
	case "errors":
		actual = float64(sum.Errors)
	case "requests":
		actual = float64(sum.Requests)
	default:
		actual = math.NaN()
	}
	if math.IsNaN(actual) {
		return actual, false
	}
	switch a.Op {
	case "<":
		pass = actual < a.Value
	case ">":
		pass = actual > a.Value
	case "<=":
		pass = actual <= a.Value
	case ">=":
		pass = actual >= a.Value
	case "==":
		pass = actual == a.Value
	case "!=":
		pass = actual != a.Value
	}
	return actual, pass
}
