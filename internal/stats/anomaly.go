package stats

import "github.com/bc-dunia/mcpstress/internal/config"

// DetectAnomalies flags windows whose p99 spikes far past the recent
// baseline, per §4.7: for each window beyond the 10th, if p99(window) >
// 3*rollingMeanLatency(prev 10) with a positive rolling mean, it's an
// anomaly. Returns a bool per window (same length, same order as windows).
func DetectAnomalies(windows []Window) []bool {
	flags := make([]bool, len(windows))
	for i := config.AnomalyRollingWindowCount; i < len(windows); i++ {
		sum := 0.0
		n := 0
		for j := i - config.AnomalyRollingWindowCount; j < i; j++ {
			if windows[j].Count > 0 {
				sum += windowMeanLatency(windows[j])
				n++
			}
		}
		if n == 0 {
			continue
		}
		rollingMean := sum / float64(n)
		if rollingMean > 0 && windows[i].P99 > config.AnomalyP99Multiplier*rollingMean {
			flags[i] = true
		}
	}
	return flags
}

// windowMeanLatency approximates the window's mean latency from its
// percentiles when the raw latency vector isn't retained per-window; p50 is
// the best available single-number proxy for a bucket's central tendency.
func windowMeanLatency(w Window) float64 {
	return w.P50
}
