package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCeilingConcurrencySequence(t *testing.T) {
	seq := ceilingConcurrencySequence(50)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 10, 15, 20, 30, 40, 50}, seq)
}

func TestCeilingConcurrencySequenceStopsAtMax(t *testing.T) {
	seq := ceilingConcurrencySequence(12)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 10}, seq)
}

func TestPhaseDurationSecondsDefaultsAndCaps(t *testing.T) {
	assert.Equal(t, 5.0, phaseDurationSeconds(nil, 0))
	assert.Equal(t, 5.0, phaseDurationSeconds(&FindCeilingConfig{PhaseDurationSec: 5}, 100))
	// totalDuration/5 caps the phase duration when smaller than the configured value.
	assert.Equal(t, 6.0, phaseDurationSeconds(&FindCeilingConfig{PhaseDurationSec: 30}, 30))
}
