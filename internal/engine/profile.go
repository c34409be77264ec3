package engine

// WorkloadProfile is the resolved run configuration the Engine consumes, per
// §4.6: operations mix, load shape, duration or request cap, peak
// concurrency, optional bound tool, optional find-ceiling config, and the
// connection-churn flag. The CLI/profile-file layer builds one of these;
// the Engine itself never parses flags or YAML.
type WorkloadProfile struct {
	Mix []MixEntry

	// Exactly one of DurationSec or Requests should be set; if both are,
	// the run ends at whichever is reached first, per §4.6.1.
	DurationSec float64
	Requests    int64

	PeakConcurrency  int
	Shape            string
	RequestTimeoutMs int

	FindCeiling     *FindCeilingConfig
	ConnectionChurn bool
	ChurnWorkers    int

	Seed uint32
}

// FindCeilingConfig parameterizes the §4.6.3 phase controller.
type FindCeilingConfig struct {
	PhaseDurationSec int
	PlateauThreshold float64
	MaxConcurrency   int
}
