package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bc-dunia/mcpstress/internal/engine"
)

// profileFile is the YAML shape a workload profile file takes, per
// SPEC_FULL.md §10: a straightforward field-for-field mirror of
// engine.WorkloadProfile so `mcpstress run --profile foo.yaml` and the
// programmatic path build the identical struct.
type profileFile struct {
	Mix []struct {
		Method string `yaml:"method"`
		Tool   string `yaml:"tool"`
		Weight int    `yaml:"weight"`
	} `yaml:"mix"`
	DurationSec      float64 `yaml:"durationSec"`
	Requests         int64   `yaml:"requests"`
	PeakConcurrency  int     `yaml:"peakConcurrency"`
	Shape            string  `yaml:"shape"`
	RequestTimeoutMs int     `yaml:"requestTimeoutMs"`
	ConnectionChurn  bool    `yaml:"connectionChurn"`
	ChurnWorkers     int     `yaml:"churnWorkers"`
	Seed             uint32  `yaml:"seed"`

	FindCeiling *struct {
		PhaseDurationSec int     `yaml:"phaseDurationSec"`
		PlateauThreshold float64 `yaml:"plateauThreshold"`
		MaxConcurrency   int     `yaml:"maxConcurrency"`
	} `yaml:"findCeiling"`

	Assertions []string `yaml:"assertions"`
}

// loadProfileFile reads a YAML workload profile from path and converts it
// into an engine.WorkloadProfile plus its accompanying assertion strings
// (assertions are evaluated against the Result, not part of the Engine's
// own input, so they are returned separately).
func loadProfileFile(path string) (engine.WorkloadProfile, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return engine.WorkloadProfile{}, nil, fmt.Errorf("reading profile file: %w", err)
	}
	var pf profileFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return engine.WorkloadProfile{}, nil, fmt.Errorf("parsing profile YAML: %w", err)
	}

	profile := engine.WorkloadProfile{
		DurationSec:      pf.DurationSec,
		Requests:         pf.Requests,
		PeakConcurrency:  pf.PeakConcurrency,
		Shape:            pf.Shape,
		RequestTimeoutMs: pf.RequestTimeoutMs,
		ConnectionChurn:  pf.ConnectionChurn,
		ChurnWorkers:     pf.ChurnWorkers,
		Seed:             pf.Seed,
	}
	for _, m := range pf.Mix {
		profile.Mix = append(profile.Mix, engine.MixEntry{Method: m.Method, Tool: m.Tool, Weight: m.Weight})
	}
	if pf.FindCeiling != nil {
		profile.FindCeiling = &engine.FindCeilingConfig{
			PhaseDurationSec: pf.FindCeiling.PhaseDurationSec,
			PlateauThreshold: pf.FindCeiling.PlateauThreshold,
			MaxConcurrency:   pf.FindCeiling.MaxConcurrency,
		}
	}
	return profile, pf.Assertions, nil
}
