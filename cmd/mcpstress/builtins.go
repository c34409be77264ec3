package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bc-dunia/mcpstress/internal/engine"
)

// builtinProfile pairs a name with the WorkloadProfile it expands to, so
// `mcpstress run --profile smoke` (once wired to named lookups by whatever
// external layer resolves profile names) and `mcpstress profiles` draw from
// one source of truth. Never exits non-zero per spec.md's CLI table.
type builtinProfile struct {
	name        string
	description string
	profile     engine.WorkloadProfile
}

var builtinProfiles = []builtinProfile{
	{
		name:        "smoke",
		description: "Low concurrency, short duration, sanity check",
		profile: engine.WorkloadProfile{
			Mix:             []engine.MixEntry{{Method: "ping", Weight: 1}},
			DurationSec:     10,
			PeakConcurrency: 2,
			Shape:           "constant",
		},
	},
	{
		name:        "steady",
		description: "Sustained constant load for soak testing",
		profile: engine.WorkloadProfile{
			Mix:             []engine.MixEntry{{Method: "tools/call", Weight: 1}},
			DurationSec:     300,
			PeakConcurrency: 20,
			Shape:           "constant",
		},
	},
	{
		name:        "ramp",
		description: "Linear ramp from idle to peak concurrency",
		profile: engine.WorkloadProfile{
			Mix:             []engine.MixEntry{{Method: "tools/call", Weight: 1}},
			DurationSec:     120,
			PeakConcurrency: 50,
			Shape:           "linear-ramp",
		},
	},
	{
		name:        "ceiling",
		description: "Find-ceiling phase controller sweep",
		profile: engine.WorkloadProfile{
			Mix:         []engine.MixEntry{{Method: "tools/call", Weight: 1}},
			DurationSec: 300,
			FindCeiling: &engine.FindCeilingConfig{},
		},
	},
	{
		name:        "churn",
		description: "Connection-churn worker pool",
		profile: engine.WorkloadProfile{
			Mix:             []engine.MixEntry{{Method: "ping", Weight: 1}},
			DurationSec:     60,
			ConnectionChurn: true,
			ChurnWorkers:    8,
		},
	},
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Enumerate built-in workload profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range builtinProfiles {
				fmt.Printf("%-10s %s\n", p.name, p.description)
			}
			return nil
		},
	}
}

func newShapesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shapes",
		Short: "Enumerate built-in load shapes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range engine.ShapeNames {
				fmt.Println(name)
			}
			return nil
		},
	}
}
