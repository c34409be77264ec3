package engine

import "github.com/bc-dunia/mcpstress/internal/aggregator"

// Result is what Run returns on success: the final summary plus whatever
// ambient extras this run produced, per §12 (worker health is additive and
// never required to satisfy §3's invariants).
type Result struct {
	Summary      *aggregator.Summary
	WorkerHealth *HealthSample `json:"workerHealth,omitempty"`

	// FindCeilingPhases is populated only when the run used the
	// find-ceiling controller, per §4.6.3.
	FindCeilingPhases []PhaseResult  `json:"phases,omitempty"`
	Plateau           *PlateauResult `json:"plateau,omitempty"`
}

// PhaseResult is one find-ceiling phase's outcome.
type PhaseResult struct {
	Concurrency int     `json:"concurrency"`
	Total       int64   `json:"total"`
	Errors      int64   `json:"errors"`
	RPS         float64 `json:"rps"`
	P50         float64 `json:"p50"`
	P99         float64 `json:"p99"`
}

// PlateauResult reports why and where the find-ceiling controller stopped.
type PlateauResult struct {
	Reason      string `json:"reason"` // plateau | degradation | errorSaturation | noPlateauDetected
	Concurrency int    `json:"concurrency"`
}
