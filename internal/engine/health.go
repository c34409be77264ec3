package engine

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// HealthSample is the driver's own process CPU/RSS reading, sampled once at
// the end of each run (shaped, find-ceiling or churn) and returned as
// Result.WorkerHealth (`workerHealth`) so that a plateau caused by the
// driver itself saturating (not the server under test) is distinguishable.
// It is not written to the NDJSON summary line or printed by the CLI.
type HealthSample struct {
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
	NumThreads int32   `json:"numThreads"`
}

type healthSampler struct {
	proc *process.Process
}

func newHealthSampler() *healthSampler {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return &healthSampler{}
	}
	return &healthSampler{proc: p}
}

// Sample returns the best-effort current reading. Any individual gopsutil
// call failing (unsupported platform, permissions) just leaves that field
// zero rather than erroring the run.
func (h *healthSampler) Sample() HealthSample {
	if h.proc == nil {
		return HealthSample{}
	}
	var s HealthSample
	if pct, err := h.proc.CPUPercent(); err == nil {
		s.CPUPercent = pct
	}
	if mem, err := h.proc.MemoryInfo(); err == nil && mem != nil {
		s.RSSBytes = mem.RSS
	}
	if n, err := h.proc.NumThreads(); err == nil {
		s.NumThreads = n
	}
	return s
}
