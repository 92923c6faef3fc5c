package ballast

import (
	"encoding/json"
)

// MemoryStats is a point in time view of the process memory and the buffer.
// When the process cannot be queried only Error is set and serialized.
type MemoryStats struct {
	RSSMB           float64 `json:"rss_mb"`
	VMSMB           float64 `json:"vms_mb"`
	Percent         float64 `json:"percent"`
	AllocatedChunks int     `json:"allocated_chunks"`
	TargetGB        float64 `json:"target_gb"`
	Error           string  `json:"error,omitempty"`
}

func (s MemoryStats) MarshalJSON() ([]byte, error) {
	if s.Error != "" {
		return json.Marshal(errorStats{Error: s.Error})
	}
	type plain MemoryStats
	return json.Marshal(plain(s))
}

// CPUStats is a point in time view of the process cpu and the stress session.
type CPUStats struct {
	CPUPercent          float64 `json:"cpu_percent"`
	CPUCount            int     `json:"cpu_count"`
	StressActive        bool    `json:"stress_active"`
	ActiveStressThreads int     `json:"active_stress_threads"`
	TotalStressThreads  int     `json:"total_stress_threads"`
	Error               string  `json:"error,omitempty"`
}

func (s CPUStats) MarshalJSON() ([]byte, error) {
	if s.Error != "" {
		return json.Marshal(errorStats{Error: s.Error})
	}
	type plain CPUStats
	return json.Marshal(plain(s))
}

// ResourceStats combines both views.
type ResourceStats struct {
	Memory MemoryStats `json:"memory"`
	CPU    CPUStats    `json:"cpu"`
}

type errorStats struct {
	Error string `json:"error"`
}

// MemoryStats composes the probe with the allocator counters.
func (b *Ballast) MemoryStats() MemoryStats {
	usage, err := b.probe.memoryUsage()
	if err != nil {
		b.opts.Logger.Errorf("[ballast] error getting memory stats: %v", err)
		return MemoryStats{Error: err.Error()}
	}
	return MemoryStats{
		RSSMB:           round2(bytesToMB(usage.RSS)),
		VMSMB:           round2(bytesToMB(usage.VMS)),
		Percent:         round2(usage.Percent),
		AllocatedChunks: b.Memory.ChunkCount(),
		TargetGB:        float64(b.Memory.DefaultTargetMB()) / 1024,
	}
}

// CPUStats composes the probe with the stressor counters. It blocks for the
// cpu sample window.
func (b *Ballast) CPUStats() CPUStats {
	percent, err := b.probe.cpuPercent()
	if err != nil {
		b.opts.Logger.Errorf("[ballast] error getting cpu stats: %v", err)
		return CPUStats{Error: err.Error()}
	}
	return CPUStats{
		CPUPercent:          round2(percent),
		CPUCount:            b.CPU.Cores(),
		StressActive:        b.CPU.Active(),
		ActiveStressThreads: b.CPU.RunningWorkers(),
		TotalStressThreads:  b.CPU.TotalWorkers(),
	}
}

func (b *Ballast) ResourceStats() ResourceStats {
	return ResourceStats{
		Memory: b.MemoryStats(),
		CPU:    b.CPUStats(),
	}
}

// Ready reports whether the buffer holds any memory.
func (b *Ballast) Ready() bool {
	return b.Memory.ChunkCount() > 0
}
