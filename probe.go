package ballast

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
)

// memoryUsage is the process memory as seen by the kernel.
type memoryUsage struct {
	RSS     uint64
	VMS     uint64
	Percent float64 // rss over host memory
}

// usageProbe reads process level usage; it never mutates anything.
type usageProbe interface {
	memoryUsage() (memoryUsage, error)
	cpuPercent() (float64, error)
}

// Probe reads usage of the current process through gopsutil.
type Probe struct {
	proc       *process.Process
	sampleTime time.Duration
}

// NewProbe creates a probe for the current process. cpu usage is measured
// over sampleTime instead of a noisy point sample.
func NewProbe(sampleTime time.Duration) (*Probe, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open current process: %w", err)
	}
	return &Probe{proc: p, sampleTime: sampleTime}, nil
}

func (p *Probe) memoryUsage() (memoryUsage, error) {
	info, err := p.proc.MemoryInfo()
	if err != nil {
		return memoryUsage{}, fmt.Errorf("read memory info: %w", err)
	}
	percent, err := p.proc.MemoryPercent()
	if err != nil {
		return memoryUsage{}, fmt.Errorf("read memory percent: %w", err)
	}
	return memoryUsage{RSS: info.RSS, VMS: info.VMS, Percent: float64(percent)}, nil
}

// cpuPercent follows the psutil convention: one busy core is 100%,
// two busy cores are 200%.
// process.Percent keeps the previous sample inside the handle, so two
// explicit readings are taken to stay safe for concurrent callers.
func (p *Probe) cpuPercent() (float64, error) {
	before, err := p.proc.Times()
	if err != nil {
		return 0, fmt.Errorf("read cpu times: %w", err)
	}
	start := time.Now()
	time.Sleep(p.sampleTime)

	after, err := p.proc.Times()
	if err != nil {
		return 0, fmt.Errorf("read cpu times: %w", err)
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0, nil
	}
	busy := (after.User + after.System) - (before.User + before.System)
	if busy < 0 {
		busy = 0
	}
	return busy / elapsed * 100, nil
}

// logicalCores returns the host logical cpu count, falling back to the
// runtime's view when the host cannot be queried.
func logicalCores() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// hostMemoryTotal returns the host memory in bytes, 0 if unknown.
func hostMemoryTotal() uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return vm.Total
}
