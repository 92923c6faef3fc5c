package ballast

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"mosn.io/pkg/utils"

	"mosn.io/ballast/internal/cg"
	"mosn.io/ballast/internal/metrics"
)

// Ballast occupies memory and cpu on demand so container limits can be
// exercised, and reports what the process uses meanwhile.
type Ballast struct {
	opts *options

	Memory *MemoryAllocator
	CPU    *CPUStressor

	probe   usageProbe
	limits  cg.Limits
	metrics *metrics.Metrics

	eventSeq atomic.Uint64

	// monitor loop
	startOnce    sync.Once
	started      atomic.Bool
	stopOnce     sync.Once
	stopC        chan struct{}
	loopDone     chan struct{}
	collectCount int
	rssStats     ring
	cpuStats     ring
	memWarned    bool
}

// ContainerLimits are the cgroup limits the process runs under, -1 when unlimited.
type ContainerLimits struct {
	Version     string  `json:"cgroup_version,omitempty"`
	MemoryBytes int64   `json:"memory_bytes"`
	CPUQuota    float64 `json:"cpu_quota"`
}

// New creates a ballast with both resources idle.
func New(opts ...Option) (*Ballast, error) {
	options := newOptions()
	for _, opt := range opts {
		if err := opt.apply(options); err != nil {
			return nil, err
		}
	}

	probe, err := NewProbe(options.CPUOpts.SampleTime)
	if err != nil {
		return nil, err
	}
	return newBallast(options, probe), nil
}

func newBallast(options *options, probe usageProbe) *Ballast {
	cores := options.CPUOpts.CPUCore
	if cores <= 0 {
		cores = logicalCores()
	}

	b := &Ballast{
		opts:     options,
		Memory:   newMemoryAllocator(*options.MemOpts, options.Logger),
		CPU:      newCPUStressor(cores, *options.CPUOpts, options.Logger),
		probe:    probe,
		limits:   cg.Unlimited(),
		stopC:    make(chan struct{}),
		loopDone: make(chan struct{}),
		rssStats: newRing(defaultRingLen),
		cpuStats: newRing(defaultRingLen),
	}
	b.metrics = metrics.New("ballast", func() float64 { return float64(b.CPU.Ops()) })
	b.CPU.onExpire = func(p StressParams) {
		// 0 unless a newer session replaced the expired one
		b.metrics.StressActiveThreads.Set(float64(b.CPU.RunningWorkers()))
		b.report(stressExpire, true, stressFields(p))
	}

	if options.UseCGroup {
		limits, err := cg.Load()
		if err != nil {
			options.Logger.Infof("[ballast] no container limits found: %v", err)
		} else {
			b.limits = limits
			options.Logger.Infof("[ballast] container limits, cgroup: %s, memory: %d bytes, cpu quota: %.2f",
				limits.Version, limits.MemoryBytes, limits.CPUQuota)
		}
	}
	b.metrics.MemoryLimitBytes.Set(float64(b.limits.MemoryBytes))
	b.metrics.CPUQuotaCores.Set(b.limits.CPUQuota)
	return b
}

// Allocate replaces the memory buffer with one of targetMB megabytes
// (clamped) and returns the clamped target.
func (b *Ballast) Allocate(targetMB int) (int, error) {
	actual, err := b.Memory.Allocate(targetMB)
	b.updateMemoryMetrics()
	b.report(allocate, err == nil, map[string]string{
		"requested_mb": strconv.Itoa(targetMB),
		"target_mb":    strconv.Itoa(actual),
	})
	return actual, err
}

// Release drops the memory buffer and returns how many chunks it held.
func (b *Ballast) Release() int {
	n := b.Memory.Release()
	b.updateMemoryMetrics()
	b.report(release, true, map[string]string{
		"chunks_released": strconv.Itoa(n),
	})
	return n
}

// StartStress replaces the current stress session and returns the
// parameters it runs with.
func (b *Ballast) StartStress(p StressParams) StressParams {
	actual := b.CPU.Start(p)
	b.metrics.StressActiveThreads.Set(float64(b.CPU.RunningWorkers()))
	b.report(stressStart, true, stressFields(actual))
	return actual
}

// StopStress stops the current stress session, see CPUStressor.Stop.
func (b *Ballast) StopStress() bool {
	ok := b.CPU.Stop()
	b.metrics.StressActiveThreads.Set(float64(b.CPU.RunningWorkers()))
	b.report(stressStop, ok, nil)
	return ok
}

// Limits returns the container limits read at creation.
func (b *Ballast) Limits() ContainerLimits {
	return ContainerLimits{
		Version:     b.limits.Version,
		MemoryBytes: b.limits.MemoryBytes,
		CPUQuota:    b.limits.CPUQuota,
	}
}

// HostMemoryBytes is the total memory of the host, 0 if unknown.
func (b *Ballast) HostMemoryBytes() uint64 {
	return hostMemoryTotal()
}

// Registry exposes the prometheus registry of this instance.
func (b *Ballast) Registry() *prometheus.Registry {
	return b.metrics.Registry
}

func (b *Ballast) updateMemoryMetrics() {
	b.metrics.AllocatedChunks.Set(float64(b.Memory.ChunkCount()))
	b.metrics.AllocatedBytes.Set(float64(b.Memory.AllocatedBytes()))
}

func (b *Ballast) goWithRecover(f func()) {
	utils.GoWithRecover(f, func(r interface{}) {
		b.opts.Logger.Errorf("[ballast] goroutine panic: %v", r)
	})
}
