package ballast

import (
	"fmt"
	"time"

	mlog "mosn.io/pkg/log"
)

type options struct {
	Logger   mlog.ErrorLogger
	Reporter Reporter

	// interval for the monitor loop, default 5s
	CollectInterval time.Duration
	// rss percent of the container memory limit that triggers a warning
	MemWarnPercent int
	// read container limits from cgroupfs, default true
	UseCGroup bool

	MemOpts *memOptions
	CPUOpts *cpuOptions
}

type Option interface {
	apply(*options) error
}

type optionFunc func(*options) error

func (f optionFunc) apply(opts *options) error {
	return f(opts)
}

func newOptions() *options {
	return &options{
		Logger:          NewStdLogger(),
		CollectInterval: defaultInterval,
		MemWarnPercent:  defaultMemWarnPercent,
		UseCGroup:       true,
		MemOpts:         newMemOptions(),
		CPUOpts:         newCPUOptions(),
	}
}

// WithLogger sets the logger used by every component.
func WithLogger(logger mlog.ErrorLogger) Option {
	return optionFunc(func(opts *options) (err error) {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		opts.Logger = logger
		return
	})
}

// WithReporter receives lifecycle events of allocations and stress sessions.
func WithReporter(r Reporter) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.Reporter = r
		return
	})
}

// interval must be valid time duration string,
// eg. "ns", "us" (or "µs"), "ms", "s", "m", "h".
func WithCollectInterval(interval string) Option {
	return optionFunc(func(opts *options) (err error) {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("collect interval must be positive, got %s", interval)
		}
		opts.CollectInterval = d
		return
	})
}

func WithMemoryWarnPercent(percent int) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.MemWarnPercent = percent
		return
	})
}

func WithCGroup(useCGroup bool) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.UseCGroup = useCGroup
		return
	})
}

type memOptions struct {
	ChunkSize   int // bytes per chunk
	StampStride int // bytes between two marker stamps
	MinMB       int
	MaxMB       int
	DefaultMB   int // target used when the caller gives none
}

func newMemOptions() *memOptions {
	return &memOptions{
		ChunkSize:   defaultChunkSize,
		StampStride: defaultStampStride,
		MinMB:       defaultMinMB,
		MaxMB:       defaultMaxMB,
		DefaultMB:   defaultTargetMB,
	}
}

func WithChunkSize(bytes int) Option {
	return optionFunc(func(opts *options) (err error) {
		if bytes < len(chunkMarker) {
			return fmt.Errorf("chunk size %d is smaller than the marker", bytes)
		}
		opts.MemOpts.ChunkSize = bytes
		return
	})
}

// WithMemoryBounds sets the clamp applied to every allocation target, in MB.
func WithMemoryBounds(minMB, maxMB int) Option {
	return optionFunc(func(opts *options) (err error) {
		if minMB < 1 || maxMB < minMB {
			return fmt.Errorf("invalid memory bounds [%d, %d]", minMB, maxMB)
		}
		opts.MemOpts.MinMB = minMB
		opts.MemOpts.MaxMB = maxMB
		return
	})
}

// WithDefaultTargetMB sets the target used when a request gives none.
// It is clamped into the memory bounds like any requested target.
func WithDefaultTargetMB(mb int) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.MemOpts.DefaultMB = mb
		return
	})
}

type cpuOptions struct {
	// CPUCore overrides the detected logical core count when > 0
	CPUCore    int
	StopGrace  time.Duration
	BaseSleep  time.Duration
	SampleTime time.Duration
}

func newCPUOptions() *cpuOptions {
	return &cpuOptions{
		StopGrace:  defaultStopGrace,
		BaseSleep:  defaultBaseSleep,
		SampleTime: defaultCPUSampleTime,
	}
}

// WithCPUCore sets the cpu core number used as the thread ceiling.
func WithCPUCore(cpuCore int) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.CPUOpts.CPUCore = cpuCore
		return
	})
}

// WithStopGrace bounds how long Stop waits for workers to exit.
func WithStopGrace(grace time.Duration) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.CPUOpts.StopGrace = grace
		return
	})
}

// WithBaseSleep sets the period of one worker iteration; intensity splits it
// between computing and sleeping.
func WithBaseSleep(d time.Duration) Option {
	return optionFunc(func(opts *options) (err error) {
		if d <= 0 {
			return fmt.Errorf("base sleep must be positive, got %s", d)
		}
		opts.CPUOpts.BaseSleep = d
		return
	})
}

// WithCPUSampleTime sets the window the probe measures cpu usage over.
func WithCPUSampleTime(d time.Duration) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.CPUOpts.SampleTime = d
		return
	})
}
