package ballast

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	mlog "mosn.io/pkg/log"
	"mosn.io/pkg/utils"
)

// StressParams describes one cpu stress session.
type StressParams struct {
	Threads     int     `json:"threads"`
	DurationSec int     `json:"duration"`
	Intensity   float64 `json:"intensity"`
}

// stressSession is one generation of workers sharing an active flag and a deadline.
type stressSession struct {
	params   StressParams
	deadline time.Time
	active   atomic.Bool
	running  atomic.Int32
	done     []chan struct{}
}

// CPUStressor runs at most one stress session at a time.
//
// The session state machine is Idle -> Running -> Idle. Start always stops
// the previous session before spawning new workers; a session goes back to
// Idle either through Stop or when its last worker reaches the deadline.
// Intensity is approximated by sleeping a part of every iteration, it is
// not a scheduler guarantee.
type CPUStressor struct {
	mu      sync.Mutex // serializes Start and Stop
	current atomic.Pointer[stressSession]

	cores  int
	opts   cpuOptions
	logger mlog.ErrorLogger

	// onExpire is called once when a session ends by reaching its deadline
	onExpire func(StressParams)

	ops atomic.Uint64 // compute units executed by all sessions
}

func newCPUStressor(cores int, opts cpuOptions, logger mlog.ErrorLogger) *CPUStressor {
	if cores < 1 {
		cores = 1
	}
	return &CPUStressor{
		cores:  cores,
		opts:   opts,
		logger: logger,
	}
}

// Cores is the thread ceiling of a session.
func (c *CPUStressor) Cores() int {
	return c.cores
}

// DefaultParams are the parameters used for every value a caller omits.
func (c *CPUStressor) DefaultParams() StressParams {
	return StressParams{
		Threads:     c.cores,
		DurationSec: defaultStressDuration,
		Intensity:   defaultStressIntensity,
	}
}

// Clamp returns the parameters a session would actually run with.
func (c *CPUStressor) Clamp(p StressParams) StressParams {
	p.Threads = clampInt(p.Threads, 1, c.cores)
	p.DurationSec = clampInt(p.DurationSec, minStressDuration, maxStressDuration)
	if math.IsNaN(p.Intensity) {
		p.Intensity = maxStressIntensity
	}
	p.Intensity = math.Max(minStressIntensity, math.Min(p.Intensity, maxStressIntensity))
	return p
}

// Start stops any running session, then spawns a new one and returns
// without waiting for the workers.
func (c *CPUStressor) Start(p StressParams) StressParams {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	p = c.Clamp(p)
	s := &stressSession{
		params:   p,
		deadline: time.Now().Add(time.Duration(p.DurationSec) * time.Second),
		done:     make([]chan struct{}, p.Threads),
	}
	s.active.Store(true)
	s.running.Store(int32(p.Threads))
	c.current.Store(s)

	c.logger.Infof("[ballast] cpu stress start, threads: %d, duration: %ds, intensity: %.0f%%",
		p.Threads, p.DurationSec, p.Intensity*100)

	for i := range s.done {
		done := make(chan struct{})
		s.done[i] = done
		utils.GoWithRecover(func() {
			c.burn(s, done)
		}, func(r interface{}) {
			c.logger.Errorf("[ballast] cpu stress worker panic: %v", r)
		})
	}
	return p
}

// Stop clears the active flag and waits up to the grace period for the
// workers to exit. It reports whether all of them did; the session is
// discarded either way. Without a session it returns true.
func (c *CPUStressor) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stopLocked()
}

func (c *CPUStressor) stopLocked() bool {
	s := c.current.Load()
	if s == nil {
		return true
	}

	c.logger.Infof("[ballast] cpu stress stop")
	s.active.Store(false)

	grace := time.NewTimer(c.opts.StopGrace)
	defer grace.Stop()

wait:
	for _, done := range s.done {
		select {
		case <-done:
		case <-grace.C:
			break wait
		}
	}

	alive := s.running.Load()
	c.current.Store(nil)
	if alive > 0 {
		c.logger.Warnf("[ballast] %d cpu stress workers still alive after %s", alive, c.opts.StopGrace)
		return false
	}
	return true
}

// Active reports whether a session is running.
func (c *CPUStressor) Active() bool {
	s := c.current.Load()
	return s != nil && s.active.Load()
}

// RunningWorkers is the number of workers of the current session that have
// not exited yet.
func (c *CPUStressor) RunningWorkers() int {
	if s := c.current.Load(); s != nil {
		return int(s.running.Load())
	}
	return 0
}

// TotalWorkers is the number of workers spawned by the current session,
// kept until the session is stopped or replaced.
func (c *CPUStressor) TotalWorkers() int {
	if s := c.current.Load(); s != nil {
		return len(s.done)
	}
	return 0
}

// Ops is the number of compute units executed since the stressor was created.
func (c *CPUStressor) Ops() uint64 {
	return c.ops.Load()
}

// burn alternates a busy quantum of BaseSleep*intensity with a pause of
// BaseSleep*(1-intensity) until the deadline or until the session is stopped.
func (c *CPUStressor) burn(s *stressSession, done chan struct{}) {
	defer close(done)
	defer c.exit(s)

	busy := time.Duration(float64(c.opts.BaseSleep) * s.params.Intensity)
	pause := c.opts.BaseSleep - busy

	var sink uint64
	for s.active.Load() && time.Now().Before(s.deadline) {
		start := time.Now()
		var n uint64
		for time.Since(start) < busy {
			for i := 0; i < 64; i++ {
				sink += sumSquares(defaultSquareRange)
			}
			n += 64
		}
		c.ops.Add(n)

		if s.params.Intensity < maxStressIntensity && pause > 0 {
			time.Sleep(pause)
		}
	}
	burnSink.Add(sink)
}

func (c *CPUStressor) exit(s *stressSession) {
	if s.running.Add(-1) > 0 {
		return
	}
	// the last worker out flips the flag unless Stop already did
	if s.active.CompareAndSwap(true, false) {
		c.logger.Infof("[ballast] cpu stress expired after %ds", s.params.DurationSec)
		if c.onExpire != nil {
			c.onExpire(s.params)
		}
	}
}

// burnSink keeps the compute loop from being optimized away.
var burnSink atomic.Uint64

func sumSquares(n int) uint64 {
	var sum uint64
	for x := 0; x < n; x++ {
		sum += uint64(x * x)
	}
	return sum
}
