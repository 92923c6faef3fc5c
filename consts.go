package ballast

import "time"

const (
	mib = 1024 * 1024

	defaultChunkSize   = 10 * mib // 10MB chunks
	defaultStampStride = 1024     // touch every 1KB
	defaultMinMB       = 10
	defaultMaxMB       = 2048
	defaultTargetMB    = 2048 // 2GB

	defaultStressDuration  = 30 // seconds
	defaultStressIntensity = 1.0
	minStressDuration      = 1
	maxStressDuration      = 300 // 5 minutes
	minStressIntensity     = 0.1
	maxStressIntensity     = 1.0

	defaultStopGrace      = 2 * time.Second
	defaultBaseSleep      = 10 * time.Millisecond
	defaultCPUSampleTime  = 100 * time.Millisecond
	defaultSquareRange    = 100 // compute unit: sum of squares over [0, 100)
	defaultInterval       = 5 * time.Second
	defaultMemWarnPercent = 90 // 90% of the container memory limit
	defaultRingLen        = 12 // one minute with the default interval
)

// stamp written into every chunk at defaultStampStride
var chunkMarker = []byte("TESTDATA")

type eventType int

const (
	allocate eventType = iota
	release
	stressStart
	stressStop
	stressExpire
)

var type2name = map[eventType]string{
	allocate:     "allocate",
	release:      "release",
	stressStart:  "stress_start",
	stressStop:   "stress_stop",
	stressExpire: "stress_expire",
}
