package ballast

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	mlog "mosn.io/pkg/log"
)

// ErrAllocation is returned when the runtime refuses to hand out a chunk.
var ErrAllocation = errors.New("memory allocation failed")

// MemoryAllocator owns one buffer of fixed size chunks.
// Allocate and Release are serialized; the counters used by stats are
// atomics so readers never wait on an allocation in flight and may see
// a partially built buffer.
type MemoryAllocator struct {
	mu     sync.Mutex
	chunks [][]byte

	opts   memOptions
	logger mlog.ErrorLogger

	chunkCount     atomic.Int64
	allocatedBytes atomic.Int64

	// makeChunk is swapped in tests to simulate a refused allocation
	makeChunk func(size int) []byte
}

func newMemoryAllocator(opts memOptions, logger mlog.ErrorLogger) *MemoryAllocator {
	return &MemoryAllocator{
		opts:      opts,
		logger:    logger,
		makeChunk: func(size int) []byte { return make([]byte, size) },
	}
}

// Clamp returns the target actually used for a requested size in MB.
func (m *MemoryAllocator) Clamp(targetMB int) int {
	if targetMB < m.opts.MinMB {
		return m.opts.MinMB
	}
	if targetMB > m.opts.MaxMB {
		return m.opts.MaxMB
	}
	return targetMB
}

// DefaultTargetMB is the target used when a caller does not give one,
// already clamped.
func (m *MemoryAllocator) DefaultTargetMB() int {
	return m.Clamp(m.opts.DefaultMB)
}

// Bounds returns the smallest and largest target in MB.
func (m *MemoryAllocator) Bounds() (minMB, maxMB int) {
	return m.opts.MinMB, m.opts.MaxMB
}

// AllocateDefault allocates the configured default target.
func (m *MemoryAllocator) AllocateDefault() (int, error) {
	return m.Allocate(m.DefaultTargetMB())
}

// Allocate drops the current buffer and builds a new one of targetMB
// megabytes, clamped into the configured bounds. It returns the clamped
// target. On failure the buffer is left empty, the previous one is not
// restored.
func (m *MemoryAllocator) Allocate(targetMB int) (int, error) {
	target := m.Clamp(targetMB)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Infof("[ballast] memory allocation start, target: %dMB", target)

	// drop the old buffer first to get an accurate baseline
	m.reset()
	runtime.GC()

	chunkSize := m.opts.ChunkSize
	targetBytes := target * mib
	full := targetBytes / chunkSize
	tail := targetBytes % chunkSize

	m.chunks = make([][]byte, 0, full+1)
	for i := 0; i < full; i++ {
		if err := m.appendChunk(chunkSize); err != nil {
			return target, m.fail(target, err)
		}
		if (i+1)%10 == 0 {
			m.logger.Debugf("[ballast] allocated: %dMB", int64(i+1)*int64(chunkSize)/mib)
		}
	}
	if tail > 0 {
		if err := m.appendChunk(tail); err != nil {
			return target, m.fail(target, err)
		}
	}

	m.logger.Infof("[ballast] memory allocation complete, target: %dMB, chunks: %d", target, len(m.chunks))
	return target, nil
}

// Release drops the buffer and returns the number of chunks it held.
// Releasing an empty buffer returns 0.
func (m *MemoryAllocator) Release() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.chunks)
	m.reset()
	debug.FreeOSMemory()

	m.logger.Infof("[ballast] released %d memory chunks", n)
	return n
}

// ChunkCount is the number of chunks currently held.
func (m *MemoryAllocator) ChunkCount() int {
	return int(m.chunkCount.Load())
}

// AllocatedBytes is the sum of the sizes of the chunks currently held.
func (m *MemoryAllocator) AllocatedBytes() int64 {
	return m.allocatedBytes.Load()
}

func (m *MemoryAllocator) appendChunk(size int) error {
	chunk, err := m.newChunk(size)
	if err != nil {
		return err
	}
	m.chunks = append(m.chunks, chunk)
	m.chunkCount.Add(1)
	m.allocatedBytes.Add(int64(size))
	return nil
}

func (m *MemoryAllocator) newChunk(size int) (chunk []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunk = nil
			err = fmt.Errorf("%w: chunk of %d bytes: %v", ErrAllocation, size, r)
		}
	}()
	chunk = m.makeChunk(size)
	stamp(chunk, m.opts.StampStride)
	return chunk, nil
}

func (m *MemoryAllocator) fail(target int, err error) error {
	m.reset()
	runtime.GC()
	m.logger.Errorf("[ballast] memory allocation failed, target: %dMB, err: %v", target, err)
	return err
}

// reset must be called with mu held.
func (m *MemoryAllocator) reset() {
	m.chunks = nil
	m.chunkCount.Store(0)
	m.allocatedBytes.Store(0)
}

// chunkSizes reports the length of every held chunk.
func (m *MemoryAllocator) chunkSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	sizes := make([]int, len(m.chunks))
	for i, c := range m.chunks {
		sizes[i] = len(c)
	}
	return sizes
}

// stamp writes the marker every stride bytes so each page gets committed.
// copy stops at the end of the chunk, a short tail gets a truncated marker.
func stamp(chunk []byte, stride int) {
	for off := 0; off < len(chunk); off += stride {
		copy(chunk[off:], chunkMarker)
	}
}
