package ballast

// ring keeps the last maxLen samples of the monitor loop.
type ring struct {
	data   []float64
	idx    int
	maxLen int
}

func newRing(maxLen int) ring {
	return ring{
		data:   make([]float64, 0, maxLen),
		idx:    0,
		maxLen: maxLen,
	}
}

func (r *ring) push(v float64) {
	if r.maxLen == 0 {
		return
	}

	// no position to write
	// jump to head
	if r.idx >= cap(r.data) {
		r.idx = 0
	}

	// the first round
	if len(r.data) < cap(r.data) {
		r.data = append(r.data, v)
		return
	}

	// the ring is full, overwrite the oldest sample
	r.data[r.idx] = v
	r.idx++
}

func (r *ring) avg() float64 {
	if len(r.data) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range r.data {
		sum += v
	}

	return sum / float64(len(r.data))
}

func (r *ring) max() float64 {
	m := 0.0
	for _, v := range r.data {
		if v > m {
			m = v
		}
	}
	return m
}
