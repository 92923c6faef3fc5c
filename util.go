package ballast

import "math"

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round2 rounds to two decimals, the precision every stats field is reported with.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func bytesToMB(b uint64) float64 {
	return float64(b) / mib
}
