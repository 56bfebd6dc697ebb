// SPDX-License-Identifier: MIT
package spectrum

// Per-bin accumulators for the three stateful averaging modes. Each is sized
// for one FFT length and one averaging depth; reconfiguring either discards
// the accumulator wholesale, so none of them carries a reset method. Only the
// accumulator for the active mode is ever allocated.

// movingAverage keeps a per-bin ring of the last m power values and a running
// sum, yielding an average on every transform. During warm-up the ring still
// contains zeros, so early averages are biased low; this matches the
// established output and settles after m transforms.
type movingAverage struct {
	n, m    int
	index   int       // ring slot written by the current transform
	history []float64 // m rows of n bins
	sum     []float64
}

func newMovingAverage(n, m int) *movingAverage {
	if m < 1 {
		m = 1
	}
	return &movingAverage{
		n:       n,
		m:       m,
		history: make([]float64, n*m),
		sum:     make([]float64, n),
	}
}

// StoreAndGetAvg records power v for bin i and returns the average over the
// ring including v.
func (a *movingAverage) StoreAndGetAvg(v float64, i int) float64 {
	pos := a.index*a.n + i
	a.sum[i] += v - a.history[pos]
	a.history[pos] = v
	return a.sum[i] / float64(a.m)
}

// NextAverage advances the ring after a full transform has been stored.
func (a *movingAverage) NextAverage() {
	a.index = (a.index + 1) % a.m
}

// fixedAverage accumulates per-bin sums over exactly m transforms and yields
// one finished average per cycle.
type fixedAverage struct {
	n, m  int
	count int // transforms stored in the current cycle
	sum   []float64
}

func newFixedAverage(n, m int) *fixedAverage {
	if m < 1 {
		m = 1
	}
	return &fixedAverage{n: n, m: m, sum: make([]float64, n)}
}

// StoreAndGetAvg records power v for bin i. On the m-th transform of the
// cycle it returns the cycle average and resets the bin.
func (a *fixedAverage) StoreAndGetAvg(v float64, i int) (float64, bool) {
	a.sum[i] += v
	if a.count == a.m-1 {
		avg := a.sum[i] / float64(a.m)
		a.sum[i] = 0
		return avg, true
	}
	return 0, false
}

// NextAverage advances the cycle; it reports true when the cycle completed
// and a finished frame is ready.
func (a *fixedAverage) NextAverage() bool {
	a.count++
	if a.count == a.m {
		a.count = 0
		return true
	}
	return false
}

// maxHold tracks the per-bin running maximum over m transforms and yields one
// finished frame per cycle. Power values are non-negative, so zero is a valid
// reset floor.
type maxHold struct {
	n, m  int
	count int
	max   []float64
}

func newMaxHold(n, m int) *maxHold {
	if m < 1 {
		m = 1
	}
	return &maxHold{n: n, m: m, max: make([]float64, n)}
}

// StoreAndGetMax records power v for bin i. On the m-th transform of the
// cycle it returns the cycle maximum and resets the bin.
func (h *maxHold) StoreAndGetMax(v float64, i int) (float64, bool) {
	if v > h.max[i] {
		h.max[i] = v
	}
	if h.count == h.m-1 {
		max := h.max[i]
		h.max[i] = 0
		return max, true
	}
	return 0, false
}

// NextMax advances the cycle; it reports true when a finished frame is ready.
func (h *maxHold) NextMax() bool {
	h.count++
	if h.count == h.m {
		h.count = 0
		return true
	}
	return false
}
