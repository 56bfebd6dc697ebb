// SPDX-License-Identifier: MIT
package spectrum

import (
	"math"
	"testing"
)

func TestMovingAverageWarmupAndSteadyState(t *testing.T) {
	a := newMovingAverage(4, 4)

	// During warm-up the ring still holds zeros, so the average climbs
	// toward the input in steps of v/m.
	want := []float64{0.5, 1.0, 1.5, 2.0, 2.0, 2.0}
	for i, w := range want {
		got := a.StoreAndGetAvg(2.0, 0)
		if math.Abs(got-w) > 1e-12 {
			t.Errorf("transform %d: average = %v, want %v", i, got, w)
		}
		a.NextAverage()
	}
}

func TestMovingAverageSlidesWindow(t *testing.T) {
	a := newMovingAverage(1, 2)

	a.StoreAndGetAvg(10, 0)
	a.NextAverage()
	if got := a.StoreAndGetAvg(20, 0); got != 15 {
		t.Errorf("average = %v, want 15", got)
	}
	a.NextAverage()
	// The first value has fallen out of the window.
	if got := a.StoreAndGetAvg(30, 0); got != 25 {
		t.Errorf("average = %v, want 25", got)
	}
}

func TestMovingAverageBinsAreIndependent(t *testing.T) {
	a := newMovingAverage(2, 2)
	a.StoreAndGetAvg(4, 0)
	if got := a.StoreAndGetAvg(8, 1); got != 4 {
		t.Errorf("bin 1 average = %v, want 4", got)
	}
}

func TestFixedAverageCycle(t *testing.T) {
	a := newFixedAverage(1, 3)

	inputs := []float64{1, 2, 3}
	for i, v := range inputs {
		avg, ok := a.StoreAndGetAvg(v, 0)
		last := i == len(inputs)-1
		if ok != last {
			t.Fatalf("transform %d: ok = %v, want %v", i, ok, last)
		}
		if last && avg != 2 {
			t.Errorf("cycle average = %v, want 2", avg)
		}
		if done := a.NextAverage(); done != last {
			t.Fatalf("transform %d: NextAverage = %v, want %v", i, done, last)
		}
	}

	// The next cycle starts from a clean accumulator.
	a.StoreAndGetAvg(9, 0)
	a.NextAverage()
	a.StoreAndGetAvg(9, 0)
	a.NextAverage()
	avg, ok := a.StoreAndGetAvg(9, 0)
	if !ok || avg != 9 {
		t.Errorf("second cycle average = (%v, %v), want (9, true)", avg, ok)
	}
}

func TestFixedAverageDepthOne(t *testing.T) {
	a := newFixedAverage(1, 1)
	avg, ok := a.StoreAndGetAvg(5, 0)
	if !ok || avg != 5 {
		t.Errorf("depth-1 average = (%v, %v), want (5, true)", avg, ok)
	}
	if !a.NextAverage() {
		t.Error("depth-1 NextAverage should complete every transform")
	}
}

func TestMaxHoldCycle(t *testing.T) {
	h := newMaxHold(1, 2)

	if _, ok := h.StoreAndGetMax(3, 0); ok {
		t.Fatal("first transform of the cycle should not finish")
	}
	h.NextMax()
	max, ok := h.StoreAndGetMax(1, 0)
	if !ok || max != 3 {
		t.Errorf("cycle max = (%v, %v), want (3, true)", max, ok)
	}
	if !h.NextMax() {
		t.Error("NextMax should report a finished cycle")
	}

	// Reset floor is zero; the old peak must not leak into the next cycle.
	h.StoreAndGetMax(1, 0)
	h.NextMax()
	max, _ = h.StoreAndGetMax(2, 0)
	if max != 2 {
		t.Errorf("second cycle max = %v, want 2", max)
	}
}

func TestAccumulatorsMinimumDepth(t *testing.T) {
	// Depths below one are raised to one rather than rejected.
	if a := newMovingAverage(4, 0); a.m != 1 {
		t.Errorf("moving m = %d, want 1", a.m)
	}
	if a := newFixedAverage(4, -2); a.m != 1 {
		t.Errorf("fixed m = %d, want 1", a.m)
	}
	if h := newMaxHold(4, 0); h.m != 1 {
		t.Errorf("max m = %d, want 1", h.m)
	}
}
