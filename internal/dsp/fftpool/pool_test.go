// SPDX-License-Identifier: MIT
package fftpool

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestAcquireSharesEngineOfSameSize(t *testing.T) {
	t.Parallel()

	pool := NewPool()

	a, err := pool.Acquire(256)
	if err != nil {
		t.Fatalf("Acquire(256) failed: %v", err)
	}
	b, err := pool.Acquire(256)
	if err != nil {
		t.Fatalf("second Acquire(256) failed: %v", err)
	}

	if a.Engine() != b.Engine() {
		t.Error("expected both leases to share one engine")
	}
	if refs := pool.Refs(256); refs != 2 {
		t.Errorf("Refs(256) = %d, want 2", refs)
	}

	pool.Release(a)
	if refs := pool.Refs(256); refs != 1 {
		t.Errorf("Refs(256) after one release = %d, want 1", refs)
	}
	pool.Release(b)
	if pool.Len() != 0 {
		t.Errorf("pool still holds %d engines after final release", pool.Len())
	}
}

func TestAcquireDistinctSizes(t *testing.T) {
	t.Parallel()

	pool := NewPool()

	a, _ := pool.Acquire(128)
	b, _ := pool.Acquire(512)

	if a.Engine() == b.Engine() {
		t.Error("engines of different sizes must be distinct")
	}
	if a.Engine().Size() != 128 || b.Engine().Size() != 512 {
		t.Errorf("engine sizes = %d, %d; want 128, 512", a.Engine().Size(), b.Engine().Size())
	}
	if pool.Len() != 2 {
		t.Errorf("pool holds %d engines, want 2", pool.Len())
	}

	pool.Release(a)
	pool.Release(b)
}

func TestAcquireInvalidSize(t *testing.T) {
	t.Parallel()

	pool := NewPool()
	if _, err := pool.Acquire(0); err == nil {
		t.Error("expected error for size 0")
	}
	if _, err := pool.Acquire(-64); err == nil {
		t.Error("expected error for negative size")
	}
}

func TestReleaseIsIdempotentPerLease(t *testing.T) {
	t.Parallel()

	pool := NewPool()
	a, _ := pool.Acquire(64)
	b, _ := pool.Acquire(64)

	pool.Release(a)
	pool.Release(a) // engine cleared on first release; second is a no-op
	if refs := pool.Refs(64); refs != 1 {
		t.Errorf("Refs(64) = %d, want 1", refs)
	}
	pool.Release(b)
}

func BenchmarkTransform(b *testing.B) {
	pool := NewPool()
	lease, err := pool.Acquire(1024)
	if err != nil {
		b.Fatalf("Acquire failed: %v", err)
	}
	defer pool.Release(lease)

	eng := lease.Engine()
	in := eng.In()
	for i := range in {
		in[i] = complex(float64(i%7), float64(i%3))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eng.Transform()
	}
}

// A pure complex exponential at bin k concentrates all transform energy in
// that bin.
func TestTransformTonePeak(t *testing.T) {
	t.Parallel()

	const n = 64
	const k = 5

	pool := NewPool()
	lease, err := pool.Acquire(n)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer pool.Release(lease)

	eng := lease.Engine()
	in := eng.In()
	for i := range in {
		phase := 2 * math.Pi * float64(k) * float64(i) / float64(n)
		in[i] = cmplx.Exp(complex(0, phase))
	}

	eng.Transform()

	out := eng.Out()
	if mag := cmplx.Abs(out[k]); math.Abs(mag-float64(n)) > 1e-6 {
		t.Errorf("bin %d magnitude = %v, want %v", k, mag, float64(n))
	}
	for i := range out {
		if i == k {
			continue
		}
		if mag := cmplx.Abs(out[i]); mag > 1e-6 {
			t.Errorf("bin %d magnitude = %v, want ~0", i, mag)
		}
	}
}
