// SPDX-License-Identifier: MIT
//
// Package fftpool owns reusable complex FFT engines keyed by transform size.
// Engines are reference counted: consumers of the same size share one engine
// and must serialize their use of it externally (the spectrum analyzer holds
// its own lock across In/Transform/Out). A consumer must re-acquire whenever
// its size changes and release the old lease, otherwise the pooled engine
// leaks.
package fftpool

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/GlassOnTin/sdrangel/internal/log"
)

// Engine performs a forward complex FFT of a fixed size. The caller fills
// In(), calls Transform(), and reads Out(). DC is at index 0; the upper half
// of Out() holds the negative frequencies.
type Engine struct {
	size int
	fft  *fourier.CmplxFFT
	in   []complex128
	out  []complex128
}

func newEngine(size int) *Engine {
	return &Engine{
		size: size,
		fft:  fourier.NewCmplxFFT(size),
		in:   make([]complex128, size),
		out:  make([]complex128, size),
	}
}

// Size returns the transform length.
func (e *Engine) Size() int { return e.size }

// In returns the input block. Valid until the lease is released.
func (e *Engine) In() []complex128 { return e.in }

// Out returns the output block of the most recent Transform.
func (e *Engine) Out() []complex128 { return e.out }

// Transform computes the FFT of In() into Out(). Not safe for concurrent use.
func (e *Engine) Transform() {
	e.fft.Coefficients(e.out, e.in)
}

// Lease is a reference-counted claim on a pooled engine.
type Lease struct {
	engine *Engine
	seq    uint64
}

// Engine returns the leased engine.
func (l *Lease) Engine() *Engine { return l.engine }

type entry struct {
	engine *Engine
	refs   int
	seq    uint64
}

// Pool hands out shared FFT engines by size.
type Pool struct {
	mu      sync.Mutex
	entries map[int]*entry
	nextSeq uint64
}

// NewPool returns an empty engine pool.
func NewPool() *Pool {
	return &Pool{entries: make(map[int]*entry)}
}

// Acquire leases an engine for the given transform size, creating one if no
// engine of that size is pooled. The returned lease must be passed to
// Release exactly once.
func (p *Pool) Acquire(size int) (*Lease, error) {
	if size <= 0 {
		return nil, fmt.Errorf("fftpool: invalid transform size %d", size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ent, ok := p.entries[size]
	if !ok {
		p.nextSeq++
		ent = &entry{engine: newEngine(size), seq: p.nextSeq}
		p.entries[size] = ent
		log.Debugf("fftpool: created engine size=%d seq=%d", size, ent.seq)
	}
	ent.refs++

	return &Lease{engine: ent.engine, seq: ent.seq}, nil
}

// Release returns a lease to the pool. The engine is retired once its last
// lease is released. Releasing a nil lease is a no-op.
func (p *Pool) Release(l *Lease) {
	if l == nil || l.engine == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	size := l.engine.Size()
	ent, ok := p.entries[size]
	if !ok || ent.seq != l.seq {
		log.Warnf("fftpool: release of unknown lease size=%d seq=%d", size, l.seq)
		return
	}

	ent.refs--
	if ent.refs <= 0 {
		delete(p.entries, size)
		log.Debugf("fftpool: retired engine size=%d seq=%d", size, ent.seq)
	}
	l.engine = nil
}

// Refs reports the number of outstanding leases for the given size.
func (p *Pool) Refs(size int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ent, ok := p.entries[size]; ok {
		return ent.refs
	}
	return 0
}

// Len reports the number of pooled engines.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
