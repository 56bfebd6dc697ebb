// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GlassOnTin/sdrangel/internal/log"
)

// Tone generates a complex exponential at a fixed baseband offset, paced to
// its nominal sample rate. Useful for demos and for exercising the engine
// without hardware.
type Tone struct {
	SampleRate float64 // samples per second
	Frequency  float64 // baseband offset in Hz, may be negative
	Amplitude  float64 // linear amplitude of the exponential
	BlockSize  int     // samples per consumer call

	consumer Consumer
	phase    float64
	block    []complex128

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// NewTone returns a stopped tone source pushing into consumer.
func NewTone(sampleRate, frequency, amplitude float64, blockSize int, consumer Consumer) *Tone {
	return &Tone{
		SampleRate: sampleRate,
		Frequency:  frequency,
		Amplitude:  amplitude,
		BlockSize:  blockSize,
		consumer:   consumer,
	}
}

// Fill writes the next BlockSize samples of the tone into the internal block
// and returns it. Exposed for deterministic, unpaced generation.
func (t *Tone) Fill() []complex128 {
	if t.block == nil {
		t.block = make([]complex128, t.BlockSize)
	}
	step := 2 * math.Pi * t.Frequency / t.SampleRate
	for i := range t.block {
		t.block[i] = complex(t.Amplitude*math.Cos(t.phase), t.Amplitude*math.Sin(t.phase))
		t.phase += step
		if t.phase > math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	return t.block
}

// Start begins paced generation. Each tick delivers one block.
func (t *Tone) Start() error {
	if t.SampleRate <= 0 || t.BlockSize <= 0 {
		return fmt.Errorf("tone source: invalid sample rate %v or block size %d", t.SampleRate, t.BlockSize)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return nil
	}
	t.done = make(chan struct{})

	interval := time.Duration(float64(t.BlockSize) / t.SampleRate * float64(time.Second))
	ticker := time.NewTicker(interval)
	done := t.done

	log.Infof("source: tone %.1f Hz at %.0f S/s, block %d", t.Frequency, t.SampleRate, t.BlockSize)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.consumer(t.Fill())
			case <-done:
				return
			}
		}
	}()
	return nil
}

// Stop halts generation and waits for the generator goroutine.
func (t *Tone) Stop() error {
	t.mu.Lock()
	if t.done == nil {
		t.mu.Unlock()
		return nil
	}
	close(t.done)
	t.done = nil
	t.mu.Unlock()

	t.wg.Wait()
	return nil
}
