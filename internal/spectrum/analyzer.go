// SPDX-License-Identifier: MIT
/*
Package spectrum implements the continuous spectral analysis engine: it
consumes a live stream of complex baseband samples, produces power-spectrum
frames under a configurable window/FFT/averaging pipeline, and fans finished
frames out to a display sink and a broadcast sink.

Concurrency model: one exclusive mutex guards all shared state. The streaming
path (Feed) uses a non-blocking TryLock and silently drops its input while a
configuration change holds the lock; the control path (messages) blocks. No
work is ever queued on behalf of a dropped feed call.
*/
package spectrum

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/GlassOnTin/sdrangel/internal/dsp/fftpool"
	"github.com/GlassOnTin/sdrangel/internal/dsp/window"
	"github.com/GlassOnTin/sdrangel/internal/log"
)

// logMult converts natural log2 power to decibels: 10*log10(v) == logMult*log2(v).
var logMult = 10 / math.Log2(10)

// powerFloor is substituted for raw power below it before the log transform,
// since log2(0) is undefined. A silent input therefore reports
// logMult*log2(1e-20) + ofs (~ -200 dB before the size offset).
const powerFloor = 1e-20

// Analyzer is the spectral analysis engine. Create with New, feed complex
// samples with Feed, reconfigure through the message queue, and release
// resources with Close.
type Analyzer struct {
	mu      sync.Mutex
	running atomic.Bool

	settings Settings
	pool     *fftpool.Pool
	lease    *fftpool.Lease
	win      *window.Table

	// Sample accumulation and output buffers, allocated once at the maximum
	// size; the first FFTSize elements are live.
	fftBuffer     []complex128
	powerSpectrum []float64

	fill        int // next write offset into fftBuffer
	overlapSize int // samples retained between blocks
	refillSize  int // new samples consumed per transform

	scaleF float64 // amplitude divisor applied to incoming samples
	ofs    float64 // 20*log10(1/fftSize)
	powDiv float64 // fftSize^2, linear-scale divisor

	// Accumulator for the active averaging mode; the other two stay nil.
	moving *movingAverage
	fixed  *fixedAverage
	maxh   *maxHold

	display   DisplaySink
	broadcast BroadcastServer

	// Device context, used only for broadcast frame metadata.
	centerFrequency uint64
	sampleRate      uint32

	queue          *MessageQueue
	statusObserver func(open bool)

	closeOnce sync.Once
	done      chan struct{}
}

// New creates an analyzer with default settings, leases its first transform
// from pool and starts the control-plane service goroutine. scaleFactor is
// the divisor normalizing input full-scale; values <= 0 fall back to 1.
func New(pool *fftpool.Pool, scaleFactor float64) (*Analyzer, error) {
	if scaleFactor <= 0 {
		scaleFactor = 1
	}

	a := &Analyzer{
		settings:      DefaultSettings(),
		pool:          pool,
		fftBuffer:     make([]complex128, MaxFFTSize),
		powerSpectrum: make([]float64, MaxFFTSize),
		scaleF:        scaleFactor,
		sampleRate:    48000,
		queue:         NewMessageQueue(32),
		done:          make(chan struct{}),
	}
	a.running.Store(true)

	a.mu.Lock()
	err := a.applySettingsLocked(a.settings, true)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}

	go a.serviceLoop()

	return a, nil
}

// Queue returns the control-plane input queue.
func (a *Analyzer) Queue() *MessageQueue { return a.queue }

// SetDisplay attaches (or with nil detaches) the display sink.
func (a *Analyzer) SetDisplay(sink DisplaySink) {
	a.mu.Lock()
	a.display = sink
	a.mu.Unlock()
}

// SetBroadcast attaches the broadcast server and points it at the configured
// endpoint. The server stays closed until an open message arrives.
func (a *Analyzer) SetBroadcast(server BroadcastServer) {
	a.mu.Lock()
	a.broadcast = server
	if server != nil {
		server.SetEndpoint(a.settings.BroadcastAddress, a.settings.BroadcastPort)
	}
	a.mu.Unlock()
}

// SetStatusObserver registers a callback mirroring broadcast open/close
// transitions to an attached control observer.
func (a *Analyzer) SetStatusObserver(fn func(open bool)) {
	a.mu.Lock()
	a.statusObserver = fn
	a.mu.Unlock()
}

// Feed consumes a block of complex baseband samples. When positiveOnly is
// set, the lower transform half is mirrored into even/odd output slots;
// otherwise the halves are swapped to center zero frequency. Feed never
// blocks: while a configuration change holds the lock the block is dropped.
func (a *Analyzer) Feed(samples []complex128, positiveOnly bool) {
	if !a.running.Load() {
		return
	}
	if !a.mu.TryLock() {
		return
	}
	defer a.mu.Unlock()

	// With no consumer attached the engine skips all work.
	if a.display == nil && (a.broadcast == nil || !a.broadcast.IsOpen()) {
		return
	}

	n := a.settings.FFTSize
	inv := 1 / a.scaleF
	pos := 0

	for pos < len(samples) {
		needed := n - a.fill
		todo := len(samples) - pos

		if todo < needed {
			// Not enough for a transform; stash what we have.
			for _, c := range samples[pos:] {
				a.fftBuffer[a.fill] = complex(real(c)*inv, imag(c)*inv)
				a.fill++
			}
			return
		}

		for _, c := range samples[pos : pos+needed] {
			a.fftBuffer[a.fill] = complex(real(c)*inv, imag(c)*inv)
			a.fill++
		}
		pos += needed

		a.processBlockLocked(positiveOnly)

		// Retain the trailing overlap region as the head of the next block.
		copy(a.fftBuffer[:a.overlapSize], a.fftBuffer[a.refillSize:n])
		a.fill = a.overlapSize
	}
}

func power(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

// finish converts raw per-bin power to the configured output scale.
func (a *Analyzer) finish(v float64) float64 {
	if a.settings.Linear {
		return v / a.powDiv
	}
	if v < powerFloor {
		v = powerFloor
	}
	return logMult*math.Log2(v) + a.ofs
}

// processBlockLocked windows the accumulated block, transforms it and runs
// the active averaging policy, emitting a finished frame when one is ready.
func (a *Analyzer) processBlockLocked(positiveOnly bool) {
	n := a.settings.FFTSize
	eng := a.lease.Engine()

	a.win.Apply(a.fftBuffer[:n], eng.In())
	eng.Transform()
	out := eng.Out()

	half := n / 2
	ps := a.powerSpectrum[:n]

	switch a.settings.AveragingMode {
	case AvgModeNone:
		if positiveOnly {
			for i := 0; i < half; i++ {
				v := a.finish(power(out[i]))
				ps[2*i] = v
				ps[2*i+1] = v
			}
		} else {
			for i := 0; i < half; i++ {
				ps[i] = a.finish(power(out[i+half]))
				ps[i+half] = a.finish(power(out[i]))
			}
		}
		a.emitLocked(ps, n)

	case AvgModeMoving:
		if positiveOnly {
			for i := 0; i < half; i++ {
				v := a.moving.StoreAndGetAvg(power(out[i]), i)
				v = a.finish(v)
				ps[2*i] = v
				ps[2*i+1] = v
			}
		} else {
			for i := 0; i < half; i++ {
				ps[i] = a.finish(a.moving.StoreAndGetAvg(power(out[i+half]), i+half))
				ps[i+half] = a.finish(a.moving.StoreAndGetAvg(power(out[i]), i))
			}
		}
		a.emitLocked(ps, n)
		a.moving.NextAverage()

	case AvgModeFixed:
		if positiveOnly {
			for i := 0; i < half; i++ {
				if avg, ok := a.fixed.StoreAndGetAvg(power(out[i]), i); ok {
					v := a.finish(avg)
					ps[2*i] = v
					ps[2*i+1] = v
				}
			}
		} else {
			for i := 0; i < half; i++ {
				if avg, ok := a.fixed.StoreAndGetAvg(power(out[i+half]), i+half); ok {
					ps[i] = a.finish(avg)
				}
				if avg, ok := a.fixed.StoreAndGetAvg(power(out[i]), i); ok {
					ps[i+half] = a.finish(avg)
				}
			}
		}
		if a.fixed.NextAverage() {
			a.emitLocked(ps, n)
		}

	case AvgModeMax:
		if positiveOnly {
			for i := 0; i < half; i++ {
				if max, ok := a.maxh.StoreAndGetMax(power(out[i]), i); ok {
					v := a.finish(max)
					ps[2*i] = v
					ps[2*i+1] = v
				}
			}
		} else {
			for i := 0; i < half; i++ {
				if max, ok := a.maxh.StoreAndGetMax(power(out[i+half]), i+half); ok {
					ps[i] = a.finish(max)
				}
				if max, ok := a.maxh.StoreAndGetMax(power(out[i]), i); ok {
					ps[i+half] = a.finish(max)
				}
			}
		}
		if a.maxh.NextMax() {
			a.emitLocked(ps, n)
		}
	}
}

// emitLocked pushes one finished frame to the attached sinks. The bins slice
// is the reused output buffer; sinks copy or serialize before returning.
func (a *Analyzer) emitLocked(bins []float64, fftSize int) {
	if a.display != nil {
		a.display.NewSpectrum(bins, fftSize)
	}
	if a.broadcast != nil && a.broadcast.IsOpen() {
		a.broadcast.Broadcast(Frame{
			Bins:            bins,
			CenterFrequency: a.centerFrequency,
			SampleRate:      a.sampleRate,
			Linear:          a.settings.Linear,
			SSB:             a.settings.SSB,
			USB:             a.settings.USB,
		})
	}
}

// HandleMessage applies one control-plane message under the exclusive lock.
// It reports false for message types it does not recognize.
func (a *Analyzer) HandleMessage(msg Message) bool {
	switch m := msg.(type) {
	case MsgConfigure:
		a.mu.Lock()
		if err := a.applySettingsLocked(m.Settings, m.Force); err != nil {
			log.Errorf("spectrum: configuration rejected: %v", err)
		}
		a.mu.Unlock()
		return true

	case MsgConfigureScaleFactor:
		a.mu.Lock()
		if m.ScaleFactor > 0 {
			a.scaleF = m.ScaleFactor
		}
		a.mu.Unlock()
		return true

	case MsgConfigureBroadcastOpenClose:
		a.mu.Lock()
		a.handleOpenCloseLocked(m.Open)
		a.mu.Unlock()
		return true

	case MsgConfigureBroadcastEndpoint:
		a.mu.Lock()
		a.settings.BroadcastAddress = m.Address
		a.settings.BroadcastPort = m.Port
		a.configureBroadcastLocked(m.Address, m.Port)
		a.mu.Unlock()
		return true

	case MsgStartStop:
		a.running.Store(m.Run)
		return true

	case MsgDeviceContext:
		a.mu.Lock()
		a.centerFrequency = m.CenterFrequency
		a.sampleRate = m.SampleRate
		a.mu.Unlock()
		return true

	default:
		return false
	}
}

// applySettingsLocked diffs the incoming settings against the current state
// and rebuilds only the affected sub-resources; force rebuilds everything.
// On transform lease failure the previous settings stay in effect.
func (a *Analyzer) applySettingsLocked(s Settings, force bool) error {
	s.FFTSize = ClampFFTSize(s.FFTSize)
	s.FFTOverlap = ClampOverlap(s.FFTOverlap)
	s.AveragingValue = AveragingValue(s.AveragingIndex, s.AveragingMode)

	log.Debugf("spectrum: applySettings fftSize=%d overlap=%d window=%v mode=%v value=%d linear=%v force=%v",
		s.FFTSize, s.FFTOverlap, s.FFTWindow, s.AveragingMode, s.AveragingValue, s.Linear, force)

	if s.FFTSize != a.settings.FFTSize || a.lease == nil || force {
		// Acquire before releasing so a pool failure leaves the current
		// transform intact; the engine never runs with a nil lease.
		lease, err := a.pool.Acquire(s.FFTSize)
		if err != nil {
			return fmt.Errorf("transform lease for size %d: %w", s.FFTSize, err)
		}
		if a.lease != nil {
			a.pool.Release(a.lease)
		}
		a.lease = lease
		a.ofs = 20 * math.Log10(1/float64(s.FFTSize))
		a.powDiv = float64(s.FFTSize) * float64(s.FFTSize)
	}

	if s.FFTSize != a.settings.FFTSize || s.FFTWindow != a.settings.FFTWindow || a.win == nil || force {
		a.win = window.New(s.FFTWindow, s.FFTSize)
	}

	if s.FFTSize != a.settings.FFTSize || s.FFTOverlap != a.settings.FFTOverlap || force {
		a.overlapSize = (s.FFTSize * s.FFTOverlap) / 100
		a.refillSize = s.FFTSize - a.overlapSize
		if a.refillSize < 1 {
			// 100% overlap would never consume new samples.
			a.refillSize = 1
			a.overlapSize = s.FFTSize - 1
		}
		a.fill = a.overlapSize
	}

	if s.FFTSize != a.settings.FFTSize ||
		s.AveragingMode != a.settings.AveragingMode ||
		s.AveragingIndex != a.settings.AveragingIndex || force {
		value := s.AveragingValue
		a.moving, a.fixed, a.maxh = nil, nil, nil
		switch s.AveragingMode {
		case AvgModeMoving:
			if value > MaxMovingAverage {
				value = MaxMovingAverage
			}
			a.moving = newMovingAverage(s.FFTSize, value)
		case AvgModeFixed:
			a.fixed = newFixedAverage(s.FFTSize, value)
		case AvgModeMax:
			a.maxh = newMaxHold(s.FFTSize, value)
		}
	}

	if s.BroadcastAddress != a.settings.BroadcastAddress ||
		s.BroadcastPort != a.settings.BroadcastPort || force {
		a.configureBroadcastLocked(s.BroadcastAddress, s.BroadcastPort)
	}

	a.settings = s
	return nil
}

func (a *Analyzer) handleOpenCloseLocked(open bool) {
	if a.broadcast == nil {
		return
	}
	var err error
	if open {
		err = a.broadcast.Open()
	} else {
		err = a.broadcast.Close()
	}
	if err != nil {
		log.Errorf("spectrum: broadcast %s failed: %v", openCloseWord(open), err)
		return
	}
	log.Infof("spectrum: broadcast server %s", openCloseWord(open))
	if a.statusObserver != nil {
		a.statusObserver(open)
	}
}

func openCloseWord(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}

// configureBroadcastLocked moves the broadcast endpoint, cycling the listener
// when it is currently open.
func (a *Analyzer) configureBroadcastLocked(address string, port uint16) {
	if a.broadcast == nil {
		return
	}
	wasOpen := a.broadcast.IsOpen()
	if wasOpen {
		if err := a.broadcast.Close(); err != nil {
			log.Errorf("spectrum: broadcast close for endpoint change failed: %v", err)
		}
	}
	a.broadcast.SetEndpoint(address, port)
	if wasOpen {
		if err := a.broadcast.Open(); err != nil {
			log.Errorf("spectrum: broadcast reopen on %s:%d failed: %v", address, port, err)
		}
	}
}

func (a *Analyzer) serviceLoop() {
	defer close(a.done)
	for msg := range a.queue.ch {
		if !a.HandleMessage(msg) {
			log.Warnf("spectrum: unhandled control message %T", msg)
		}
	}
}

// Close stops the service goroutine and returns the transform lease to the
// pool. The running flag is cleared first so no feed call is in flight when
// the lease is released.
func (a *Analyzer) Close() error {
	a.closeOnce.Do(func() {
		a.running.Store(false)
		close(a.queue.ch)
		<-a.done

		a.mu.Lock()
		if a.lease != nil {
			a.pool.Release(a.lease)
			a.lease = nil
		}
		a.mu.Unlock()
	})
	return nil
}
