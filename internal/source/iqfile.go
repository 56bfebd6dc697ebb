// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/GlassOnTin/sdrangel/internal/log"
)

// IQFile replays a two-channel WAV recording as complex baseband: channel 0
// is I, channel 1 is Q. With Realtime set, delivery is paced to the file's
// sample rate; otherwise the file is pushed as fast as the consumer accepts.
type IQFile struct {
	Path      string
	BlockSize int  // frames per consumer call
	Realtime  bool // pace delivery to the file's sample rate

	consumer Consumer

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// NewIQFile returns a stopped file source pushing into consumer.
func NewIQFile(path string, blockSize int, realtime bool, consumer Consumer) *IQFile {
	return &IQFile{Path: path, BlockSize: blockSize, Realtime: realtime, consumer: consumer}
}

// Start opens the file and begins replay in a goroutine. The source stops on
// its own at end of file.
func (s *IQFile) Start() error {
	if s.BlockSize <= 0 {
		return fmt.Errorf("iq file source: invalid block size %d", s.BlockSize)
	}

	file, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("iq file source: %w", err)
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return fmt.Errorf("iq file source: '%s' is not a valid WAV file", s.Path)
	}
	if decoder.NumChans != 2 {
		file.Close()
		return fmt.Errorf("iq file source: '%s' has %d channels, need 2 (I and Q)", s.Path, decoder.NumChans)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		file.Close()
		return nil
	}
	s.done = make(chan struct{})
	done := s.done

	log.Infof("source: replaying %s, %d Hz, %d-bit", s.Path, decoder.SampleRate, decoder.BitDepth)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer file.Close()
		s.replay(decoder, done)
	}()
	return nil
}

func (s *IQFile) replay(decoder *wav.Decoder, done chan struct{}) {
	// PCM samples are interleaved I/Q pairs scaled to full range.
	scale := 1.0 / float64(int(1)<<(decoder.BitDepth-1))
	pcm := &audio.IntBuffer{
		Data:   make([]int, s.BlockSize*2),
		Format: decoder.Format(),
	}
	block := make([]complex128, s.BlockSize)

	var interval time.Duration
	if s.Realtime && decoder.SampleRate > 0 {
		interval = time.Duration(float64(s.BlockSize) / float64(decoder.SampleRate) * float64(time.Second))
	}

	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := decoder.PCMBuffer(pcm)
		if n == 0 {
			if err != nil {
				log.Errorf("source: read %s: %v", s.Path, err)
			} else {
				log.Infof("source: %s finished", s.Path)
			}
			return
		}

		frames := n / 2
		for i := 0; i < frames; i++ {
			block[i] = complex(float64(pcm.Data[2*i])*scale, float64(pcm.Data[2*i+1])*scale)
		}
		s.consumer(block[:frames])

		if interval > 0 {
			select {
			case <-time.After(interval):
			case <-done:
				return
			}
		}
	}
}

// Stop halts replay and waits for the reader goroutine.
func (s *IQFile) Stop() error {
	s.mu.Lock()
	if s.done == nil {
		s.mu.Unlock()
		return nil
	}
	close(s.done)
	s.done = nil
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
