// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"runtime"

	"github.com/gordonklaus/portaudio"

	"github.com/GlassOnTin/sdrangel/internal/log"
)

// DefaultDeviceID selects the system default input device.
const DefaultDeviceID = -1

// Soundcard captures a stereo input as complex baseband: the left channel is
// I, the right channel is Q. This matches direct-sampling front ends that
// present quadrature pairs on a stereo line input.
type Soundcard struct {
	DeviceID        int // DefaultDeviceID for the system default
	SampleRate      float64
	FramesPerBuffer int

	consumer Consumer
	block    []complex128
	stream   *portaudio.Stream
}

// NewSoundcard returns a stopped capture source pushing into consumer.
func NewSoundcard(deviceID int, sampleRate float64, framesPerBuffer int, consumer Consumer) *Soundcard {
	return &Soundcard{
		DeviceID:        deviceID,
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
		consumer:        consumer,
	}
}

// Start initializes PortAudio and opens the capture stream. Stop must be
// called to release the subsystem.
func (s *Soundcard) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("soundcard source: initialize: %w", err)
	}

	device, err := inputDevice(s.DeviceID)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	if device.MaxInputChannels < 2 {
		portaudio.Terminate()
		return fmt.Errorf("soundcard source: device '%s' has %d input channels, need 2 (I and Q)",
			device.Name, device.MaxInputChannels)
	}

	s.block = make([]complex128, s.FramesPerBuffer)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 2,
			Device:   device,
			Latency:  device.DefaultHighInputLatency,
		},
		FramesPerBuffer: s.FramesPerBuffer,
		SampleRate:      s.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.processInput)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("soundcard source: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("soundcard source: start stream: %w", err)
	}
	s.stream = stream

	log.Infof("source: capturing from '%s' at %.0f S/s", device.Name, s.SampleRate)
	return nil
}

// processInput runs in the capture callback thread. No allocations.
func (s *Soundcard) processInput(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	const scale = 1.0 / 2147483648.0
	frames := len(in) / 2
	if frames > len(s.block) {
		frames = len(s.block)
	}
	for i := 0; i < frames; i++ {
		s.block[i] = complex(float64(in[2*i])*scale, float64(in[2*i+1])*scale)
	}
	s.consumer(s.block[:frames])
}

// Stop closes the stream and terminates PortAudio. Idempotent.
func (s *Soundcard) Stop() error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("soundcard source: stop stream: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("soundcard source: close stream: %w", err)
	}
	s.stream = nil

	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("soundcard source: terminate: %w", err)
	}
	return nil
}

// inputDevice resolves a device ID to a PortAudio device, DefaultDeviceID
// meaning the system default input.
func inputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == DefaultDeviceID {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("soundcard source: default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("soundcard source: enumerate devices: %w", err)
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("soundcard source: invalid device ID: %d", deviceID)
	}
	return devices[deviceID], nil
}

// ListDevices prints every PortAudio device with its capabilities. Used by
// the devices command.
func ListDevices() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}

	fmt.Printf("\nAvailable Audio Devices\n\n")
	for i, device := range devices {
		deviceType := ""
		switch {
		case device.MaxInputChannels > 0 && device.MaxOutputChannels > 0:
			deviceType = "Input/Output"
		case device.MaxInputChannels > 0:
			deviceType = "Input"
		case device.MaxOutputChannels > 0:
			deviceType = "Output"
		}

		fmt.Printf("[%d] %s (%s)\n", i, device.Name, deviceType)
		fmt.Printf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Printf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Println()
	}
	return nil
}
