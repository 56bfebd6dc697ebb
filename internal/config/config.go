// SPDX-License-Identifier: MIT
//
// Package config loads the application configuration from YAML with
// environment variable overrides applied on top.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/GlassOnTin/sdrangel/internal/dsp/window"
	"github.com/GlassOnTin/sdrangel/internal/spectrum"
	"github.com/GlassOnTin/sdrangel/pkg/bitint"
)

// Config represents the main application configuration structure, loaded
// from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Source    SourceConfig    `yaml:"source"`    // Sample source selection and settings.
	Spectrum  SpectrumConfig  `yaml:"spectrum"`  // Analysis settings applied at startup.
	Broadcast BroadcastConfig `yaml:"broadcast"` // Frame fan-out settings.
}

// SourceConfig selects and configures the complex baseband sample source.
type SourceConfig struct {
	Type            string  `yaml:"type"`              // "tone", "file" or "soundcard".
	BlockSize       int     `yaml:"block_size"`        // Samples per feed call.
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (tone and soundcard).
	CenterFrequency uint64  `yaml:"center_frequency"`  // Tuned frequency reported in frames, Hz.
	ToneFrequency   float64 `yaml:"tone_frequency"`    // Baseband offset of the test tone, Hz.
	ToneAmplitude   float64 `yaml:"tone_amplitude"`    // Linear amplitude of the test tone.
	FilePath        string  `yaml:"file_path"`         // Two-channel I/Q WAV file to replay.
	FileRealtime    bool    `yaml:"file_realtime"`     // Pace file replay to its sample rate.
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Capture frames per callback.
}

// SpectrumConfig holds the analysis settings applied at startup. Anything
// not set here keeps its built-in default.
type SpectrumConfig struct {
	FFTSize        int    `yaml:"fft_size"`        // Transform length, power of two.
	FFTOverlap     int    `yaml:"fft_overlap"`     // Overlap percentage, 0 to 100.
	FFTWindow      string `yaml:"fft_window"`      // Window function name (e.g. "Hann", "Blackman").
	AveragingMode  string `yaml:"averaging_mode"`  // "none", "moving", "fixed" or "max".
	AveragingValue int    `yaml:"averaging_value"` // Number of transforms averaged together.
	Linear         bool   `yaml:"linear"`          // Emit linear power instead of dB.
	SSB            bool   `yaml:"ssb"`             // Single-sideband bin layout.
	USB            bool   `yaml:"usb"`             // Upper sideband when SSB is set.
}

// BroadcastConfig holds the frame fan-out settings.
type BroadcastConfig struct {
	Enabled   bool   `yaml:"enabled"`   // Open the broadcast sink at startup.
	Transport string `yaml:"transport"` // "websocket" or "udp".
	Address   string `yaml:"address"`   // Listen address (websocket) or collector host (udp).
	Port      uint16 `yaml:"port"`      // Listen or collector port.
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches default locations ("config.yaml"). If no file is
// found, it uses built-in defaults. After loading, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	defaults := spectrum.DefaultSettings()
	cfg := Config{
		LogLevel: "info",
		Source: SourceConfig{
			Type:            "tone",
			BlockSize:       1024,
			SampleRate:      48000,
			ToneFrequency:   6000,
			ToneAmplitude:   0.5,
			FileRealtime:    true,
			InputDevice:     -1,
			FramesPerBuffer: 1024,
		},
		Spectrum: SpectrumConfig{
			FFTSize:        defaults.FFTSize,
			FFTOverlap:     defaults.FFTOverlap,
			FFTWindow:      defaults.FFTWindow.String(),
			AveragingMode:  defaults.AveragingMode.String(),
			AveragingValue: 1,
		},
		Broadcast: BroadcastConfig{
			Enabled:   true,
			Transport: "websocket",
			Address:   defaults.BroadcastAddress,
			Port:      defaults.BroadcastPort,
		},
	}

	if path == "" {
		candidates := []string{"config.yaml"}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot start with. Values the
// analyzer clamps on its own (FFT size bounds, overlap percentage) are not
// rejected here.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case "tone", "soundcard":
		if c.Source.SampleRate <= 0 {
			return fmt.Errorf("source.sample_rate must be positive, got %v", c.Source.SampleRate)
		}
	case "file":
		if c.Source.FilePath == "" {
			return fmt.Errorf("source.file_path must be set for the file source")
		}
	default:
		return fmt.Errorf("source.type '%s' is not one of tone, file, soundcard", c.Source.Type)
	}
	if c.Source.BlockSize <= 0 {
		return fmt.Errorf("source.block_size must be positive, got %d", c.Source.BlockSize)
	}

	if !bitint.IsPowerOfTwo(c.Spectrum.FFTSize) {
		return fmt.Errorf("spectrum.fft_size %d is not a power of two", c.Spectrum.FFTSize)
	}
	if _, err := window.Parse(c.Spectrum.FFTWindow); err != nil {
		return err
	}
	if _, ok := spectrum.ParseAveragingMode(c.Spectrum.AveragingMode); !ok {
		return fmt.Errorf("spectrum.averaging_mode '%s' is not one of none, moving, fixed, max", c.Spectrum.AveragingMode)
	}
	if c.Spectrum.AveragingValue < 1 {
		return fmt.Errorf("spectrum.averaging_value must be at least 1, got %d", c.Spectrum.AveragingValue)
	}

	switch c.Broadcast.Transport {
	case "websocket", "udp":
	default:
		return fmt.Errorf("broadcast.transport '%s' is not one of websocket, udp", c.Broadcast.Transport)
	}
	if c.Broadcast.Enabled && c.Broadcast.Address == "" {
		return fmt.Errorf("broadcast.address must be set when broadcast is enabled")
	}
	return nil
}

// applyEnvOverrides layers SPECTRUM_* environment variables over the loaded
// configuration. Unparseable values are ignored.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECTRUM_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("SPECTRUM_FFT_SIZE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Spectrum.FFTSize = iVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRUM_FFT_WINDOW"); ok {
		cfg.Spectrum.FFTWindow = val
	}
	if val, ok := os.LookupEnv("SPECTRUM_BROADCAST_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Broadcast.Enabled = bVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRUM_BROADCAST_ADDRESS"); ok {
		cfg.Broadcast.Address = val
	}
	if val, ok := os.LookupEnv("SPECTRUM_BROADCAST_PORT"); ok {
		if iVal, err := strconv.Atoi(val); err == nil && iVal >= 0 && iVal <= 65535 {
			cfg.Broadcast.Port = uint16(iVal)
		}
	}
}
