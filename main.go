// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/GlassOnTin/sdrangel/cmd"
	"github.com/GlassOnTin/sdrangel/internal/build"
	"github.com/GlassOnTin/sdrangel/internal/config"
	"github.com/GlassOnTin/sdrangel/internal/dsp/fftpool"
	"github.com/GlassOnTin/sdrangel/internal/dsp/window"
	"github.com/GlassOnTin/sdrangel/internal/log"
	"github.com/GlassOnTin/sdrangel/internal/source"
	"github.com/GlassOnTin/sdrangel/internal/spectrum"
	"github.com/GlassOnTin/sdrangel/internal/transport/udp"
	"github.com/GlassOnTin/sdrangel/internal/wsserver"
)

// main is the entry point for the spectrum analysis service. The program
// flow is divided into three phases:
//
// 1. Startup: build info, command line, configuration, engine construction.
// 2. Streaming: the source feeds the analyzer until a termination signal.
// 3. Shutdown: stop the source, close the broadcast sink, release the engine.
func main() {
	if err := build.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}

	opts, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	// One-off commands (device or window listing) are handled during
	// argument parsing.
	if opts.Command != "" {
		return
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	applyOverrides(cfg, opts)

	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}

	// Engine construction: shared transform pool, analyzer, broadcast sink.
	pool := fftpool.NewPool()
	analyzer, err := spectrum.New(pool, 1.0)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var server spectrum.BroadcastServer
	switch cfg.Broadcast.Transport {
	case "udp":
		server = udp.NewPublisher(cfg.Broadcast.Address, cfg.Broadcast.Port)
	default:
		server = wsserver.New(cfg.Broadcast.Address, cfg.Broadcast.Port)
	}
	analyzer.SetBroadcast(server)

	settings, err := settingsFromConfig(analyzer.GetSettings(), cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	analyzer.Queue().Push(spectrum.MsgConfigure{Settings: settings})
	analyzer.Queue().Push(spectrum.MsgDeviceContext{
		CenterFrequency: cfg.Source.CenterFrequency,
		SampleRate:      uint32(cfg.Source.SampleRate),
	})
	if cfg.Broadcast.Enabled {
		analyzer.Queue().Push(spectrum.MsgConfigureBroadcastOpenClose{Open: true})
	}

	positiveOnly := cfg.Spectrum.SSB
	src, err := buildSource(cfg, func(samples []complex128) {
		analyzer.Feed(samples, positiveOnly)
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	if err := src.Start(); err != nil {
		log.Fatalf("%v", err)
	}

	<-done

	if err := src.Stop(); err != nil {
		log.Errorf("stopping source: %v", err)
	}
	if err := server.Close(); err != nil {
		log.Errorf("closing broadcast sink: %v", err)
	}
	if err := analyzer.Close(); err != nil {
		log.Errorf("closing analyzer: %v", err)
	}
}

// applyOverrides layers command line flags over the loaded configuration.
func applyOverrides(cfg *config.Config, opts *cmd.Options) {
	if opts.FFTSize != 0 {
		cfg.Spectrum.FFTSize = opts.FFTSize
	}
	if opts.FFTWindow != "" {
		cfg.Spectrum.FFTWindow = opts.FFTWindow
	}
	if opts.SourceType != "" {
		cfg.Source.Type = opts.SourceType
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
}

// settingsFromConfig folds the startup configuration into a full settings
// value, starting from the analyzer's defaults.
func settingsFromConfig(settings spectrum.Settings, cfg *config.Config) (spectrum.Settings, error) {
	win, err := window.Parse(cfg.Spectrum.FFTWindow)
	if err != nil {
		return settings, err
	}
	mode, _ := spectrum.ParseAveragingMode(cfg.Spectrum.AveragingMode)

	settings.FFTSize = cfg.Spectrum.FFTSize
	settings.FFTOverlap = cfg.Spectrum.FFTOverlap
	settings.FFTWindow = win
	settings.AveragingMode = mode
	settings.AveragingIndex = spectrum.AveragingIndex(cfg.Spectrum.AveragingValue, mode)
	settings.Linear = cfg.Spectrum.Linear
	settings.SSB = cfg.Spectrum.SSB
	settings.USB = cfg.Spectrum.USB
	settings.BroadcastAddress = cfg.Broadcast.Address
	settings.BroadcastPort = cfg.Broadcast.Port
	return settings, nil
}

// buildSource constructs the configured sample source pushing into consume.
func buildSource(cfg *config.Config, consume source.Consumer) (source.Source, error) {
	switch cfg.Source.Type {
	case "file":
		return source.NewIQFile(cfg.Source.FilePath, cfg.Source.BlockSize, cfg.Source.FileRealtime, consume), nil
	case "soundcard":
		return source.NewSoundcard(cfg.Source.InputDevice, cfg.Source.SampleRate, cfg.Source.FramesPerBuffer, consume), nil
	default:
		return source.NewTone(cfg.Source.SampleRate, cfg.Source.ToneFrequency,
			cfg.Source.ToneAmplitude, cfg.Source.BlockSize, consume), nil
	}
}
