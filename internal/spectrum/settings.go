// SPDX-License-Identifier: MIT
package spectrum

import (
	"strings"

	"github.com/GlassOnTin/sdrangel/internal/dsp/window"
)

// Bounds for the analysis configuration. Out-of-range values are clamped,
// never rejected.
const (
	MinFFTSize = 64
	MaxFFTSize = 4096

	MinOverlapPercent = 0
	MaxOverlapPercent = 100

	// Moving averages keep per-bin history, so their depth is capped to
	// bound memory (MaxFFTSize * MaxMovingAverage float64s worst case).
	MaxMovingAverage = 1000
)

// AveragingMode selects the power averaging policy.
type AveragingMode int

const (
	AvgModeNone AveragingMode = iota
	AvgModeMoving
	AvgModeFixed
	AvgModeMax
)

// String returns the canonical name of the averaging mode.
func (m AveragingMode) String() string {
	switch m {
	case AvgModeNone:
		return "None"
	case AvgModeMoving:
		return "Moving"
	case AvgModeFixed:
		return "Fixed"
	case AvgModeMax:
		return "Max"
	default:
		return "Unknown"
	}
}

// ParseAveragingMode converts a name (case-insensitive) to an AveragingMode.
// Unknown names map to AvgModeNone and false.
func ParseAveragingMode(s string) (AveragingMode, bool) {
	switch strings.ToLower(s) {
	case "none":
		return AvgModeNone, true
	case "moving":
		return AvgModeMoving, true
	case "fixed", "fixedcount":
		return AvgModeFixed, true
	case "max", "maxhold":
		return AvgModeMax, true
	default:
		return AvgModeNone, false
	}
}

// Settings is the full analysis configuration. It is a value object: every
// apply replaces the current settings wholesale, nothing mutates in place.
//
// The display fields from RefLevel down are cosmetic hints carried through
// the get/patch surface for attached viewers; they do not affect computation.
type Settings struct {
	FFTSize        int
	FFTOverlap     int // percent of FFTSize retained between blocks
	FFTWindow      window.Func
	AveragingMode  AveragingMode
	AveragingIndex int // index into the 1-2-5 decade series, see AveragingValue
	AveragingValue int // transform count derived from the index on each apply
	Linear         bool
	SSB            bool
	USB            bool

	BroadcastAddress string
	BroadcastPort    uint16

	RefLevel              float64
	PowerRange            float64
	Decay                 int
	DecayDivisor          int
	HistogramStroke       int
	DisplayGridIntensity  int
	DisplayTraceIntensity int
	DisplayWaterfall      bool
	InvertedWaterfall     bool
	WaterfallShare        float64
	DisplayMaxHold        bool
	DisplayCurrent        bool
	DisplayHistogram      bool
	DisplayGrid           bool
}

// DefaultSettings returns the configuration used at construction time.
func DefaultSettings() Settings {
	return Settings{
		FFTSize:          1024,
		FFTOverlap:       0,
		FFTWindow:        window.Hann,
		AveragingMode:    AvgModeNone,
		AveragingIndex:   0,
		AveragingValue:   1,
		Linear:           false,
		BroadcastAddress: "127.0.0.1",
		BroadcastPort:    8887,
		RefLevel:         0,
		PowerRange:       100,
		Decay:            1,
		DecayDivisor:     1,
		HistogramStroke:  30,
		WaterfallShare:   0.66,
		DisplayCurrent:   true,
		DisplayGrid:      true,
	}
}

// ClampFFTSize clamps a requested transform size to [MinFFTSize, MaxFFTSize].
func ClampFFTSize(size int) int {
	if size > MaxFFTSize {
		return MaxFFTSize
	}
	if size < MinFFTSize {
		return MinFFTSize
	}
	return size
}

// ClampOverlap clamps a requested overlap percentage to [0, 100].
func ClampOverlap(percent int) int {
	if percent > MaxOverlapPercent {
		return MaxOverlapPercent
	}
	if percent < MinOverlapPercent {
		return MinOverlapPercent
	}
	return percent
}

// maxAveragingIndex bounds the averaging series per mode. The moving-average
// series stops at 1000 transforms; fixed and max-hold may integrate much
// longer.
func maxAveragingIndex(mode AveragingMode) int {
	if mode == AvgModeMoving {
		return 9 // AveragingValue(9) == MaxMovingAverage
	}
	return 18
}

// AveragingValue maps an averaging series index to a transform count using a
// 1-2-5 decade progression: 1, 2, 5, 10, 20, 50, 100, ...
func AveragingValue(index int, mode AveragingMode) int {
	if index <= 0 {
		return 1
	}
	if max := maxAveragingIndex(mode); index > max {
		index = max
	}

	v := index - 1
	m := 1
	for i := 0; i < v/3; i++ {
		m *= 10
	}
	switch v % 3 {
	case 0:
		return 2 * m
	case 1:
		return 5 * m
	default:
		return 10 * m
	}
}

// AveragingIndex maps a transform count back to the smallest series index
// whose value is >= count. It is the inverse of AveragingValue for values on
// the series.
func AveragingIndex(value int, mode AveragingMode) int {
	max := maxAveragingIndex(mode)
	for i := 0; i <= max; i++ {
		if AveragingValue(i, mode) >= value {
			return i
		}
	}
	return max
}
