// SPDX-License-Identifier: MIT
package spectrum

import "testing"

func TestClampFFTSize(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"below minimum", 16, MinFFTSize},
		{"at minimum", 64, 64},
		{"typical", 1024, 1024},
		{"at maximum", 4096, 4096},
		{"above maximum", 65536, MaxFFTSize},
		{"zero", 0, MinFFTSize},
		{"negative", -4, MinFFTSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampFFTSize(tt.in); got != tt.want {
				t.Errorf("ClampFFTSize(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampOverlap(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-10, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{150, 100},
	}
	for _, tt := range tests {
		if got := ClampOverlap(tt.in); got != tt.want {
			t.Errorf("ClampOverlap(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAveragingValueSeries(t *testing.T) {
	// 1-2-5 decade progression.
	want := []int{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000}
	for i, w := range want {
		if got := AveragingValue(i, AvgModeMoving); got != w {
			t.Errorf("AveragingValue(%d, moving) = %d, want %d", i, got, w)
		}
	}

	// The moving series is capped where its value reaches the history bound.
	if got := AveragingValue(15, AvgModeMoving); got != MaxMovingAverage {
		t.Errorf("AveragingValue(15, moving) = %d, want %d", got, MaxMovingAverage)
	}

	// Fixed and max-hold integrate much deeper.
	if got := AveragingValue(18, AvgModeFixed); got != 1000000 {
		t.Errorf("AveragingValue(18, fixed) = %d, want 1000000", got)
	}
	if got := AveragingValue(30, AvgModeMax); got != 1000000 {
		t.Errorf("AveragingValue(30, max) = %d, want 1000000", got)
	}

	if got := AveragingValue(-3, AvgModeFixed); got != 1 {
		t.Errorf("AveragingValue(-3, fixed) = %d, want 1", got)
	}
}

func TestAveragingIndexRoundTrip(t *testing.T) {
	for _, mode := range []AveragingMode{AvgModeMoving, AvgModeFixed, AvgModeMax} {
		for i := 0; i <= maxAveragingIndex(mode); i++ {
			if got := AveragingIndex(AveragingValue(i, mode), mode); got != i {
				t.Errorf("mode %v: AveragingIndex(AveragingValue(%d)) = %d", mode, i, got)
			}
		}
	}

	// Off-series counts snap up to the next series value.
	if got := AveragingIndex(4, AvgModeFixed); got != 2 {
		t.Errorf("AveragingIndex(4, fixed) = %d, want 2 (value 5)", got)
	}
	if got := AveragingIndex(3, AvgModeMoving); got != 2 {
		t.Errorf("AveragingIndex(3, moving) = %d, want 2 (value 5)", got)
	}
}

func TestParseAveragingMode(t *testing.T) {
	tests := []struct {
		in   string
		want AveragingMode
		ok   bool
	}{
		{"none", AvgModeNone, true},
		{"Moving", AvgModeMoving, true},
		{"FIXED", AvgModeFixed, true},
		{"fixedcount", AvgModeFixed, true},
		{"max", AvgModeMax, true},
		{"maxhold", AvgModeMax, true},
		{"median", AvgModeNone, false},
	}
	for _, tt := range tests {
		got, ok := ParseAveragingMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseAveragingMode(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAveragingModeStringRoundTrip(t *testing.T) {
	for _, mode := range []AveragingMode{AvgModeNone, AvgModeMoving, AvgModeFixed, AvgModeMax} {
		got, ok := ParseAveragingMode(mode.String())
		if !ok || got != mode {
			t.Errorf("ParseAveragingMode(%q) = (%v, %v), want (%v, true)", mode.String(), got, ok, mode)
		}
	}
}
