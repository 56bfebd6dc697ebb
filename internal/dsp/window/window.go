// SPDX-License-Identifier: MIT
//
// Package window builds FFT windowing coefficient tables and applies them to
// complex baseband blocks. Coefficients come from gonum's dsp/window
// implementations; the table is computed once per (function, size) and the
// per-block apply is a plain element-wise multiply with no allocations.
package window

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// Func selects a window function.
type Func int

const (
	Rectangular Func = iota
	Triangular
	BartlettHann
	Hamming
	Hann
	Blackman
	BlackmanHarris
	BlackmanNuttall
	Nuttall
	FlatTop
	Lanczos
)

// String returns the canonical name of the window function.
func (f Func) String() string {
	switch f {
	case Rectangular:
		return "Rectangular"
	case Triangular:
		return "Triangular"
	case BartlettHann:
		return "BartlettHann"
	case Hamming:
		return "Hamming"
	case Hann:
		return "Hann"
	case Blackman:
		return "Blackman"
	case BlackmanHarris:
		return "BlackmanHarris"
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case Nuttall:
		return "Nuttall"
	case FlatTop:
		return "FlatTop"
	case Lanczos:
		return "Lanczos"
	default:
		return "Unknown"
	}
}

// Functions lists every selectable window function.
func Functions() []Func {
	return []Func{
		Rectangular, Triangular, BartlettHann, Hamming, Hann, Blackman,
		BlackmanHarris, BlackmanNuttall, Nuttall, FlatTop, Lanczos,
	}
}

// Parse converts a name (case-insensitive) to a Func. Returns Hann and an
// error if the name is unknown.
func Parse(name string) (Func, error) {
	switch strings.ToLower(name) {
	case "rectangular", "rectangle":
		return Rectangular, nil
	case "triangular", "bartlett":
		return Triangular, nil
	case "bartletthann":
		return BartlettHann, nil
	case "hamming":
		return Hamming, nil
	case "hann", "hanning":
		return Hann, nil
	case "blackman":
		return Blackman, nil
	case "blackmanharris":
		return BlackmanHarris, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "nuttall":
		return Nuttall, nil
	case "flattop":
		return FlatTop, nil
	case "lanczos":
		return Lanczos, nil
	default:
		return Hann, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// Table holds a precomputed coefficient table for one (function, size) pair.
type Table struct {
	fn     Func
	coeffs []float64
}

// New builds the coefficient table for fn at the given size.
func New(fn Func, size int) *Table {
	// Window functions multiply in place, so seed with ones.
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}

	switch fn {
	case Rectangular:
		window.Rectangular(coeffs)
	case Triangular:
		window.Triangular(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanHarris:
		window.BlackmanHarris(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case FlatTop:
		window.FlatTop(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	default:
		window.Hann(coeffs)
	}

	return &Table{fn: fn, coeffs: coeffs}
}

// Func returns the window function the table was built for.
func (t *Table) Func() Func { return t.fn }

// Size returns the table length.
func (t *Table) Size() int { return len(t.coeffs) }

// Coeffs exposes the raw coefficient table. The slice must not be modified.
func (t *Table) Coeffs() []float64 { return t.coeffs }

// Apply multiplies src by the coefficient table into dst. Both slices must
// have the table's length.
func (t *Table) Apply(src, dst []complex128) {
	for i, c := range t.coeffs {
		dst[i] = src[i] * complex(c, 0)
	}
}
