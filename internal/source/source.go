// SPDX-License-Identifier: MIT
//
// Package source provides complex baseband sample sources for the analysis
// engine: a WAV I/Q file reader, a sound-card capture for direct-sampling
// front ends, and a synthetic tone generator. Sources push blocks into a
// Consumer; the engine's feed path decides what to do with them.
package source

// Consumer receives one block of complex baseband samples. The block is
// reused by the source after the call returns.
type Consumer func(samples []complex128)

// Source feeds a consumer until stopped.
type Source interface {
	Start() error
	Stop() error
}
