// SPDX-License-Identifier: MIT
package spectrum

// Frame is one finished power spectrum with the device context it was
// computed under. Bins points at the analyzer's reused output buffer, so
// sinks must copy or serialize it before returning.
type Frame struct {
	Bins            []float64 `json:"bins"`
	CenterFrequency uint64    `json:"centerFrequency"`
	SampleRate      uint32    `json:"sampleRate"`
	Linear          bool      `json:"linear"`
	SSB             bool      `json:"ssb"`
	USB             bool      `json:"usb"`
}

// DisplaySink receives finished frames for local rendering. At most one is
// attached. NewSpectrum is called with the analyzer lock held and must not
// retain bins past its return.
type DisplaySink interface {
	NewSpectrum(bins []float64, fftSize int)
}

// Peer identifies one connected broadcast client.
type Peer struct {
	Address string
	Port    uint16
}

// ServerStatus describes the live broadcast listener.
type ServerStatus struct {
	Open             bool
	ListeningAddress string
	ListeningPort    uint16
	Peers            []Peer
}

// BroadcastServer fans finished frames out to remote peers. Open and Close
// are idempotent. Broadcast must serialize the frame before returning since
// Frame.Bins is reused. Implementations decide their own slow-peer policy;
// nothing on the feed path waits for a peer.
type BroadcastServer interface {
	Open() error
	Close() error
	IsOpen() bool
	SetEndpoint(address string, port uint16)
	Broadcast(frame Frame)
	Status() ServerStatus
}
