// SPDX-License-Identifier: MIT
//
// Package udp implements a datagram broadcast sink: each finished spectrum
// frame is packed into one binary packet and sent to a single remote
// collector. It satisfies the same BroadcastServer contract as the websocket
// server, so the control plane drives both interchangeably.
package udp

import (
	"bytes"
	"encoding/binary"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/GlassOnTin/sdrangel/internal/log"
	"github.com/GlassOnTin/sdrangel/internal/spectrum"
)

/*
Packet layout (BigEndian):

	sequence        uint32   monotonically increasing per publisher
	timestamp       int64    nanoseconds since epoch
	centerFrequency uint64   Hz
	sampleRate      uint32   Hz
	flags           uint8    bit0 linear, bit1 ssb, bit2 usb
	binCount        uint16   number of float32 bins (N)
	bins            N*float32
*/
const (
	flagLinear = 1 << iota
	flagSSB
	flagUSB
)

// Publisher packs finished frames into binary packets and sends them over
// UDP. Open dials the configured endpoint; Close hangs up. There is no peer
// feedback on a datagram socket, so Status never lists peers.
type Publisher struct {
	mu      sync.Mutex
	address string
	port    uint16
	sender  *Sender

	sequence  uint32
	f32Buffer []float32
	packetBuf bytes.Buffer
}

var _ spectrum.BroadcastServer = (*Publisher)(nil)

// NewPublisher returns a closed publisher for the given collector endpoint.
func NewPublisher(address string, port uint16) *Publisher {
	return &Publisher{address: address, port: port}
}

// SetEndpoint stores a new collector endpoint for the next Open.
func (p *Publisher) SetEndpoint(address string, port uint16) {
	p.mu.Lock()
	p.address = address
	p.port = port
	p.mu.Unlock()
}

// Open dials the collector. Opening an open publisher is a no-op.
func (p *Publisher) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sender != nil {
		return nil
	}
	sender, err := NewSender(net.JoinHostPort(p.address, strconv.Itoa(int(p.port))))
	if err != nil {
		return err
	}
	p.sender = sender
	log.Infof("udp: publishing frames to %s:%d", p.address, p.port)
	return nil
}

// Close hangs up. Closing a closed publisher is a no-op.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sender == nil {
		return nil
	}
	err := p.sender.Close()
	p.sender = nil
	return err
}

// IsOpen reports whether the publisher is dialed.
func (p *Publisher) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sender != nil
}

// Status reports the configured endpoint. Datagram sockets carry no peer
// state.
func (p *Publisher) Status() spectrum.ServerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return spectrum.ServerStatus{
		Open:             p.sender != nil,
		ListeningAddress: p.address,
		ListeningPort:    p.port,
	}
}

// Broadcast packs one finished frame and sends it. Send errors are logged
// and the frame is dropped; the feed path never waits on the network stack.
func (p *Publisher) Broadcast(frame spectrum.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sender == nil {
		return
	}

	if cap(p.f32Buffer) < len(frame.Bins) {
		p.f32Buffer = make([]float32, len(frame.Bins))
	}
	p.f32Buffer = p.f32Buffer[:len(frame.Bins)]
	for i, v := range frame.Bins {
		p.f32Buffer[i] = float32(v)
	}

	var flags uint8
	if frame.Linear {
		flags |= flagLinear
	}
	if frame.SSB {
		flags |= flagSSB
	}
	if frame.USB {
		flags |= flagUSB
	}

	p.sequence++
	p.packetBuf.Reset()

	err := binary.Write(&p.packetBuf, binary.BigEndian, p.sequence)
	if err == nil {
		err = binary.Write(&p.packetBuf, binary.BigEndian, time.Now().UnixNano())
	}
	if err == nil {
		err = binary.Write(&p.packetBuf, binary.BigEndian, frame.CenterFrequency)
	}
	if err == nil {
		err = binary.Write(&p.packetBuf, binary.BigEndian, frame.SampleRate)
	}
	if err == nil {
		err = binary.Write(&p.packetBuf, binary.BigEndian, flags)
	}
	if err == nil {
		err = binary.Write(&p.packetBuf, binary.BigEndian, uint16(len(p.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(&p.packetBuf, binary.BigEndian, p.f32Buffer)
	}
	if err != nil {
		log.Errorf("udp: packet pack: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuf.Bytes()); err != nil {
		log.Debugf("udp: frame %d dropped: %v", p.sequence, err)
	}
}
