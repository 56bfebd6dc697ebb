// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/GlassOnTin/sdrangel/internal/spectrum"
)

// packetHeader mirrors the fixed-size prefix of the wire format.
type packetHeader struct {
	Sequence        uint32
	Timestamp       int64
	CenterFrequency uint64
	SampleRate      uint32
	Flags           uint8
	BinCount        uint16
}

func openTestCollector(t *testing.T) (net.PacketConn, uint16) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, uint16(conn.LocalAddr().(*net.UDPAddr).Port)
}

func readPacket(t *testing.T, conn net.PacketConn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 65536)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	return buf[:n]
}

func TestPublisherPacketFormat(t *testing.T) {
	collector, port := openTestCollector(t)

	pub := NewPublisher("127.0.0.1", port)
	if err := pub.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pub.Close()

	before := time.Now().UnixNano()
	pub.Broadcast(spectrum.Frame{
		Bins:            []float64{-10.5, -80, -75.25},
		CenterFrequency: 433_920_000,
		SampleRate:      250_000,
		Linear:          true,
		USB:             true,
	})

	packet := readPacket(t, collector)

	var header packetHeader
	reader := bytes.NewReader(packet)
	if err := binary.Read(reader, binary.BigEndian, &header); err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", header.Sequence)
	}
	if header.Timestamp < before || header.Timestamp > time.Now().UnixNano() {
		t.Errorf("timestamp %d outside the send interval", header.Timestamp)
	}
	if header.CenterFrequency != 433_920_000 || header.SampleRate != 250_000 {
		t.Errorf("tuning = (%d, %d), want (433920000, 250000)", header.CenterFrequency, header.SampleRate)
	}
	if header.Flags != flagLinear|flagUSB {
		t.Errorf("flags = %#x, want linear|usb", header.Flags)
	}
	if header.BinCount != 3 {
		t.Fatalf("binCount = %d, want 3", header.BinCount)
	}

	bins := make([]float32, header.BinCount)
	if err := binary.Read(reader, binary.BigEndian, bins); err != nil {
		t.Fatalf("read bins: %v", err)
	}
	want := []float32{-10.5, -80, -75.25}
	for i, v := range bins {
		if v != want[i] {
			t.Errorf("bin %d = %v, want %v", i, v, want[i])
		}
	}
	if reader.Len() != 0 {
		t.Errorf("%d trailing bytes after bins", reader.Len())
	}
}

func TestPublisherSequenceIncrements(t *testing.T) {
	collector, port := openTestCollector(t)

	pub := NewPublisher("127.0.0.1", port)
	if err := pub.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pub.Close()

	frame := spectrum.Frame{Bins: []float64{-42}}
	pub.Broadcast(frame)
	pub.Broadcast(frame)

	for want := uint32(1); want <= 2; want++ {
		packet := readPacket(t, collector)
		seq := binary.BigEndian.Uint32(packet[:4])
		if seq != want {
			t.Errorf("sequence = %d, want %d", seq, want)
		}
	}
}

func TestPublisherClosedDropsFrames(t *testing.T) {
	pub := NewPublisher("127.0.0.1", 9)
	// Must be a silent no-op before Open and after Close.
	pub.Broadcast(spectrum.Frame{Bins: []float64{-42}})

	if pub.IsOpen() {
		t.Error("publisher claims open before Open")
	}
	if err := pub.Close(); err != nil {
		t.Errorf("Close before Open: %v", err)
	}
}

func TestPublisherOpenCloseIdempotent(t *testing.T) {
	_, port := openTestCollector(t)

	pub := NewPublisher("127.0.0.1", port)
	if err := pub.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := pub.Open(); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if !pub.IsOpen() {
		t.Fatal("publisher not open")
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestPublisherStatusReportsEndpoint(t *testing.T) {
	pub := NewPublisher("192.0.2.1", 8887)
	status := pub.Status()
	if status.Open || status.ListeningAddress != "192.0.2.1" || status.ListeningPort != 8887 {
		t.Errorf("status = %+v, want closed 192.0.2.1:8887", status)
	}
	if len(status.Peers) != 0 {
		t.Errorf("datagram status lists %d peers", len(status.Peers))
	}

	pub.SetEndpoint("192.0.2.2", 9000)
	status = pub.Status()
	if status.ListeningAddress != "192.0.2.2" || status.ListeningPort != 9000 {
		t.Errorf("status after SetEndpoint = %+v", status)
	}
}
