// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"spectra/internal/log"
)

/*
UDP frame packet (BigEndian):

|<-- 4 Bytes -->|<---- 8 Bytes ---->|<- 2 Bytes ->|<---- N * 4 Bytes ---->|
+---------------+-------------------+-------------+-----------------------+
|   Sequence    |     Timestamp     |  Bar Count  |   Bars (N * float32)  |
|   (uint32)    |  (int64, ns)      |  (uint16)   |                       |
+---------------+-------------------+-------------+-----------------------+

Radial points are a JSON-side extra; the UDP packet carries bars only.
*/

// UDPTransport packs frames into the binary layout above and fires them at
// a fixed target address. Delivery is fire-and-forget.
type UDPTransport struct {
	conn   *net.UDPConn
	mu     sync.Mutex // protects conn, buf and f32 across Send/Close
	closed bool

	// Reusable packing buffers.
	buf *bytes.Buffer
	f32 []float32
}

// NewUDPTransport dials the target address ("host:port") and returns the
// transport.
func NewUDPTransport(targetAddress string) (*UDPTransport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve UDP target '%s': %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial UDP target '%s': %w", targetAddress, err)
	}

	log.Infof("transport: UDP frames to %s", conn.RemoteAddr())

	return &UDPTransport{
		conn: conn,
		buf:  new(bytes.Buffer),
	}, nil
}

// Send packs and transmits one frame.
func (t *UDPTransport) Send(frame Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transport: UDP transport is closed")
	}

	if len(t.f32) != len(frame.Bars) {
		t.f32 = make([]float32, len(frame.Bars))
	}
	for i, v := range frame.Bars {
		t.f32[i] = float32(v)
	}

	t.buf.Reset()
	err := binary.Write(t.buf, binary.BigEndian, frame.Seq)
	if err == nil {
		err = binary.Write(t.buf, binary.BigEndian, frame.Timestamp)
	}
	if err == nil {
		err = binary.Write(t.buf, binary.BigEndian, uint16(len(t.f32)))
	}
	if err == nil {
		err = binary.Write(t.buf, binary.BigEndian, t.f32)
	}
	if err != nil {
		return fmt.Errorf("transport: pack UDP frame: %w", err)
	}

	if _, err := t.conn.Write(t.buf.Bytes()); err != nil {
		return fmt.Errorf("transport: send UDP frame: %w", err)
	}
	return nil
}

// Close closes the underlying connection. Safe to call more than once.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.conn != nil {
		err := t.conn.Close()
		t.conn = nil
		return err
	}
	return nil
}

var _ Transport = (*UDPTransport)(nil)
