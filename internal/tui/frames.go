// SPDX-License-Identifier: MIT
package tui

import (
	"sync"

	"spectra/internal/transport"
)

// FrameSink adapts the frame transport interface onto a channel the UI
// reads. Send never blocks the publisher: when the UI falls behind, the
// oldest buffered frame is dropped.
type FrameSink struct {
	mu     sync.Mutex
	ch     chan transport.Frame
	closed bool
}

var _ transport.Transport = (*FrameSink)(nil)

// NewFrameSink creates a sink buffering up to buffer frames.
func NewFrameSink(buffer int) *FrameSink {
	if buffer < 1 {
		buffer = 1
	}
	return &FrameSink{ch: make(chan transport.Frame, buffer)}
}

// Frames returns the channel the UI listens on. It is closed by Close.
func (s *FrameSink) Frames() <-chan transport.Frame {
	return s.ch
}

// Send queues a frame for the UI, dropping the oldest when full.
func (s *FrameSink) Send(f transport.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for {
		select {
		case s.ch <- f:
			return nil
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Close closes the frame channel, ending the UI's listener.
func (s *FrameSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	return nil
}
