// SPDX-License-Identifier: MIT
// Package transport delivers visualization frames to renderers. Renderers
// are external to the engine: browser clients over WebSocket, native ones
// over UDP, or nothing at all. A transport never blocks the frame loop;
// frames that cannot be delivered in time are dropped.
package transport

import "spectra/internal/spectrum"

// Frame is one tick's worth of reduced spectrum data, ready to draw.
type Frame struct {
	Seq       uint32           `json:"seq"`
	Timestamp int64            `json:"ts"` // nanoseconds since epoch
	Bars      []float64        `json:"bars"`
	Level     float64          `json:"level"`
	Bass      float64          `json:"bass"`
	Treble    float64          `json:"treble"`
	Points    []spectrum.Point `json:"points,omitempty"` // radial layout only
}

// Transport sends frames to whatever is rendering them. Implementations
// must be safe for concurrent use and must not block Send on slow
// consumers.
type Transport interface {
	Send(frame Frame) error
	Close() error
}
