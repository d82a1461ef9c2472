// SPDX-License-Identifier: MIT
package transport

import "spectra/internal/log"

// LoggingTransport renders nowhere; it logs frame summaries at debug level.
// Used when no renderer transport is configured.
type LoggingTransport struct{}

// NewLoggingTransport creates a LoggingTransport.
func NewLoggingTransport() *LoggingTransport {
	log.Debugf("transport: using logging transport")
	return &LoggingTransport{}
}

// Send logs the frame summary. Never fails.
func (lt *LoggingTransport) Send(frame Frame) error {
	log.Debugf("transport: frame %d (level %.3f, bass %.3f, treble %.3f, %d bars)",
		frame.Seq, frame.Level, frame.Bass, frame.Treble, len(frame.Bars))
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
