// SPDX-License-Identifier: MIT
package media

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gordonklaus/portaudio"

	"spectra/internal/log"
)

// Output is the device surface the player drives. *Sink is the real
// implementation; tests substitute an in-process fake.
type Output interface {
	SetSource(beep.Streamer)
	Start() error
	Stop() error
	Close() error
	SampleRate() beep.SampleRate
}

// Sink pushes a streamer at a PortAudio output device. The device pulls:
// the callback runs on PortAudio's thread and drains whatever source is
// currently set, or silence when there is none.
type Sink struct {
	stream          *portaudio.Stream
	sampleRate      beep.SampleRate
	framesPerBuffer int

	mu      sync.Mutex
	src     beep.Streamer
	buf     [][2]float64
	started bool
}

var _ Output = (*Sink)(nil)

// NewSink opens a stereo output stream on the given device. deviceID -1
// selects the system default. The stream is opened but not started.
func NewSink(deviceID int, sampleRate float64, framesPerBuffer int, lowLatency bool) (*Sink, error) {
	device, err := outputDevice(deviceID)
	if err != nil {
		return nil, err
	}

	latency := device.DefaultHighOutputLatency
	if lowLatency {
		latency = device.DefaultLowOutputLatency
	}

	s := &Sink{
		sampleRate:      beep.SampleRate(sampleRate),
		framesPerBuffer: framesPerBuffer,
		buf:             make([][2]float64, framesPerBuffer),
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 2,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: framesPerBuffer,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.fillOutput)
	if err != nil {
		return nil, fmt.Errorf("media: open output stream: %w", err)
	}
	s.stream = stream

	log.Debugf("media: output stream on %q (%.0f Hz, %d frames)",
		device.Name, sampleRate, framesPerBuffer)
	return s, nil
}

// fillOutput is the device callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses the pre-allocated pull buffer only
func (s *Sink) fillOutput(out [][]float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.mu.Lock()
	src := s.src
	frames := len(out[0])
	if frames > len(s.buf) {
		frames = len(s.buf)
	}
	buf := s.buf[:frames]

	if src != nil {
		n, _ := src.Stream(buf)
		for i := n; i < frames; i++ {
			buf[i] = [2]float64{}
		}
	} else {
		for i := range buf {
			buf[i] = [2]float64{}
		}
	}
	s.mu.Unlock()

	for i := 0; i < frames; i++ {
		out[0][i] = float32(buf[i][0])
		out[1][i] = float32(buf[i][1])
	}
	for i := frames; i < len(out[0]); i++ {
		out[0][i] = 0
		out[1][i] = 0
	}
}

// SetSource swaps the streamer the device pulls from. nil silences the
// output without stopping the stream.
func (s *Sink) SetSource(src beep.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = src
}

// Start begins pulling. Calling Start on a running sink is a no-op.
func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("media: start output stream: %w", err)
	}
	s.started = true
	return nil
}

// Stop halts the device without closing the stream.
func (s *Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("media: stop output stream: %w", err)
	}
	s.started = false
	return nil
}

// Close stops and closes the device stream.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	if s.started {
		if err := s.stream.Stop(); err != nil {
			return err
		}
		s.started = false
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

// SampleRate returns the rate the device consumes samples at.
func (s *Sink) SampleRate() beep.SampleRate {
	return s.sampleRate
}
