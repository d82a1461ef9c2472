// SPDX-License-Identifier: MIT
/*
Package media owns sound: decoding files into sample streams, pushing
those streams at an output device, and exposing the narrow tap surface
the analysis package attaches to. Everything above it (player, viz, tui)
deals in tracks and snapshots, never in PCM.
*/
package media

import (
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"spectra/internal/analysis"
	"spectra/internal/log"
)

// resampleQuality trades CPU for interpolation accuracy when the source
// rate differs from the output rate. 4 is beep's recommended middle.
const resampleQuality = 4

// timeUpdateInterval throttles OnTimeUpdate so listeners see a handful of
// position events per second instead of one per pulled buffer.
const timeUpdateInterval = 250 * time.Millisecond

// Events is the listener surface an Element reports into. Callbacks other
// than OnEnded run synchronously on the audio pull path and must return
// quickly; OnEnded is dispatched on its own goroutine so the listener may
// load the next track from it.
type Events interface {
	OnTimeUpdate(pos time.Duration)
	OnDurationChange(d time.Duration)
	OnEnded()
	OnError(err error)
}

// Element is one loaded audio file: decoder, pause control, and volume,
// chained into a single streamer the output pulls from. An Element plays
// at most one file; loading another track means closing this Element and
// creating a new one.
//
// Element implements analysis.Tappable. The tap observes mono samples
// after pause gating, so a paused element feeds the tap nothing.
type Element struct {
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	outRate  beep.SampleRate

	mu          sync.Mutex
	tap         analysis.Tap
	level       float64
	events      Events
	ended       bool
	closed      bool
	mono        []float64
	sinceUpdate int
}

var _ analysis.Tappable = (*Element)(nil)
var _ beep.Streamer = (*Element)(nil)

// NewElement decodes path and builds the playback chain, resampled to
// outRate when the file's native rate differs. The element starts paused
// at full volume. events may be nil.
func NewElement(path string, outRate beep.SampleRate, events Events) (*Element, error) {
	f, streamer, format, err := decode(path)
	if err != nil {
		return nil, err
	}

	var chain beep.Streamer = streamer
	if format.SampleRate != outRate {
		chain = beep.Resample(resampleQuality, format.SampleRate, outRate, chain)
		log.Debugf("media: resampling %d Hz -> %d Hz", format.SampleRate, outRate)
	}

	ctrl := &beep.Ctrl{Streamer: chain, Paused: true}
	volume := &effects.Volume{Streamer: ctrl, Base: 2, Volume: 0}

	e := &Element{
		file:     f,
		streamer: streamer,
		format:   format,
		ctrl:     ctrl,
		volume:   volume,
		outRate:  outRate,
		level:    1,
		events:   events,
	}

	if events != nil {
		events.OnDurationChange(e.Duration())
	}
	return e, nil
}

// Stream pulls the next buffer through the chain, feeds the tap, and
// reports position. It always fills samples fully; once the source is
// drained it keeps producing silence so the output stream stays alive.
func (e *Element) Stream(samples [][2]float64) (int, bool) {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		zero(samples)
		return len(samples), true
	}

	n, ok := e.volume.Stream(samples)
	zero(samples[n:])

	if e.tap != nil && n > 0 && !e.ctrl.Paused {
		if cap(e.mono) < n {
			e.mono = make([]float64, n)
		}
		mono := e.mono[:n]
		for i := range n {
			mono[i] = (samples[i][0] + samples[i][1]) / 2
		}
		e.tap(mono)
	}

	e.sinceUpdate += n
	fireUpdate := false
	if e.sinceUpdate >= e.outRate.N(timeUpdateInterval) {
		e.sinceUpdate = 0
		fireUpdate = true
	}
	pos := e.positionLocked()

	justEnded := !ok && !e.ended
	if justEnded {
		e.ended = true
	}
	events := e.events
	streamErr := e.streamer.Err()
	e.mu.Unlock()

	if events != nil {
		if fireUpdate {
			events.OnTimeUpdate(pos)
		}
		if justEnded {
			if streamErr != nil {
				events.OnError(streamErr)
			}
			// The listener is allowed to load the next track from OnEnded,
			// which reaches back into the output; firing inline from the
			// pull path would deadlock on the output's buffer lock.
			go events.OnEnded()
		}
	}

	return len(samples), true
}

// Err always returns nil; decode errors surface through Events.OnError.
func (e *Element) Err() error { return nil }

// Play resumes pulling from the decoder.
func (e *Element) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctrl.Paused = false
}

// Pause halts the decoder in place. While paused the element streams
// silence and the tap sees no samples, so a snapshot pulled after Pause
// returns shows the last analyzed frame, unchanged.
func (e *Element) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctrl.Paused = true
}

// Paused reports whether playback is halted.
func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.Paused
}

// SetVolume maps a linear level in [0,1] onto the exponential volume
// stage. Zero mutes outright rather than asymptotically.
func (e *Element) SetVolume(level float64) {
	level = math.Min(1, math.Max(0, level))
	e.mu.Lock()
	defer e.mu.Unlock()
	e.level = level
	if level == 0 {
		e.volume.Silent = true
		return
	}
	e.volume.Silent = false
	e.volume.Volume = math.Log2(level)
}

// Volume returns the current linear level in [0,1].
func (e *Element) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// Seek moves playback to the given offset, clamped to the track bounds.
func (e *Element) Seek(to time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if to < 0 {
		to = 0
	}
	if d := e.durationLocked(); to > d {
		to = d
	}
	if err := e.streamer.Seek(e.format.SampleRate.N(to)); err != nil {
		return err
	}
	e.ended = false
	return nil
}

// Position returns the current playback offset.
func (e *Element) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

// Duration returns the track length.
func (e *Element) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durationLocked()
}

func (e *Element) positionLocked() time.Duration {
	return e.format.SampleRate.D(e.streamer.Position())
}

func (e *Element) durationLocked() time.Duration {
	return e.format.SampleRate.D(e.streamer.Len())
}

// SampleRate returns the rate samples leave the element at.
func (e *Element) SampleRate() beep.SampleRate { return e.outRate }

// SetTap installs the one allowed analysis tap.
func (e *Element) SetTap(tap analysis.Tap) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tap != nil {
		return analysis.ErrAlreadyAttached
	}
	e.tap = tap
	return nil
}

// ClearTap removes the analysis tap, allowing a new attachment.
func (e *Element) ClearTap() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tap = nil
}

// Close releases the decoder and file. After Close the element streams
// silence forever; it must already be detached from the output or the
// output swapped to another source.
func (e *Element) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.tap = nil
	err := e.streamer.Close()
	if cerr := e.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func zero(samples [][2]float64) {
	for i := range samples {
		samples[i] = [2]float64{}
	}
}
