// SPDX-License-Identifier: MIT
package spectrum

import "sync"

// Source provides the latest frequency snapshot on demand. Sample must be
// synchronous and non-blocking; a nil or empty result means no data is
// available. *analysis.Handle satisfies this interface.
type Source interface {
	Sample() []byte
}

// Result is one frame's worth of reduced data: the bar array plus the
// scalar level summaries, all in [0,1].
type Result struct {
	Bars   []float64
	Level  float64
	Bass   float64
	Treble float64
}

// Sampler pulls one snapshot per call and reduces it for rendering. It is
// the only consumer of an analysis handle; it never mutates playback or
// playlist state, and it never fails: with no source, or a source that
// produces nothing, every output is zero-valued so the renderer draws flat
// bars instead of crashing.
type Sampler struct {
	mu        sync.RWMutex
	src       Source
	barCount  int
	smoothing float64
}

// NewSampler creates a Sampler producing barCount bars. A smoothing
// coefficient in (0,1] enables the exponential filter over each frame's
// bars; zero disables it. src may be nil.
func NewSampler(src Source, barCount int, smoothing float64) *Sampler {
	if barCount <= 0 {
		barCount = DefaultBarCount
	}
	return &Sampler{
		src:       src,
		barCount:  barCount,
		smoothing: smoothing,
	}
}

// SetSource swaps the snapshot source. Called when the player attaches a
// new track; nil detaches and returns the sampler to flat output. Safe
// against a concurrently running frame loop.
func (s *Sampler) SetSource(src Source) {
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
}

// BarCount returns the configured bar resolution.
func (s *Sampler) BarCount() int {
	return s.barCount
}

// Sample pulls the latest snapshot and reduces it. Exactly one Sample call
// on the source per invocation; there is no buffering between frames, so a
// missed tick simply means that period went unrecorded.
func (s *Sampler) Sample() Result {
	s.mu.RLock()
	src := s.src
	s.mu.RUnlock()

	var snapshot []byte
	if src != nil {
		snapshot = src.Sample()
	}

	bars := Normalize(snapshot, s.barCount)
	if s.smoothing > 0 {
		bars = Smooth(bars, s.smoothing)
	}

	return Result{
		Bars:   bars,
		Level:  Level(snapshot),
		Bass:   Bass(snapshot),
		Treble: Treble(snapshot),
	}
}
