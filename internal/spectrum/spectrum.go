// SPDX-License-Identifier: MIT
/*
Package spectrum reduces raw frequency snapshots into visualization-ready
forms: fixed-length bar arrays in [0,1], radial point layouts, and scalar
level summaries. All reductions are pure functions over a single snapshot;
nothing here carries state between frames.

A snapshot is the byte array produced by an analysis handle: one unsigned
magnitude (0-255) per frequency bin, fixed length for the lifetime of the
attachment that produced it.
*/
package spectrum

import "math"

// DefaultBarCount is the bar resolution used by call sites that do not
// choose their own.
const DefaultBarCount = 64

// DefaultSmoothing is the default exponential smoothing coefficient.
const DefaultSmoothing = 0.3

// Point is a bar value projected onto a circle for radial rendering.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Normalize reduces a snapshot to barCount values in [0,1] by averaging
// contiguous chunks of bins.
//
// The snapshot is split into barCount chunks of floor(len/barCount) bins.
// When the snapshot length is not evenly divisible, the trailing remainder
// bins are dropped and the final chunk is still divided by the full chunk
// size, slightly under-weighting the last bar. That reduction is part of
// the rendered look and is kept as-is; see TestNormalizeLastChunkWeighting.
//
// An empty snapshot, or barCount > len(snapshot) (chunk size truncates to
// zero), yields a zero-filled slice of length barCount: the visualizer
// renders flat rather than failing when no audio is attached.
func Normalize(snapshot []byte, barCount int) []float64 {
	if barCount <= 0 {
		return nil
	}
	bars := make([]float64, barCount)

	chunkSize := len(snapshot) / barCount
	if chunkSize == 0 {
		return bars
	}

	for i := range barCount {
		start := i * chunkSize
		end := min(start+chunkSize, len(snapshot))

		var sum float64
		for j := start; j < end; j++ {
			sum += float64(snapshot[j])
		}
		bars[i] = sum / float64(chunkSize) / 255.0
	}
	return bars
}

// Circular reduces a snapshot to points bars and projects each onto a unit
// circle, with the bar value as the radial amplitude. Point i sits at angle
// 2*pi*i/points.
func Circular(snapshot []byte, points int) []Point {
	return Project(Normalize(snapshot, points))
}

// Project maps already-reduced bars onto a unit circle. Callers that hold
// one frame's bars use this instead of Circular to avoid pulling a second
// snapshot within the same tick.
func Project(bars []float64) []Point {
	layout := make([]Point, len(bars))
	for i, amp := range bars {
		theta := 2 * math.Pi * float64(i) / float64(len(bars))
		layout[i] = Point{
			X: math.Cos(theta) * amp,
			Y: math.Sin(theta) * amp,
		}
	}
	return layout
}

// Level returns the mean of all bins, normalized to [0,1].
func Level(snapshot []byte) float64 {
	return meanRange(snapshot, 0, len(snapshot))
}

// Bass returns the mean of the first 10% of bins, normalized to [0,1].
// The split is index-proportional, not frequency-calibrated.
func Bass(snapshot []byte) float64 {
	return meanRange(snapshot, 0, len(snapshot)/10)
}

// Treble returns the mean of the last 30% of bins, normalized to [0,1].
func Treble(snapshot []byte) float64 {
	return meanRange(snapshot, len(snapshot)-len(snapshot)*30/100, len(snapshot))
}

func meanRange(snapshot []byte, start, end int) float64 {
	if start < 0 {
		start = 0
	}
	if end > len(snapshot) {
		end = len(snapshot)
	}
	if start >= end {
		return 0
	}

	var sum float64
	for _, v := range snapshot[start:end] {
		sum += float64(v)
	}
	return sum / float64(end-start) / 255.0
}

// Smooth applies a left-to-right exponential filter within the given
// sequence: out[0] = raw[0], out[i] = out[i-1]*k + raw[i]*(1-k).
//
// This smooths one snapshot's own samples, not values across frames; a
// sampler wanting temporal smoothing would keep state between calls, and
// this function deliberately does not.
func Smooth(raw []float64, k float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}
	out[0] = raw[0]
	for i := 1; i < len(raw); i++ {
		out[i] = out[i-1]*k + raw[i]*(1-k)
	}
	return out
}
