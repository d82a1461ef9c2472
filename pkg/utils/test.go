// SPDX-License-Identifier: MIT
// Package utils holds shared test helpers: signal generators for feeding
// analysis nodes and peak lookup over byte snapshots.
package utils

import "math"

// GenerateSineWave returns size mono samples of a sine at the given
// frequency, scaled to 90% of full range.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental plus two harmonics,
// useful when a test needs energy in more than one bin.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
	}
	return buffer
}

// FindPeakBin returns the index of the largest snapshot value in
// [startBin, endBin], clamped to the snapshot bounds.
func FindPeakBin(snapshot []byte, startBin, endBin int) int {
	if len(snapshot) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(snapshot) {
		endBin = len(snapshot) - 1
	}

	peakBin := startBin
	peakValue := snapshot[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if snapshot[bin] > peakValue {
			peakValue = snapshot[bin]
			peakBin = bin
		}
	}

	return peakBin
}
