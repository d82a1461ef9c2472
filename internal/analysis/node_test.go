// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"testing"

	"spectra/pkg/utils"
)

const (
	testFFTSize    = 1024
	testSampleRate = 44100.0
)

// fakeSource implements Tappable with the single-tap rule a real playable
// source enforces.
type fakeSource struct {
	tap Tap
}

func (f *fakeSource) SetTap(t Tap) error {
	if f.tap != nil {
		return ErrAlreadyAttached
	}
	f.tap = t
	return nil
}

func (f *fakeSource) ClearTap() {
	f.tap = nil
}

// push feeds samples through the installed tap, as the audio pull path would.
func (f *fakeSource) push(samples []float64) {
	if f.tap != nil {
		f.tap(samples)
	}
}

func TestAttachValidation(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}

	if _, err := Attach(nil, testFFTSize, testSampleRate, Hann); !errors.Is(err, ErrUnsupported) {
		t.Errorf("nil source: got %v, want ErrUnsupported", err)
	}
	if _, err := Attach(src, 1000, testSampleRate, Hann); err == nil {
		t.Error("non-power-of-2 size: expected error")
	}
	if _, err := Attach(src, testFFTSize, 0, Hann); err == nil {
		t.Error("zero sample rate: expected error")
	}
}

func TestAttachTwiceIsCaught(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}

	first, err := Attach(src, testFFTSize, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("first attach failed: %v", err)
	}

	// Second attachment must fail gracefully with a sentinel the caller can
	// ignore, leaving the first attachment working.
	if _, err := Attach(src, testFFTSize, testSampleRate, Hann); !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("second attach: got %v, want ErrAlreadyAttached", err)
	}

	src.push(utils.GenerateSineWave(testFFTSize, testSampleRate, 440))
	if len(first.Sample()) != first.BinCount() {
		t.Error("first attachment stopped working after rejected re-attach")
	}
}

func TestSnapshotLengthFixed(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	h, err := Attach(src, testFFTSize, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	defer h.Release()

	wantLen := testFFTSize/2 + 1
	if h.BinCount() != wantLen {
		t.Fatalf("BinCount = %d, want %d", h.BinCount(), wantLen)
	}

	// Length holds before any audio, after partial fills, and after full frames.
	if got := len(h.Sample()); got != wantLen {
		t.Errorf("pre-audio snapshot length = %d, want %d", got, wantLen)
	}
	src.push(utils.GenerateSineWave(100, testSampleRate, 440))
	if got := len(h.Sample()); got != wantLen {
		t.Errorf("partial-fill snapshot length = %d, want %d", got, wantLen)
	}
	src.push(utils.GenerateSineWave(testFFTSize*3, testSampleRate, 440))
	if got := len(h.Sample()); got != wantLen {
		t.Errorf("post-frame snapshot length = %d, want %d", got, wantLen)
	}
}

func TestSinePeaksAtExpectedBin(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	h, err := Attach(src, testFFTSize, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	defer h.Release()

	const freq = 440.0
	src.push(utils.GenerateSineWave(testFFTSize, testSampleRate, freq))

	snapshot := h.Sample()
	peak := utils.FindPeakBin(snapshot, 1, len(snapshot)-1)

	binWidth := testSampleRate / float64(testFFTSize)
	wantBin := int(freq / binWidth)
	if peak < wantBin-1 || peak > wantBin+1 {
		t.Errorf("peak at bin %d, want near %d", peak, wantBin)
	}
	if snapshot[peak] < 128 {
		t.Errorf("peak magnitude %d unexpectedly weak", snapshot[peak])
	}
}

func TestSilenceYieldsZeroSnapshot(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	h, err := Attach(src, testFFTSize, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	defer h.Release()

	src.push(make([]float64, testFFTSize))
	for i, v := range h.Sample() {
		if v != 0 {
			t.Fatalf("bin %d = %d for silence, want 0", i, v)
		}
	}
}

func TestFrequencyForBin(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	h, err := Attach(src, testFFTSize, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	defer h.Release()

	resolution := testSampleRate / testFFTSize
	if got := h.FrequencyForBin(0); got != 0 {
		t.Errorf("bin 0 = %v Hz, want 0", got)
	}
	if got := h.FrequencyForBin(10); got != 10*resolution {
		t.Errorf("bin 10 = %v Hz, want %v", got, 10*resolution)
	}
	if got := h.FrequencyForBin(testFFTSize/2); got != testSampleRate/2 {
		t.Errorf("nyquist bin = %v Hz, want %v", got, testSampleRate/2)
	}
	if got := h.FrequencyForBin(-1); got != 0 {
		t.Errorf("negative bin = %v Hz, want 0", got)
	}
	if got := h.FrequencyForBin(testFFTSize); got != 0 {
		t.Errorf("out-of-range bin = %v Hz, want 0", got)
	}
}

func TestReleaseClearsTapAndAllowsReattach(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	h, err := Attach(src, testFFTSize, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	h.Release()
	h.Release() // idempotent

	if src.tap != nil {
		t.Error("tap still installed after Release")
	}
	if h.Sample() != nil {
		t.Error("Sample after Release should return nil")
	}

	if _, err := Attach(src, testFFTSize, testSampleRate, Hann); err != nil {
		t.Errorf("re-attach after release failed: %v", err)
	}
}

func TestParseWindowFunc(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"hann", Hann, false},
		{"Hanning", Hann, false},
		{"HAMMING", Hamming, false},
		{"blackman", Blackman, false},
		{"nuttall", Nuttall, false},
		{"sawtooth", Hann, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowFunc(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseWindowFunc(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
