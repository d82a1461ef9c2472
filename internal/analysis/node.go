// SPDX-License-Identifier: MIT
/*
Package analysis binds a playable source to a frequency-analysis node and
exposes the result as fixed-length snapshots of unsigned magnitudes (0-255),
one value per frequency bin.

The node is attached to a source exactly once: Attach installs a sample tap
on the source and returns a Handle; attaching an already-tapped source fails
with ErrAlreadyAttached, which callers are expected to catch and ignore
rather than treat as fatal. The snapshot length is fixed for the lifetime of
one attachment (fftSize/2 + 1 bins) and only changes by releasing the handle
and attaching again.

The actual transform is delegated to gonum's real FFT; this package owns no
signal processing beyond windowing and magnitude scaling.
*/
package analysis

import (
	"errors"
	"fmt"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"

	"spectra/internal/log"
	"spectra/pkg/bitint"
)

var (
	// ErrAlreadyAttached reports a second attachment attempt on a source
	// that is already feeding a node. The existing attachment is unaffected.
	ErrAlreadyAttached = errors.New("analysis: source is already attached")

	// ErrUnsupported reports a source that cannot feed an analysis node.
	ErrUnsupported = errors.New("analysis: source does not support analysis")
)

// Tap receives buffers of mono samples in [-1, 1] from a playing source.
// Implementations must be quick and non-blocking; taps run on the audio
// pull path.
type Tap func(samples []float64)

// Tappable is the contract a playable source offers to analysis. SetTap
// installs the one allowed tap and must return ErrAlreadyAttached when a
// tap is already installed.
type Tappable interface {
	SetTap(Tap) error
	ClearTap()
}

// Pre-allocated buffers for one attachment. fill accumulates incoming
// samples until a full FFT frame is available.
type nodeWorkspace struct {
	fill     []float64
	filled   int
	input    []float64
	output   []complex128
	snapshot []byte
	window   []float64
	mu       sync.RWMutex
}

// node computes frequency snapshots from tapped audio. It lives exactly as
// long as its Handle.
type node struct {
	fftSize    int
	sampleRate float64
	fft        *fourier.FFT
	workspace  nodeWorkspace
}

// Handle is an active attachment. Sample and Release are safe to call from
// any goroutine; Release is idempotent.
type Handle struct {
	node     *node
	src      Tappable
	released atomic.Bool
	release  sync.Once
}

// Attach binds src to a new analysis node. fftSize must be a power of two;
// the resulting snapshot length is fftSize/2 + 1.
func Attach(src Tappable, fftSize int, sampleRate float64, windowType WindowFunc) (*Handle, error) {
	if src == nil {
		return nil, ErrUnsupported
	}
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("analysis: fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("analysis: sample rate must be positive, got %f", sampleRate)
	}

	binCount := fftSize/2 + 1
	n := &node{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(fftSize),
		workspace: nodeWorkspace{
			fill:     make([]float64, fftSize),
			input:    make([]float64, fftSize),
			output:   make([]complex128, binCount),
			snapshot: make([]byte, binCount),
			window:   windowCoefficients(fftSize, windowType),
		},
	}

	if err := src.SetTap(n.process); err != nil {
		return nil, err
	}

	log.Debugf("analysis: attached node (size: %d, sample rate: %.1f Hz, bins: %d)",
		fftSize, sampleRate, binCount)

	return &Handle{node: n, src: src}, nil
}

// process accumulates tapped samples and recomputes the snapshot once a
// full FFT frame is available. Runs on the source's pull path.
func (n *node) process(samples []float64) {
	ws := &n.workspace
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for len(samples) > 0 {
		copied := copy(ws.fill[ws.filled:], samples)
		ws.filled += copied
		samples = samples[copied:]

		if ws.filled < n.fftSize {
			return
		}
		n.transformLocked()
		ws.filled = 0
	}
}

// transformLocked windows the filled frame, runs the FFT, and scales the
// magnitudes into the byte snapshot. Caller holds ws.mu.
func (n *node) transformLocked() {
	ws := &n.workspace
	for i := range n.fftSize {
		ws.input[i] = ws.fill[i] * ws.window[i]
	}
	n.fft.Coefficients(ws.output, ws.input)

	// A full-scale sine under a Hann window peaks near fftSize/4, which
	// maps to magnitude 255.
	scale := 4.0 / float64(n.fftSize)
	for i, c := range ws.output {
		v := cmplx.Abs(c) * scale
		if v > 1 {
			v = 1
		}
		ws.snapshot[i] = byte(v * 255)
	}
}

// Sample returns a copy of the most recent frequency snapshot. Before the
// first full frame has been analyzed the snapshot is all zeros; after
// Release it is nil.
func (h *Handle) Sample() []byte {
	if h.released.Load() {
		return nil
	}
	n := h.node
	n.workspace.mu.RLock()
	defer n.workspace.mu.RUnlock()

	snap := make([]byte, len(n.workspace.snapshot))
	copy(snap, n.workspace.snapshot)
	return snap
}

// BinCount returns the fixed snapshot length for this attachment.
func (h *Handle) BinCount() int {
	return h.node.fftSize/2 + 1
}

// FrequencyForBin returns the center frequency (Hz) for a bin index, or 0
// for an index out of range.
func (h *Handle) FrequencyForBin(binIndex int) float64 {
	n := h.node
	if binIndex < 0 || binIndex > n.fftSize/2 {
		return 0
	}
	return float64(binIndex) * (n.sampleRate / float64(n.fftSize))
}

// Release clears the tap on the source, ending the attachment. The source
// can be attached again afterwards. Safe to call more than once.
func (h *Handle) Release() {
	h.release.Do(func() {
		h.released.Store(true)
		if h.src != nil {
			h.src.ClearTap()
		}
		log.Debugf("analysis: handle released")
	})
}
