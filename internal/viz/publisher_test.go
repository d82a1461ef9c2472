// SPDX-License-Identifier: MIT
package viz

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"spectra/internal/spectrum"
	"spectra/internal/transport"
)

// countingSource counts Sample pulls so tests can assert when sampling
// stopped.
type countingSource struct {
	calls atomic.Int64
}

func (c *countingSource) Sample() []byte {
	c.calls.Add(1)
	return []byte{255, 128, 64, 0}
}

// captureTransport records every frame it is handed.
type captureTransport struct {
	mu     sync.Mutex
	frames []transport.Frame
}

func (c *captureTransport) Send(frame transport.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *captureTransport) Close() error { return nil }

func (c *captureTransport) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPublisherProducesFrames(t *testing.T) {
	t.Parallel()
	src := &countingSource{}
	tr := &captureTransport{}
	p := NewPublisher(spectrum.NewSampler(src, 4, 0), tr, time.Millisecond, LayoutBars, nil)

	p.Start()
	waitFor(t, time.Second, func() bool { return tr.count() >= 3 })
	p.Stop()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	var lastSeq uint32
	for _, f := range tr.frames {
		if f.Seq <= lastSeq {
			t.Errorf("sequence not strictly increasing: %d after %d", f.Seq, lastSeq)
		}
		lastSeq = f.Seq
		if len(f.Bars) != 4 {
			t.Errorf("frame carries %d bars, want 4", len(f.Bars))
		}
		if f.Points != nil {
			t.Errorf("bars layout should not carry radial points")
		}
	}
}

func TestPublisherRadialLayout(t *testing.T) {
	t.Parallel()
	src := &countingSource{}
	tr := &captureTransport{}
	p := NewPublisher(spectrum.NewSampler(src, 4, 0), tr, time.Millisecond, LayoutRadial, nil)

	p.Start()
	waitFor(t, time.Second, func() bool { return tr.count() >= 1 })
	p.Stop()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.frames[0].Points) != 4 {
		t.Errorf("radial frame carries %d points, want 4", len(tr.frames[0].Points))
	}
}

func TestPublisherStopIsSynchronous(t *testing.T) {
	t.Parallel()
	src := &countingSource{}
	p := NewPublisher(spectrum.NewSampler(src, 4, 0), &captureTransport{}, time.Millisecond, LayoutBars, nil)

	p.Start()
	waitFor(t, time.Second, func() bool { return src.calls.Load() >= 3 })
	p.Stop()

	// Once Stop has returned, zero further pulls may happen.
	after := src.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if got := src.calls.Load(); got != after {
		t.Errorf("source pulled %d times after Stop returned", got-after)
	}
}

func TestPublisherGatedOnPlaying(t *testing.T) {
	t.Parallel()
	src := &countingSource{}
	var playing atomic.Bool
	p := NewPublisher(spectrum.NewSampler(src, 4, 0), &captureTransport{}, time.Millisecond,
		LayoutBars, playing.Load)

	p.Start()
	time.Sleep(20 * time.Millisecond)
	if got := src.calls.Load(); got != 0 {
		t.Errorf("source pulled %d times while not playing", got)
	}

	playing.Store(true)
	waitFor(t, time.Second, func() bool { return src.calls.Load() > 0 })

	// Observing the pause stops sampling even with the loop still armed.
	playing.Store(false)
	time.Sleep(5 * time.Millisecond)
	after := src.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if got := src.calls.Load(); got != after {
		t.Errorf("source pulled %d times after pause observed", got-after)
	}
	p.Stop()
}

func TestPublisherStartStopIdempotent(t *testing.T) {
	t.Parallel()
	p := NewPublisher(spectrum.NewSampler(&countingSource{}, 4, 0), &captureTransport{},
		time.Millisecond, LayoutBars, nil)

	p.Stop() // never started
	p.Start()
	p.Start() // already running
	if !p.Running() {
		t.Error("publisher should report running after Start")
	}
	p.Stop()
	p.Stop()
	if p.Running() {
		t.Error("publisher should report stopped after Stop")
	}
}
