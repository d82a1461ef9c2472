// SPDX-License-Identifier: MIT
/*
Package viz drives the per-frame visualization loop: while playback is
active, each tick pulls one reduced spectrum frame from the sampler and
hands it to a transport.

The loop is cooperative and lossy. There is no buffering between ticks; a
tick that finds playback inactive produces nothing, and a missed tick means
that period simply went unrecorded. Stop is synchronous: once it returns,
no further sample is pulled, so a released analysis handle can never be
observed by a stale tick.
*/
package viz

import (
	"sync"
	"time"

	"spectra/internal/log"
	"spectra/internal/spectrum"
	"spectra/internal/transport"
)

// DefaultInterval is roughly a display refresh at 60Hz.
const DefaultInterval = 16 * time.Millisecond

// Layout selects the reduced representation carried in each frame.
type Layout int

const (
	LayoutBars Layout = iota
	LayoutRadial
)

// Publisher owns the frame loop. Start and Stop bracket one playback span;
// both are safe to call repeatedly and from any goroutine.
type Publisher struct {
	sampler   *spectrum.Sampler
	transport transport.Transport
	interval  time.Duration
	layout    Layout

	// playing gates each tick; a pause between ticks is observed before
	// the next pull.
	playing func() bool

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32
}

// NewPublisher wires a sampler to a transport. A nil transport falls back
// to the logging transport; a non-positive interval falls back to
// DefaultInterval. playing may be nil, in which case every tick samples.
func NewPublisher(sampler *spectrum.Sampler, tr transport.Transport, interval time.Duration, layout Layout, playing func() bool) *Publisher {
	if tr == nil {
		tr = transport.NewLoggingTransport()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Publisher{
		sampler:   sampler,
		transport: tr,
		interval:  interval,
		layout:    layout,
		playing:   playing,
	}
}

// Start arms the frame loop. A no-op when already running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("viz: frame loop started (interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishFrame()
			case <-doneChan:
				log.Debugf("viz: frame loop stopped")
				return
			}
		}
	}()
}

// Stop disarms the frame loop and waits for the loop goroutine to exit.
// After Stop returns, the sampler's source sees no further Sample calls.
// A no-op when not running.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
}

// Running reports whether the frame loop is armed.
func (p *Publisher) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticker != nil
}

// publishFrame performs one tick: one sampler pull, one transport send.
// Transport errors are logged and dropped; visualization must never feed
// failures back into playback.
func (p *Publisher) publishFrame() {
	if p.playing != nil && !p.playing() {
		return
	}

	res := p.sampler.Sample()
	p.sequenceNum++
	frame := transport.Frame{
		Seq:       p.sequenceNum,
		Timestamp: time.Now().UnixNano(),
		Bars:      res.Bars,
		Level:     res.Level,
		Bass:      res.Bass,
		Treble:    res.Treble,
	}
	if p.layout == LayoutRadial {
		frame.Points = spectrum.Project(res.Bars)
	}

	if err := p.transport.Send(frame); err != nil {
		log.Errorf("viz: frame send failed: %v", err)
	}
}

// Close stops the loop and closes the transport.
func (p *Publisher) Close() error {
	p.Stop()
	return p.transport.Close()
}
