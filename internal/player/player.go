// SPDX-License-Identifier: MIT
/*
Package player coordinates playback. It owns the loaded media element and
its analysis attachment, advances through the playlist, and keeps the
visualization publisher in step with play/pause so no frames are produced
while paused.

Ownership rule: one element and at most one analysis handle exist at a
time. Loading a track releases the previous attachment and closes the
previous element before the new one is created; the sampler is pointed at
the new handle only after the old one is gone.
*/
package player

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"spectra/internal/analysis"
	"spectra/internal/cache"
	"spectra/internal/library"
	"spectra/internal/log"
	"spectra/internal/media"
	"spectra/internal/playlist"
	"spectra/internal/spectrum"
	"spectra/internal/viz"
)

// ErrNoTrack reports a playback operation with nothing loaded.
var ErrNoTrack = errors.New("player: no track loaded")

// PlaybackState is the read-only snapshot handed to renderers. Times are
// seconds; Volume is linear in [0,1].
type PlaybackState struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Volume      float64 `json:"volume"`
}

// Options configures analysis for each loaded track.
type Options struct {
	FFTSize int
	Window  analysis.WindowFunc
	Volume  float64
}

// Player drives one output through a playlist.
type Player struct {
	out     media.Output
	list    *playlist.Playlist
	sampler *spectrum.Sampler
	store   *cache.Store // may be nil
	fftSize int
	window  analysis.WindowFunc

	// mu guards the element/handle pair and publisher swaps.
	mu        sync.Mutex
	element   *media.Element
	handle    *analysis.Handle
	publisher *viz.Publisher

	// stateMu guards only the state snapshot; event callbacks off the
	// audio path touch nothing else.
	stateMu sync.Mutex
	state   PlaybackState
}

// New creates a Player. store may be nil to disable persistence.
func New(out media.Output, list *playlist.Playlist, sampler *spectrum.Sampler, store *cache.Store, opts Options) *Player {
	vol := opts.Volume
	if vol <= 0 || vol > 1 {
		vol = 1
	}
	return &Player{
		out:     out,
		list:    list,
		sampler: sampler,
		store:   store,
		fftSize: opts.FFTSize,
		window:  opts.Window,
		state:   PlaybackState{Volume: vol},
	}
}

// SetPublisher hands the Player the publisher to start and stop around
// play/pause. Call before the first Play.
func (p *Player) SetPublisher(pub *viz.Publisher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publisher = pub
}

// Load replaces the current element with one decoding track. The new
// track starts paused at the stored volume; analysis is re-attached so
// the snapshot length matches the new element. A decode failure leaves
// the player stopped with nothing loaded.
func (p *Player) Load(track playlist.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unloadLocked()

	ev := &elementEvents{p: p}
	elem, err := media.NewElement(track.Path, p.out.SampleRate(), ev)
	if err != nil {
		p.setState(func(s *PlaybackState) {
			s.IsPlaying = false
			s.CurrentTime = 0
			s.Duration = 0
		})
		return fmt.Errorf("player: load %q: %w", track.Name, err)
	}

	handle, err := analysis.Attach(elem, p.fftSize, float64(p.out.SampleRate()), p.window)
	switch {
	case errors.Is(err, analysis.ErrAlreadyAttached):
		// The existing attachment keeps feeding; playback proceeds.
		log.Debugf("player: analysis already attached for %q", track.Name)
	case err != nil:
		// Playback without bars beats no playback.
		log.Warnf("player: analysis unavailable for %q: %v", track.Name, err)
	default:
		p.handle = handle
		p.sampler.SetSource(handle)
	}

	ev.elem = elem
	elem.SetVolume(p.State().Volume)
	p.element = elem
	p.out.SetSource(elem)

	p.setState(func(s *PlaybackState) {
		s.IsPlaying = false
		s.CurrentTime = 0
		s.Duration = elem.Duration().Seconds()
	})

	if p.store != nil {
		if err := p.store.Put(cache.KeyLastTrack, track.ID); err != nil {
			log.Warnf("player: persist last track: %v", err)
		}
	}

	log.Infof("player: loaded %q (%s)", track.Name, elem.Duration().Round(time.Second))
	return nil
}

// unloadLocked tears down the current element and attachment. Order
// matters: the output is silenced before the element is closed, and the
// sampler is detached before the handle is released.
func (p *Player) unloadLocked() {
	if p.element != nil {
		p.out.SetSource(nil)
	}
	if p.handle != nil {
		p.sampler.SetSource(nil)
		p.handle.Release()
		p.handle = nil
	}
	if p.element != nil {
		if err := p.element.Close(); err != nil {
			log.Warnf("player: close element: %v", err)
		}
		p.element = nil
	}
}

// Play resumes the loaded track and starts the frame publisher.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.element == nil {
		return ErrNoTrack
	}
	if err := p.out.Start(); err != nil {
		return err
	}
	p.element.Play()
	p.setState(func(s *PlaybackState) { s.IsPlaying = true })
	if p.publisher != nil {
		p.publisher.Start()
	}
	return nil
}

// Pause halts playback. The publisher is stopped first and Stop blocks
// until its loop exits, so once Pause returns no further snapshots are
// pulled.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauseLocked()
}

func (p *Player) pauseLocked() {
	if p.publisher != nil {
		p.publisher.Stop()
	}
	if p.element != nil {
		p.element.Pause()
	}
	p.setState(func(s *PlaybackState) { s.IsPlaying = false })
}

// Toggle flips between playing and paused.
func (p *Player) Toggle() error {
	if p.Playing() {
		p.Pause()
		return nil
	}
	return p.Play()
}

// Seek moves playback to the given offset in seconds.
func (p *Player) Seek(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.element == nil {
		return ErrNoTrack
	}
	if err := p.element.Seek(time.Duration(seconds * float64(time.Second))); err != nil {
		return err
	}
	pos := p.element.Position().Seconds()
	p.setState(func(s *PlaybackState) { s.CurrentTime = pos })
	return nil
}

// SetVolume sets the linear volume in [0,1], applies it to the loaded
// element, and persists it.
func (p *Player) SetVolume(v float64) {
	v = math.Min(1, math.Max(0, v))

	p.mu.Lock()
	if p.element != nil {
		p.element.SetVolume(v)
	}
	p.mu.Unlock()

	p.setState(func(s *PlaybackState) { s.Volume = v })

	if p.store != nil {
		if err := p.store.Put(cache.KeyVolume, v); err != nil {
			log.Warnf("player: persist volume: %v", err)
		}
	}
}

// State returns a copy of the current playback state.
func (p *Player) State() PlaybackState {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

// Playing reports whether playback is active. Matches the signature the
// publisher gates on.
func (p *Player) Playing() bool {
	return p.State().IsPlaying
}

func (p *Player) setState(mutate func(*PlaybackState)) {
	p.stateMu.Lock()
	mutate(&p.state)
	p.stateMu.Unlock()
}

// Next loads the playlist's next track, preserving the play/pause state
// across the switch.
func (p *Player) Next() error {
	track, ok := p.list.Next()
	if !ok {
		return ErrNoTrack
	}
	return p.switchTo(track)
}

// Prev loads the playlist's previous track, preserving the play/pause
// state across the switch.
func (p *Player) Prev() error {
	track, ok := p.list.Prev()
	if !ok {
		return ErrNoTrack
	}
	return p.switchTo(track)
}

func (p *Player) switchTo(track playlist.Track) error {
	wasPlaying := p.Playing()
	if wasPlaying {
		p.Pause()
	}
	if err := p.Load(track); err != nil {
		return err
	}
	if wasPlaying {
		return p.Play()
	}
	return nil
}

// advance moves to the next track when the current one drains. Runs on
// its own goroutine, dispatched by the element's ended event. An ended
// event from an element that has already been replaced is ignored.
func (p *Player) advance(from *media.Element) {
	p.mu.Lock()
	current := p.element == from
	p.mu.Unlock()
	if !current {
		return
	}

	track, ok := p.list.Next()
	if !ok {
		log.Infof("player: playlist finished")
		p.Pause()
		return
	}
	if err := p.Load(track); err != nil {
		log.Errorf("player: advance: %v", err)
		p.Pause()
		return
	}
	if err := p.Play(); err != nil {
		log.Errorf("player: advance: %v", err)
	}
}

// SaveSession persists the playlist and the current track so the next run
// can pick up where this one left off. No-op without a store.
func (p *Player) SaveSession() {
	if p.store == nil {
		return
	}
	if err := p.store.Put(cache.KeyPlaylist, p.list.Tracks()); err != nil {
		log.Warnf("player: persist playlist: %v", err)
	}
	if cur, ok := p.list.Current(); ok {
		if err := p.store.Put(cache.KeyLastTrack, cur.ID); err != nil {
			log.Warnf("player: persist last track: %v", err)
		}
	}
}

// RestoreSession loads the persisted volume and, when the playlist is
// still empty, the persisted track list. Missing keys are not errors.
func (p *Player) RestoreSession() {
	if p.store == nil {
		return
	}

	var vol float64
	switch err := p.store.Get(cache.KeyVolume, &vol); {
	case err == nil:
		p.setState(func(s *PlaybackState) { s.Volume = math.Min(1, math.Max(0, vol)) })
	case !errors.Is(err, cache.ErrNotFound):
		log.Warnf("player: restore volume: %v", err)
	}

	if p.list.Len() > 0 {
		return
	}

	var tracks []playlist.Track
	switch err := p.store.Get(cache.KeyPlaylist, &tracks); {
	case err == nil:
		// Persisted tracks re-enter through the broad entry point; files
		// that vanished or changed since the last run are dropped here.
		entry := library.DropZoneDefaults()
		for _, t := range tracks {
			if _, err := entry.Validate(t.Path); err != nil {
				log.Debugf("player: dropping stale track %q: %v", t.Name, err)
				continue
			}
			p.list.Add(t)
		}
	case !errors.Is(err, cache.ErrNotFound):
		log.Warnf("player: restore playlist: %v", err)
		return
	}

	var lastID string
	if err := p.store.Get(cache.KeyLastTrack, &lastID); err == nil {
		for i, t := range p.list.Tracks() {
			if t.ID == lastID {
				p.list.Jump(i)
				break
			}
		}
	}
}

// Close stops playback and releases the element. The output device is
// left to its owner.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauseLocked()
	p.unloadLocked()
}

// elementEvents adapts media events onto the player. Time and duration
// updates run on the audio pull path and only touch the state snapshot;
// the ended event arrives on its own goroutine and may reload.
type elementEvents struct {
	p    *Player
	elem *media.Element
}

func (e *elementEvents) OnTimeUpdate(pos time.Duration) {
	e.p.setState(func(s *PlaybackState) { s.CurrentTime = pos.Seconds() })
}

func (e *elementEvents) OnDurationChange(d time.Duration) {
	e.p.setState(func(s *PlaybackState) { s.Duration = d.Seconds() })
}

func (e *elementEvents) OnEnded() {
	e.p.advance(e.elem)
}

func (e *elementEvents) OnError(err error) {
	log.Errorf("player: stream error: %v", err)
}
