// SPDX-License-Identifier: MIT
// Package playlist holds the ordered track list and the current-track
// pointer. It is a plain state container: nothing here touches audio, and
// the sampler never mutates it.
package playlist

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Track is one playable entry. The path is the playable reference; the
// decoding layer opens it when the track becomes current. Duration, Size
// and ContentType are filled in when known (probing, validation) and stay
// zero otherwise.
type Track struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Path        string        `json:"path"`
	ContentType string        `json:"content_type,omitempty"`
	Size        int64         `json:"size,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// RepeatMode controls what Next does at the end of the list.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// Playlist is an ordered track sequence with a current-index pointer.
// Insertion order is preserved; shuffle only affects navigation order, not
// the stored sequence. Safe for concurrent use.
type Playlist struct {
	mu      sync.Mutex
	tracks  []Track
	current int // -1 when empty or nothing selected
	repeat  RepeatMode
	shuffle bool
	order   []int // navigation order when shuffling
	rng     *rand.Rand
}

// New returns an empty playlist.
func New() *Playlist {
	return &Playlist{
		current: -1,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Add appends a track and returns its index. The first added track becomes
// current.
func (p *Playlist) Add(t Track) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracks = append(p.tracks, t)
	if p.current < 0 {
		p.current = 0
	}
	p.reshuffleLocked()
	return len(p.tracks) - 1
}

// Remove deletes the track at index. Removing the current track moves the
// pointer to the next track (or the new last one).
func (p *Playlist) Remove(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.tracks) {
		return fmt.Errorf("playlist: index %d out of range [0,%d)", index, len(p.tracks))
	}

	p.tracks = append(p.tracks[:index], p.tracks[index+1:]...)
	switch {
	case len(p.tracks) == 0:
		p.current = -1
	case index < p.current:
		p.current--
	case p.current >= len(p.tracks):
		p.current = len(p.tracks) - 1
	}
	p.reshuffleLocked()
	return nil
}

// Move reorders a track from one index to another.
func (p *Playlist) Move(from, to int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if from < 0 || from >= len(p.tracks) || to < 0 || to >= len(p.tracks) {
		return fmt.Errorf("playlist: move %d -> %d out of range [0,%d)", from, to, len(p.tracks))
	}
	if from == to {
		return nil
	}

	moved := p.tracks[from]
	rest := append(p.tracks[:from:from], p.tracks[from+1:]...)
	p.tracks = append(rest[:to:to], append([]Track{moved}, rest[to:]...)...)

	// Keep the pointer on the same track it was on.
	switch {
	case p.current == from:
		p.current = to
	case from < p.current && to >= p.current:
		p.current--
	case from > p.current && to <= p.current:
		p.current++
	}
	p.reshuffleLocked()
	return nil
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tracks)
}

// Tracks returns a copy of the track sequence in insertion order.
func (p *Playlist) Tracks() []Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Track, len(p.tracks))
	copy(out, p.tracks)
	return out
}

// Current returns the current track, if any.
func (p *Playlist) Current() (Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < 0 {
		return Track{}, false
	}
	return p.tracks[p.current], true
}

// CurrentIndex returns the current pointer, -1 when nothing is selected.
func (p *Playlist) CurrentIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Jump moves the pointer to index and returns that track.
func (p *Playlist) Jump(index int) (Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.tracks) {
		return Track{}, fmt.Errorf("playlist: index %d out of range [0,%d)", index, len(p.tracks))
	}
	p.current = index
	return p.tracks[index], nil
}

// Next advances the pointer and returns the new current track. Returns
// false when the end of the list is reached without repeat. RepeatOne
// stays on the current track.
func (p *Playlist) Next() (Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stepLocked(1)
}

// Prev moves the pointer backwards, wrapping only under RepeatAll.
func (p *Playlist) Prev() (Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stepLocked(-1)
}

func (p *Playlist) stepLocked(dir int) (Track, bool) {
	if p.current < 0 {
		return Track{}, false
	}
	if p.repeat == RepeatOne {
		return p.tracks[p.current], true
	}

	pos := p.current
	if p.shuffle {
		pos = p.orderPosLocked(p.current)
	}

	pos += dir
	switch {
	case pos >= len(p.tracks):
		if p.repeat != RepeatAll {
			return Track{}, false
		}
		pos = 0
	case pos < 0:
		if p.repeat != RepeatAll {
			return Track{}, false
		}
		pos = len(p.tracks) - 1
	}

	if p.shuffle {
		p.current = p.order[pos]
	} else {
		p.current = pos
	}
	return p.tracks[p.current], true
}

// SetRepeat sets the repeat mode.
func (p *Playlist) SetRepeat(mode RepeatMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = mode
}

// Repeat returns the repeat mode.
func (p *Playlist) Repeat() RepeatMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.repeat
}

// SetShuffle enables or disables shuffled navigation. Enabling draws a
// fresh order.
func (p *Playlist) SetShuffle(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shuffle = on
	p.reshuffleLocked()
}

// Shuffle reports whether shuffled navigation is on.
func (p *Playlist) Shuffle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shuffle
}

// Clear removes all tracks.
func (p *Playlist) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = nil
	p.order = nil
	p.current = -1
}

// reshuffleLocked redraws the navigation order after any mutation or
// shuffle toggle. Caller holds p.mu.
func (p *Playlist) reshuffleLocked() {
	if !p.shuffle {
		p.order = nil
		return
	}
	p.order = p.rng.Perm(len(p.tracks))
}

// orderPosLocked finds the position of a track index within the shuffled
// order. Caller holds p.mu.
func (p *Playlist) orderPosLocked(index int) int {
	for pos, idx := range p.order {
		if idx == index {
			return pos
		}
	}
	return 0
}
