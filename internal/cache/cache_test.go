// SPDX-License-Identifier: MIT
package cache

import (
	"errors"
	"testing"

	"spectra/internal/playlist"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put(KeyVolume, 0.75); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var vol float64
	if err := s.Get(KeyVolume, &vol); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if vol != 0.75 {
		t.Errorf("volume = %v, want 0.75", vol)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)
	var out string
	if err := s.Get("player_nope", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := openTestStore(t)
	s.Put(KeyVolume, 0.2)
	s.Put(KeyVolume, 0.9)

	var vol float64
	if err := s.Get(KeyVolume, &vol); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if vol != 0.9 {
		t.Errorf("volume = %v, want 0.9", vol)
	}
}

func TestPlaylistBlob(t *testing.T) {
	s := openTestStore(t)
	in := []playlist.Track{
		{ID: "1", Name: "one", Path: "/music/one.mp3", ContentType: "audio/mpeg"},
		{ID: "2", Name: "two", Path: "/music/two.flac", ContentType: "audio/flac", Size: 9000},
	}
	if err := s.Put(KeyPlaylist, in); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var out []playlist.Track
	if err := s.Get(KeyPlaylist, &out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(out) != 2 || out[0].Name != "one" || out[1].Size != 9000 {
		t.Errorf("playlist round trip mismatch: %+v", out)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	s.Put(KeyLastTrack, "id-1")
	if err := s.Delete(KeyLastTrack); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	var out string
	if err := s.Get(KeyLastTrack, &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v after delete, want ErrNotFound", err)
	}
	if err := s.Delete("player_missing"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestClearPrefix(t *testing.T) {
	s := openTestStore(t)
	s.Put("audio_a", 1)
	s.Put("audio_b", 2)
	s.Put("player_volume", 0.5)

	n, err := s.ClearPrefix(PrefixAudio)
	if err != nil {
		t.Fatalf("ClearPrefix failed: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared %d keys, want 2", n)
	}

	var out int
	if err := s.Get("audio_a", &out); !errors.Is(err, ErrNotFound) {
		t.Error("audio_a should be gone")
	}
	var vol float64
	if err := s.Get("player_volume", &vol); err != nil {
		t.Errorf("player_volume should survive an audio_ clear: %v", err)
	}
}

func TestKeys(t *testing.T) {
	s := openTestStore(t)
	s.Put("player_b", 1)
	s.Put("player_a", 1)
	s.Put("audio_x", 1)

	keys, err := s.Keys(PrefixPlayer)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "player_a" || keys[1] != "player_b" {
		t.Errorf("Keys = %v, want [player_a player_b]", keys)
	}
}

func TestLikeEscape(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"audio_", `audio\_`},
		{"plain", "plain"},
		{"100%", `100\%`},
		{`a\b`, `a\\b`},
	}
	for _, tt := range tests {
		if got := likeEscape(tt.in); got != tt.want {
			t.Errorf("likeEscape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
