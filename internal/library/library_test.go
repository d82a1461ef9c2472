// SPDX-License-Identifier: MIT
package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"spectra/internal/playlist"
)

func writeTempFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// writeTestWAV writes a one-second mono WAV at the given sample rate.
func writeTestWAV(t *testing.T, sampleRate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:   make([]int, sampleRate),
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write wav data: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close encoder: %v", err)
	}
	return path
}

func TestContentTypeForPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want string
	}{
		{"song.mp3", "audio/mpeg"},
		{"SONG.MP3", "audio/mpeg"},
		{"a.wav", "audio/wav"},
		{"a.ogg", "audio/ogg"},
		{"a.oga", "audio/ogg"},
		{"a.aac", "audio/aac"},
		{"a.flac", "audio/flac"},
		{"a.m4a", "audio/mp4"},
		{"a.txt", ""},
		{"noext", ""},
	}
	for _, tt := range tests {
		if got := ContentTypeForPath(tt.path); got != tt.want {
			t.Errorf("ContentTypeForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestEntryPointsDisagreeByDesign(t *testing.T) {
	t.Parallel()
	picker := PickerDefaults()
	drop := DropZoneDefaults()

	// The picker narrows to mp3/wav/m4a; the drop zone takes flac/ogg/aac
	// but not m4a. Each entry point keeps its own list.
	if picker.Accepts("audio/flac") {
		t.Error("picker should not accept flac")
	}
	if !picker.Accepts("audio/mp4") {
		t.Error("picker should accept m4a")
	}
	if !drop.Accepts("audio/flac") {
		t.Error("drop zone should accept flac")
	}
	if drop.Accepts("audio/mp4") {
		t.Error("drop zone should not accept m4a")
	}
	if picker.MaxBytes == drop.MaxBytes {
		t.Error("entry points carry independent size limits")
	}
}

func TestValidateAcceptedFile(t *testing.T) {
	t.Parallel()
	path := writeTempFile(t, "song.mp3", 1024)

	track, err := DropZoneDefaults().Validate(path)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if track.Name != "song" {
		t.Errorf("Name = %q, want %q", track.Name, "song")
	}
	if track.ContentType != "audio/mpeg" {
		t.Errorf("ContentType = %q, want audio/mpeg", track.ContentType)
	}
	if track.Size != 1024 {
		t.Errorf("Size = %d, want 1024", track.Size)
	}
	if track.ID == "" {
		t.Error("track should get an identifier")
	}
}

func TestValidateRejectsType(t *testing.T) {
	t.Parallel()
	path := writeTempFile(t, "notes.txt", 10)
	if _, err := DropZoneDefaults().Validate(path); !errors.Is(err, ErrInvalidType) {
		t.Errorf("got %v, want ErrInvalidType", err)
	}

	// flac is fine for the drop zone but not the picker.
	flac := writeTempFile(t, "song.flac", 10)
	if _, err := PickerDefaults().Validate(flac); !errors.Is(err, ErrInvalidType) {
		t.Errorf("picker: got %v, want ErrInvalidType", err)
	}
	if _, err := DropZoneDefaults().Validate(flac); err != nil {
		t.Errorf("drop zone: unexpected error %v", err)
	}
}

func TestValidateRejectsOversize(t *testing.T) {
	t.Parallel()
	path := writeTempFile(t, "big.mp3", 2048)
	ep := EntryPoint{Name: "tiny", AcceptedTypes: []string{"audio/mpeg"}, MaxBytes: 1024}
	if _, err := ep.Validate(path); !errors.Is(err, ErrTooLarge) {
		t.Errorf("got %v, want ErrTooLarge", err)
	}
}

func TestValidateMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := DropZoneDefaults().Validate("/does/not/exist.mp3"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestProbeWAVDuration(t *testing.T) {
	t.Parallel()
	path := writeTestWAV(t, 8000)

	track, err := DropZoneDefaults().Validate(path)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if err := ProbeWAV(&track); err != nil {
		t.Fatalf("ProbeWAV failed: %v", err)
	}

	if track.Duration < 900*time.Millisecond || track.Duration > 1100*time.Millisecond {
		t.Errorf("Duration = %v, want ~1s", track.Duration)
	}
}

func TestProbeWAVSkipsOtherTypes(t *testing.T) {
	t.Parallel()
	track := playlist.Track{Path: "/nope.mp3", ContentType: "audio/mpeg"}
	if err := ProbeWAV(&track); err != nil {
		t.Errorf("non-WAV probe should be a no-op, got %v", err)
	}
	if track.Duration != 0 {
		t.Errorf("Duration = %v, want 0", track.Duration)
	}
}

func TestProbeWAVInvalidFile(t *testing.T) {
	t.Parallel()
	path := writeTempFile(t, "fake.wav", 64)
	track := playlist.Track{Path: path, ContentType: "audio/wav"}
	if err := ProbeWAV(&track); err == nil {
		t.Error("expected error for invalid WAV payload")
	}
}
