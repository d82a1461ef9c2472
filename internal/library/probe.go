// SPDX-License-Identifier: MIT
package library

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"spectra/internal/playlist"
)

// ProbeWAV reads a WAV file's header and fills in the track's duration.
// Non-WAV tracks are left untouched; their duration becomes known once the
// decoding layer opens them. Probe failures are not fatal to the track.
func ProbeWAV(track *playlist.Track) error {
	if track.ContentType != "audio/wav" {
		return nil
	}

	f, err := os.Open(track.Path)
	if err != nil {
		return fmt.Errorf("library: open %s: %w", track.Path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return fmt.Errorf("library: %s is not a valid WAV file", track.Path)
	}

	duration, err := decoder.Duration()
	if err != nil {
		return fmt.Errorf("library: read duration of %s: %w", track.Path, err)
	}
	track.Duration = duration
	return nil
}
