// SPDX-License-Identifier: MIT
/*
Package library admits local files into the playlist. Validation happens
before any playback attempt, per entry point: each way of adding files (CLI
arguments, a picker dialog, a drop zone) carries its own accepted content
types and size limit. There is deliberately no single global default; the
entry points disagree on purpose and each integration configures its own.
*/
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"spectra/internal/playlist"
)

var (
	// ErrInvalidType reports a file whose declared content type the entry
	// point does not accept.
	ErrInvalidType = errors.New("library: content type not accepted")

	// ErrTooLarge reports a file over the entry point's size limit.
	ErrTooLarge = errors.New("library: file exceeds size limit")
)

// EntryPoint is one way of adding files, with its own acceptance rules.
type EntryPoint struct {
	Name          string
	AcceptedTypes []string
	MaxBytes      int64
}

// PickerDefaults returns the narrow picker-dialog rules: mp3/wav/m4a, 50MB.
func PickerDefaults() EntryPoint {
	return EntryPoint{
		Name:          "picker",
		AcceptedTypes: []string{"audio/mpeg", "audio/mp3", "audio/wav", "audio/mp4"},
		MaxBytes:      50 << 20,
	}
}

// DropZoneDefaults returns the wide drop-zone rules: the full audio type
// list, 100MB.
func DropZoneDefaults() EntryPoint {
	return EntryPoint{
		Name: "drop",
		AcceptedTypes: []string{
			"audio/mpeg", "audio/mp3", "audio/wav",
			"audio/ogg", "audio/aac", "audio/flac",
		},
		MaxBytes: 100 << 20,
	}
}

// ContentTypeForPath maps a file extension to its declared audio content
// type. Unknown extensions return "".
func ContentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".aac":
		return "audio/aac"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".mp4":
		return "audio/mp4"
	default:
		return ""
	}
}

// Accepts reports whether the entry point admits the given content type.
func (e EntryPoint) Accepts(contentType string) bool {
	for _, t := range e.AcceptedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// Validate checks a local file against the entry point's rules and, on
// success, returns a Track ready for the playlist. All failures surface
// before any playback attempt.
func (e EntryPoint) Validate(path string) (playlist.Track, error) {
	info, err := os.Stat(path)
	if err != nil {
		return playlist.Track{}, fmt.Errorf("library: stat %s: %w", path, err)
	}

	contentType := ContentTypeForPath(path)
	if !e.Accepts(contentType) {
		return playlist.Track{}, fmt.Errorf("%w: %q declares %q (entry point %s accepts %v)",
			ErrInvalidType, filepath.Base(path), contentType, e.Name, e.AcceptedTypes)
	}

	if e.MaxBytes > 0 && info.Size() > e.MaxBytes {
		return playlist.Track{}, fmt.Errorf("%w: %q is %d bytes (entry point %s allows %d)",
			ErrTooLarge, filepath.Base(path), info.Size(), e.Name, e.MaxBytes)
	}

	return playlist.Track{
		ID:          uuid.NewString(),
		Name:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:        path,
		ContentType: contentType,
		Size:        info.Size(),
	}, nil
}
