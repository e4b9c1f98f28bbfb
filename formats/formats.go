// SPDX-License-Identifier: EPL-2.0

// Package formats wires the bundled decoders into an audio.Registry and
// guesses which one an asset needs.
package formats

import (
	"bytes"
	"path"
	"strings"

	"github.com/ik5/audsched/audio"
	"github.com/ik5/audsched/formats/aiff"
	"github.com/ik5/audsched/formats/mp3"
	"github.com/ik5/audsched/formats/vorbis"
	"github.com/ik5/audsched/formats/wav"
)

// Registry keys for the bundled decoders.
const (
	WAV  = "wav"
	MP3  = "mp3"
	Ogg  = "ogg"
	AIFF = "aiff"
)

var extensions = map[string]string{
	".wav":  WAV,
	".wave": WAV,
	".mp3":  MP3,
	".ogg":  Ogg,
	".oga":  Ogg,
	".aif":  AIFF,
	".aiff": AIFF,
	".aifc": AIFF,
}

// Register installs every bundled decoder into reg.
func Register(reg *audio.Registry) {
	reg.Register(WAV, wav.Decoder{})
	reg.Register(MP3, mp3.Decoder{})
	reg.Register(Ogg, vorbis.Decoder{})
	reg.Register(AIFF, aiff.Decoder{})
}

// NewRegistry returns a registry holding every bundled decoder.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	Register(reg)

	return reg
}

// Detect picks a registry key for an asset. Magic bytes in head win over the
// extension of name, since URLs often lie about their content.
func Detect(name string, head []byte) (string, bool) {
	if f, ok := sniff(head); ok {
		return f, true
	}

	// strip query and fragment before looking at the extension
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	f, ok := extensions[strings.ToLower(path.Ext(name))]

	return f, ok
}

func sniff(head []byte) (string, bool) {
	switch {
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return WAV, true
	case bytes.HasPrefix(head, []byte("OggS")):
		return Ogg, true
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("FORM")) &&
		(bytes.Equal(head[8:12], []byte("AIFF")) || bytes.Equal(head[8:12], []byte("AIFC"))):
		return AIFF, true
	case bytes.HasPrefix(head, []byte("ID3")):
		return MP3, true
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return MP3, true
	}

	return "", false
}
