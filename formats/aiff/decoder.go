// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes big-endian PCM AIFF files via github.com/go-audio/aiff.
package aiff

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audsched/audio"
)

// aiffReader is the part of aiff.Decoder the source needs, split out for tests.
type aiffReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type source struct {
	dec        aiffReader
	sampleRate int
	channels   int
	scale      float32
	ints       *goaudio.IntBuffer
	done       bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.ints.Data) }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.done {
		return 0, io.EOF
	}

	if cap(s.ints.Data) < len(dst) {
		s.ints.Data = make([]int, len(dst))
	}
	s.ints.Data = s.ints.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.ints)
	for i, v := range s.ints.Data[:n] {
		dst[i] = float32(v) / s.scale
	}

	switch {
	case err == io.EOF || (err == nil && n < len(dst)):
		s.done = true
		return n, io.EOF
	case err != nil:
		return n, fmt.Errorf("aiff: %w", err)
	}

	return n, nil
}

func scaleFor(bitDepth int) (float32, bool) {
	switch bitDepth {
	case 8:
		return 128, true
	case 16:
		return 32768, true
	case 24:
		return 8388608, true
	case 32:
		return 2147483648, true
	}

	return 0, false
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	// go-audio/aiff needs to seek between chunks
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading aiff data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	format := dec.Format()
	if format == nil || format.NumChannels <= 0 {
		return nil, ErrUnsupportedAiffLayout
	}

	scale, ok := scaleFor(int(dec.BitDepth))
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, dec.BitDepth)
	}

	return &source{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      scale,
		ints: &goaudio.IntBuffer{
			Data:   make([]int, 4096),
			Format: format,
		},
	}, nil
}
