// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// maxEmptyReads bounds how many (0, nil) reads ReadAll tolerates in a row.
const maxEmptyReads = 64

// Buffer is a fully decoded clip kept in memory, one slice per channel.
// Once handed to the playback engine it must not be modified.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewBuffer allocates a silent buffer of the given shape.
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	b := &Buffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, channels),
	}
	for i := range b.Channels {
		b.Channels[i] = make([]float32, frames)
	}

	return b
}

func (b *Buffer) NumChannels() int { return len(b.Channels) }

// Frames is the number of samples per channel.
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}

	return len(b.Channels[0])
}

// Duration is the length of the buffer in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}

	return float64(b.Frames()) / float64(b.SampleRate)
}

// ReadAll drains src into a new Buffer, de-interleaving its channels.
// Samples of a frame split across reads are joined; a partial frame left
// at EOF is dropped.
func ReadAll(src Source) (*Buffer, error) {
	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrNoChannels
	}

	size := max(src.BufSize(), 4096)
	size -= size % channels
	chunk := make([]float32, size)

	buf := &Buffer{
		SampleRate: src.SampleRate(),
		Channels:   make([][]float32, channels),
	}

	// carry holds a partial frame until the rest of it arrives
	var carry []float32
	empty := 0
	for {
		n, err := src.ReadSamples(chunk)

		samples := chunk[:n]
		if len(carry) > 0 {
			carry = append(carry, samples...)
			samples = carry
		}

		frames := len(samples) / channels
		for f := range frames {
			for c := range channels {
				buf.Channels[c] = append(buf.Channels[c], samples[f*channels+c])
			}
		}
		carry = append(carry[:0], samples[frames*channels:]...)

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading samples: %w", err)
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return nil, ErrStalled
			}
			continue
		}
		empty = 0
	}

	return buf, nil
}
