// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/audsched/utils"
)

// Resampler converts src to another sample rate using cubic interpolation.
// It works on interleaved samples and preserves the channel count. When
// downsampling a one-pole low-pass runs over the input first.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// hist holds frames t-1, t0, t+1 and t+2 around the read position.
	hist [4][]float32
	have [4]bool
	pos  float64

	primed bool
	eof    bool
	frame  []float32

	lowpass bool
	alpha   float32
	state   []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		ratio:    ratio,
		channels: channels,
		frame:    make([]float32, channels),
		lowpass:  ratio > 1,
		alpha:    0.5,
		state:    make([]float32, channels),
	}
	for i := range r.hist {
		r.hist[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("resampler: %w", err)
	}

	return nil
}

// pull reads the next source frame into hist[slot].
func (r *Resampler) pull(slot int) error {
	r.have[slot] = false

	for tries := 0; !r.eof && tries < maxEmptyReads; tries++ {
		n, err := r.src.ReadSamples(r.frame)
		if n >= r.channels {
			copy(r.hist[slot], r.frame)
			if r.lowpass {
				if !r.primed && slot == 1 {
					copy(r.state, r.frame)
				}
				for c := range r.channels {
					r.state[c] = r.alpha*r.hist[slot][c] + (1-r.alpha)*r.state[c]
					r.hist[slot][c] = r.state[c]
				}
			}
			r.have[slot] = true
		}

		if err == io.EOF {
			r.eof = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("resampler: %w", err)
		}
		if n > 0 {
			return nil
		}
	}

	if !r.eof {
		return ErrStalled
	}

	return nil
}

func (r *Resampler) advance() error {
	r.hist[0], r.hist[1], r.hist[2], r.hist[3] = r.hist[1], r.hist[2], r.hist[3], r.hist[0]
	r.have[0], r.have[1], r.have[2] = r.have[1], r.have[2], r.have[3]

	return r.pull(3)
}

func (r *Resampler) prime() error {
	for slot := 1; slot < 4; slot++ {
		if err := r.pull(slot); err != nil {
			return err
		}
	}
	r.primed = true

	return nil
}

// ReadSamples produces interleaved samples at the destination rate.
// len(dst) must be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < len(dst) {
		for r.pos >= 1 {
			r.pos--
			if err := r.advance(); err != nil {
				return written, err
			}
		}

		if !r.have[1] {
			break
		}

		// past the last source frame the edge frames are held
		y1 := r.hist[1]
		y0 := y1
		if r.have[0] {
			y0 = r.hist[0]
		}
		y2 := y1
		if r.have[2] {
			y2 = r.hist[2]
		}
		y3 := y2
		if r.have[3] {
			y3 = r.hist[3]
		}

		x := float32(r.pos)
		for c := range r.channels {
			dst[written+c] = utils.CubicInterpolate(y0[c], y1[c], y2[c], y3[c], x)
		}

		written += r.channels
		r.pos += r.ratio
	}

	if !r.have[1] {
		return written, io.EOF
	}

	return written, nil
}
