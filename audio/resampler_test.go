// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/audsched/audio"
	"github.com/ik5/audsched/internal/audiotest"
)

func drain(t *testing.T, src audio.Source, chunk int) []float32 {
	t.Helper()

	buf := make([]float32, chunk)
	var out []float32
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestResampler_Metadata(t *testing.T) {
	t.Parallel()

	r := audio.NewResampler(audiotest.NewSilentSource(44100, 2, 1000), 8000)

	if r.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", r.SampleRate())
	}
	if r.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", r.Channels())
	}
}

func TestResampler_InvalidDstSize(t *testing.T) {
	t.Parallel()

	r := audio.NewResampler(audiotest.NewSilentSource(8000, 2, 100), 16000)

	if _, err := r.ReadSamples(make([]float32, 3)); !errors.Is(err, audio.ErrInvalidDstSize) {
		t.Errorf("ReadSamples() error = %v, want ErrInvalidDstSize", err)
	}
}

func TestResampler_OutputLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to int
		frames   int
		want     int
	}{
		{name: "downsample 44.1k to 8k", from: 44100, to: 8000, frames: 44100, want: 8000},
		{name: "downsample 48k to 16k", from: 48000, to: 16000, frames: 48000, want: 16000},
		{name: "upsample 22.05k to 44.1k", from: 22050, to: 44100, frames: 22050, want: 44100},
		{name: "same rate", from: 8000, to: 8000, frames: 8000, want: 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := audio.NewResampler(audiotest.NewSineSource(tt.from, 1, tt.frames, 220), tt.to)
			got := len(drain(t, r, 1024))

			if math.Abs(float64(got-tt.want)) > 2 {
				t.Errorf("resampled length = %d, want about %d", got, tt.want)
			}
		})
	}
}

func TestResampler_PreservesConstant(t *testing.T) {
	t.Parallel()

	for _, to := range []int{8000, 16000, 48000} {
		r := audio.NewResampler(audiotest.NewConstantSource(16000, 2, 4000, 0.5), to)

		for i, v := range drain(t, r, 512) {
			if math.Abs(float64(v-0.5)) > 1e-4 {
				t.Fatalf("rate %d: sample %d = %v, want 0.5", to, i, v)
			}
		}
	}
}

func TestResampler_KeepsLastFrame(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 2, 10, func(i, ch int) float32 {
		return float32(i + 100*ch)
	})
	got := drain(t, audio.NewResampler(src, 8000), 6)

	if len(got) != 20 {
		t.Fatalf("resampled length = %d samples, want 20", len(got))
	}
	for i := range 10 {
		if got[2*i] != float32(i) || got[2*i+1] != float32(i+100) {
			t.Errorf("frame %d = (%v, %v), want (%d, %d)", i, got[2*i], got[2*i+1], i, i+100)
		}
	}
}

func TestResampler_Empty(t *testing.T) {
	t.Parallel()

	r := audio.NewResampler(audiotest.NewSilentSource(8000, 1, 0), 16000)

	n, err := r.ReadSamples(make([]float32, 16))
	if n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() = %d, %v; want 0, io.EOF", n, err)
	}
}

func TestResampler_Close(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(8000, 1, 10)
	if err := audio.NewResampler(src, 16000).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !src.Closed {
		t.Error("Close() did not close the wrapped source")
	}
}
