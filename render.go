// SPDX-License-Identifier: EPL-2.0

package audsched

import (
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep"
	"github.com/ik5/audsched/formats/wav"
	"github.com/ik5/audsched/utils"
)

const renderChunk = 4096

// Render pulls d worth of frames at sampleRate out of s and returns them as
// interleaved stereo 16-bit PCM. It stops early if s drains.
func Render(s beep.Streamer, sampleRate int, d time.Duration) ([]int16, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("render: invalid sample rate %d", sampleRate)
	}

	total := beep.SampleRate(sampleRate).N(d)
	pcm := make([]int16, 0, total*2)
	buf := make([][2]float64, renderChunk)

	for total > 0 {
		n, ok := s.Stream(buf[:min(total, len(buf))])
		for _, frame := range buf[:n] {
			pcm = append(pcm, utils.Float64ToInt16(frame[0]), utils.Float64ToInt16(frame[1]))
		}
		total -= n

		if !ok {
			if err := s.Err(); err != nil {
				return pcm, fmt.Errorf("render: %w", err)
			}
			break
		}
	}

	return pcm, nil
}

// RenderWAV renders d of s into w as a 16-bit stereo WAV file.
func RenderWAV(w io.Writer, s beep.Streamer, sampleRate int, d time.Duration) error {
	pcm, err := Render(s, sampleRate, d)
	if err != nil {
		return err
	}

	return wav.WriteWAV16(w, sampleRate, 2, pcm)
}
