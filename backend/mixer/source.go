// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"github.com/gopxl/beep"
	"github.com/ik5/audsched/audio"
	"github.com/ik5/audsched/backend"
)

// bufferReader streams frames out of a decoded buffer, honouring loop markers.
type bufferReader struct {
	buf   *audio.Buffer
	pos   int
	loop  bool
	start int
	end   int
}

func (r *bufferReader) setLoop(l backend.Loop) {
	frames := r.buf.Frames()
	r.loop = l.Enabled
	r.start = clamp(int(l.Start*float64(r.buf.SampleRate)), 0, frames)
	r.end = clamp(int(l.End*float64(r.buf.SampleRate)), 0, frames)

	if r.end <= r.start {
		r.start, r.end = 0, frames
	}
}

func (r *bufferReader) seek(seconds float64) {
	r.pos = max(int(seconds*float64(r.buf.SampleRate)), 0)
}

func (r *bufferReader) Stream(samples [][2]float64) (int, bool) {
	frames := r.buf.Frames()
	if frames == 0 {
		return 0, false
	}

	left := r.buf.Channels[0]
	right := left
	if len(r.buf.Channels) > 1 {
		right = r.buf.Channels[1]
	}

	for i := range samples {
		if r.loop && r.pos >= r.end {
			r.pos = r.start
		}
		if r.pos >= frames {
			return i, i > 0
		}

		samples[i][0] = float64(left[r.pos])
		samples[i][1] = float64(right[r.pos])
		r.pos++
	}

	return len(samples), true
}

func (r *bufferReader) Err() error { return nil }

// sourceNode plays a buffer from a scheduled engine frame on. Playback rate
// is applied by a beep resampler sitting between the reader and the node.
type sourceNode struct {
	e      *Engine
	out    *beep.Ctrl
	reader *bufferReader
	rs     *beep.Resampler
	rate   float64

	started bool
	stopped bool
	done    bool
	from    int64
	cur     cursor
}

func newSourceNode(e *Engine, buf *audio.Buffer) *sourceNode {
	reader := &bufferReader{buf: buf}
	reader.setLoop(backend.Loop{})

	s := &sourceNode{
		e:      e,
		reader: reader,
		rate:   1,
	}
	s.rs = beep.ResampleRatio(e.quality, s.ratio(), reader)

	return s
}

// ratio converts the playback rate into source frames per engine frame.
func (s *sourceNode) ratio() float64 {
	bufRate := s.reader.buf.SampleRate
	if bufRate <= 0 {
		bufRate = int(s.e.rate)
	}

	return s.rate * float64(bufRate) / float64(s.e.rate)
}

func (s *sourceNode) setRate(rate float64) {
	s.rate = rate
	if rate > 0 {
		s.rs.SetRatio(s.ratio())
	}
}

func (s *sourceNode) output() **beep.Ctrl  { return &s.out }
func (s *sourceNode) inputs() *beep.Mixer { return nil }

func (s *sourceNode) Stream(samples [][2]float64) (int, bool) {
	at := s.cur.take(s.e, len(samples))
	if s.stopped || s.done {
		return 0, false
	}

	lead := len(samples)
	if s.started {
		lead = int(clamp64(s.from-at, 0, int64(len(samples))))
	}
	clear(samples[:lead])
	if lead == len(samples) {
		return len(samples), true
	}

	rest := samples[lead:]
	if s.rate <= 0 {
		clear(rest)
		return len(samples), true
	}

	n, ok := s.rs.Stream(rest)
	if !ok || n < len(rest) {
		s.done = true
		clear(rest[n:])
		return lead + n, false
	}

	return len(samples), true
}

func (s *sourceNode) Err() error { return nil }

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func clamp64(v, lo, hi int64) int64 {
	return min(max(v, lo), hi)
}
