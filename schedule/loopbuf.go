// SPDX-License-Identifier: EPL-2.0

package schedule

import (
	"math"
	"time"

	"github.com/ik5/audsched/audio"
	"github.com/ik5/audsched/backend"
)

// LoopMargin is the headroom kept past a loop end so the end can later move
// back and forth without outgrowing the buffer.
const LoopMargin = 10 * time.Second

// Loop is a loop region measured from the start of the buffer.
type Loop struct {
	Start time.Duration
	End   time.Duration
}

// Markers converts l into backend loop markers. A nil loop disables looping.
func (l *Loop) Markers() backend.Loop {
	if l == nil {
		return backend.Loop{}
	}

	return backend.Loop{
		Enabled: true,
		Start:   l.Start.Seconds(),
		End:     l.End.Seconds(),
	}
}

// PrepareBuffer returns the buffer to play asset with loop.
//
// Without a loop, or when asset already extends LoopMargin past the loop
// end, asset itself is returned. Otherwise the result is a copy of asset
// followed by enough silence to cover the loop end plus LoopMargin.
// The asset is never modified.
func PrepareBuffer(asset *audio.Buffer, loop *Loop) *audio.Buffer {
	if loop == nil || asset.SampleRate <= 0 {
		return asset
	}

	extra := (LoopMargin + loop.End).Seconds() - asset.Duration()
	if extra <= 0 {
		return asset
	}

	frames := asset.Frames() + int(math.Ceil(extra*float64(asset.SampleRate)))
	buf := audio.NewBuffer(asset.NumChannels(), frames, asset.SampleRate)
	for i, ch := range asset.Channels {
		copy(buf.Channels[i], ch)
	}

	return buf
}
