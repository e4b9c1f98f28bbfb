// SPDX-License-Identifier: EPL-2.0

package schedule

import (
	"time"

	"github.com/ik5/audsched/backend"
	"github.com/ik5/audsched/utils"
)

// Keyframe is a volume to reach at a wall-clock instant.
type Keyframe struct {
	Time   time.Time
	Volume float64
}

// Timeline is a piecewise-linear volume curve, keyframes in ascending time.
type Timeline []Keyframe

// BuildEnvelope creates a gain node following tl from the clock's instant on.
//
// Segments that ended before the snapshot collapse into an immediate set of
// their end volume. A segment in progress restarts from its interpolated
// volume and ramps on to its end. Later segments are scheduled as ramps.
// An empty timeline yields a node at unity gain.
func BuildEnvelope(be backend.Backend, clk Clock, tl Timeline) backend.NodeID {
	gain := be.CreateGain()
	if len(tl) == 0 {
		return gain
	}

	now := clk.Now()
	be.SetGain(gain, tl[0].Volume)

	for i := 1; i < len(tl); i++ {
		prev, next := tl[i-1], tl[i]
		prevTime := clk.EngineTime(prev.Time)
		nextTime := clk.EngineTime(next.Time)

		switch {
		case nextTime > now && now >= prevTime:
			be.SetGain(gain, utils.Lerp(prevTime, prev.Volume, nextTime, next.Volume, now))
			be.RampGain(gain, next.Volume, nextTime)
		case nextTime > now:
			be.RampGain(gain, next.Volume, nextTime)
		default:
			be.SetGain(gain, next.Volume)
		}
	}

	return gain
}

// BuildEnvelopes builds one envelope node per timeline, in order.
func BuildEnvelopes(be backend.Backend, clk Clock, tls []Timeline) []backend.NodeID {
	nodes := make([]backend.NodeID, 0, len(tls))
	for _, tl := range tls {
		nodes = append(nodes, BuildEnvelope(be, clk, tl))
	}

	return nodes
}
