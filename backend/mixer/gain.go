// SPDX-License-Identifier: EPL-2.0

package mixer

import "github.com/gopxl/beep"

// gainNode sums its inputs and scales them by an automated gain.
type gainNode struct {
	e    *Engine
	out  *beep.Ctrl
	in   *beep.Mixer
	gain param
	cur  cursor
}

func newGainNode(e *Engine) *gainNode {
	return &gainNode{
		e:    e,
		in:   &beep.Mixer{},
		gain: newParam(1, e.now()),
	}
}

func (g *gainNode) output() **beep.Ctrl  { return &g.out }
func (g *gainNode) inputs() *beep.Mixer { return g.in }

func (g *gainNode) Stream(samples [][2]float64) (int, bool) {
	g.in.Stream(samples)

	at := g.cur.take(g.e, len(samples))
	t0 := g.e.seconds(at)
	g.gain.prune(t0)

	if g.gain.constantFrom(t0) {
		v := g.gain.valueAt(t0)
		for i := range samples {
			samples[i][0] *= v
			samples[i][1] *= v
		}
		return len(samples), true
	}

	for i := range samples {
		v := g.gain.valueAt(g.e.seconds(at + int64(i)))
		samples[i][0] *= v
		samples[i][1] *= v
	}

	return len(samples), true
}

func (g *gainNode) Err() error { return nil }
