// SPDX-License-Identifier: EPL-2.0

package schedule

import (
	"time"

	"github.com/ik5/audsched/audio"
	"github.com/ik5/audsched/backend"
)

// formatMargin is added to every read offset. It is reserved for skipping
// encoder padding at the start of compressed assets and is zero for now.
const formatMargin = 0

// StartParams describes one sound to start.
type StartParams struct {
	Buffer    *audio.Buffer
	Volume    float64
	Timelines []Timeline
	// StartTime is the wall-clock instant playback nominally begins.
	StartTime time.Time
	// StartAt is the position in the buffer to play from.
	StartAt      time.Duration
	Loop         *Loop
	PlaybackRate float64
}

// NodeGroup is the backend state of one sounding instance. The nodes belong
// to the backend; the group only refers to them.
type NodeGroup struct {
	Source    backend.NodeID
	Gain      backend.NodeID
	Envelopes []backend.NodeID
}

// Nodes lists every node of the group, source first.
func (g *NodeGroup) Nodes() []backend.NodeID {
	nodes := make([]backend.NodeID, 0, 2+len(g.Envelopes))
	nodes = append(nodes, g.Source, g.Gain)

	return append(nodes, g.Envelopes...)
}

// Connect wires nodes into a chain, each feeding the next.
func Connect(be backend.Backend, nodes ...backend.NodeID) {
	for i := 1; i < len(nodes); i++ {
		be.Connect(nodes[i-1], nodes[i])
	}
}

// Start builds and starts the node chain for p.
//
// A start time at or after the clock's instant is scheduled on the backend
// clock. A start time already in the past starts right away and skips the
// time that has elapsed since, so the sound is heard where it would have
// been had it started on time.
func Start(be backend.Backend, clk Clock, p StartParams) *NodeGroup {
	src := be.CreateSource(PrepareBuffer(p.Buffer, p.Loop))
	be.SetPlaybackRate(src, p.PlaybackRate)
	be.SetLoop(src, p.Loop.Markers())

	gain := be.CreateGain()
	be.SetGain(gain, p.Volume)

	g := &NodeGroup{
		Source:    src,
		Gain:      gain,
		Envelopes: BuildEnvelopes(be, clk, p.Timelines),
	}
	g.connect(be)

	offset := formatMargin + p.StartAt.Seconds()
	if !p.StartTime.Before(clk.Wall) {
		be.Start(src, clk.EngineTime(p.StartTime), offset)
	} else {
		late := clk.Wall.Sub(p.StartTime).Seconds()
		be.Start(src, 0, late+offset)
	}

	return g
}

func (g *NodeGroup) connect(be backend.Backend) {
	Connect(be, g.Source, g.Gain)
	g.connectEnvelopes(be)
}

func (g *NodeGroup) connectEnvelopes(be backend.Backend) {
	chain := make([]backend.NodeID, 0, len(g.Envelopes)+2)
	chain = append(chain, g.Gain)
	chain = append(chain, g.Envelopes...)
	Connect(be, append(chain, backend.Destination)...)
}

// Stop silences the group and detaches every node. Backends that track node
// state are told the nodes can go.
func (g *NodeGroup) Stop(be backend.Backend) {
	be.Stop(g.Source)
	for _, n := range g.Nodes() {
		be.Disconnect(n)
	}

	if r, ok := be.(backend.Releaser); ok {
		r.Release(g.Nodes()...)
	}
}

// SetVolume sets the direct gain immediately.
func (g *NodeGroup) SetVolume(be backend.Backend, volume float64) {
	be.SetGain(g.Gain, volume)
}

// SetVolumeAt swaps the envelope chain for one built from tls. The direct
// gain node keeps its value.
func (g *NodeGroup) SetVolumeAt(be backend.Backend, clk Clock, tls []Timeline) {
	old := g.Envelopes
	for _, n := range old {
		be.Disconnect(n)
	}
	be.Disconnect(g.Gain)

	g.Envelopes = BuildEnvelopes(be, clk, tls)
	g.connectEnvelopes(be)

	if r, ok := be.(backend.Releaser); ok && len(old) > 0 {
		r.Release(old...)
	}
}

// SetLoop moves the loop markers of the playing source. The buffer is not
// resized, so a loop end beyond the buffer prepared at start is clamped by
// the backend.
func (g *NodeGroup) SetLoop(be backend.Backend, loop *Loop) {
	be.SetLoop(g.Source, loop.Markers())
}

func (g *NodeGroup) SetPlaybackRate(be backend.Backend, rate float64) {
	be.SetPlaybackRate(g.Source, rate)
}
