// SPDX-License-Identifier: EPL-2.0

// Package backend describes the rendering engine the scheduler drives.
//
// The scheduler never mixes audio itself. It creates nodes, wires them into a
// chain ending at Destination and schedules parameter changes against the
// engine's own monotonic clock, expressed in seconds since the engine
// started. Nodes are owned by the backend; callers only hold their IDs.
//
// Scheduling calls are fire-and-forget: they record future work and return
// immediately. Operations on unknown node IDs are ignored.
package backend

import "github.com/ik5/audsched/audio"

// NodeID identifies a node inside a Backend.
type NodeID uint64

// Destination is the engine output every chain ends in.
const Destination NodeID = 0

// Loop holds the loop markers of a source node, in seconds from the start of
// its buffer. When End <= Start the whole buffer loops.
type Loop struct {
	Enabled bool
	Start   float64
	End     float64
}

// Backend is the primitive set the scheduler consumes.
type Backend interface {
	// SampleRate is the native output rate in Hz.
	SampleRate() int
	// CurrentTime is the rendering clock in seconds.
	CurrentTime() float64

	// CreateSource returns a stopped source node playing buf.
	CreateSource(buf *audio.Buffer) NodeID
	// CreateGain returns a gain node at unity gain.
	CreateGain() NodeID

	// Connect feeds the output of from into to. A node has a single
	// output; connecting it again moves it.
	Connect(from, to NodeID)
	// Disconnect detaches the output of n.
	Disconnect(n NodeID)

	// Start begins playback at engine time at, reading from offset seconds
	// into the buffer. A time at or before CurrentTime starts immediately.
	Start(src NodeID, at, offset float64)
	// Stop silences a source for good.
	Stop(src NodeID)
	SetLoop(src NodeID, loop Loop)
	SetPlaybackRate(src NodeID, rate float64)

	// SetGain sets a gain value immediately.
	SetGain(gain NodeID, value float64)
	// RampGain ramps linearly from the previous scheduled value to value,
	// arriving at engine time at.
	RampGain(gain NodeID, value, at float64)
}

// Releaser is implemented by backends that keep per-node state until told a
// node will never be referenced again. Callers release a node group after
// stopping and disconnecting it.
type Releaser interface {
	Release(ids ...NodeID)
}
