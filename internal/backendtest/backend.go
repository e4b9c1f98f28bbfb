// SPDX-License-Identifier: EPL-2.0

// Package backendtest provides a recording backend.Backend for tests.
package backendtest

import (
	"fmt"
	"sync"

	"github.com/ik5/audsched/audio"
	"github.com/ik5/audsched/backend"
)

// Kind names a recorded backend call.
type Kind string

const (
	CreateSource    Kind = "createSource"
	CreateGain      Kind = "createGain"
	Connect         Kind = "connect"
	Disconnect      Kind = "disconnect"
	Start           Kind = "start"
	Stop            Kind = "stop"
	SetLoop         Kind = "setLoop"
	SetPlaybackRate Kind = "setPlaybackRate"
	SetGain         Kind = "setGain"
	RampGain        Kind = "rampGain"
	Release         Kind = "release"
)

// Op is one recorded call. Fields not relevant to Kind are zero.
type Op struct {
	Kind   Kind
	Node   backend.NodeID
	To     backend.NodeID
	At     float64
	Offset float64
	Value  float64
	Loop   backend.Loop
}

func (o Op) String() string {
	switch o.Kind {
	case Connect:
		return fmt.Sprintf("%s %d->%d", o.Kind, o.Node, o.To)
	case Start:
		return fmt.Sprintf("%s %d at=%g offset=%g", o.Kind, o.Node, o.At, o.Offset)
	case SetGain, SetPlaybackRate:
		return fmt.Sprintf("%s %d %g", o.Kind, o.Node, o.Value)
	case RampGain:
		return fmt.Sprintf("%s %d %g at=%g", o.Kind, o.Node, o.Value, o.At)
	case SetLoop:
		return fmt.Sprintf("%s %d %+v", o.Kind, o.Node, o.Loop)
	default:
		return fmt.Sprintf("%s %d", o.Kind, o.Node)
	}
}

// Backend records every call made to it. Its clock only moves when a test
// calls SetTime.
type Backend struct {
	mu      sync.Mutex
	rate    int
	now     float64
	next    backend.NodeID
	ops     []Op
	buffers map[backend.NodeID]*audio.Buffer
	outputs map[backend.NodeID]backend.NodeID
}

var (
	_ backend.Backend  = (*Backend)(nil)
	_ backend.Releaser = (*Backend)(nil)
)

func New(sampleRate int) *Backend {
	return &Backend{
		rate:    sampleRate,
		next:    backend.Destination + 1,
		buffers: make(map[backend.NodeID]*audio.Buffer),
		outputs: make(map[backend.NodeID]backend.NodeID),
	}
}

func (b *Backend) SetTime(now float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

func (b *Backend) record(op Op) {
	b.ops = append(b.ops, op)
}

// Ops returns a copy of the recorded calls.
func (b *Backend) Ops() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Op(nil), b.ops...)
}

// OpsFor returns the recorded calls that target node.
func (b *Backend) OpsFor(node backend.NodeID) []Op {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ops []Op
	for _, op := range b.ops {
		if op.Node == node {
			ops = append(ops, op)
		}
	}

	return ops
}

// Reset forgets the recorded calls but keeps the node state.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = nil
}

// Buffer is the buffer a source node was created with.
func (b *Backend) Buffer(src backend.NodeID) *audio.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffers[src]
}

// Output reports where node currently feeds, if anywhere.
func (b *Backend) Output(node backend.NodeID) (backend.NodeID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	to, ok := b.outputs[node]
	return to, ok
}

// Path follows outputs from node and returns every node visited, ending in
// backend.Destination when the chain is complete.
func (b *Backend) Path(node backend.NodeID) []backend.NodeID {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := []backend.NodeID{node}
	for len(path) <= len(b.outputs)+1 {
		to, ok := b.outputs[path[len(path)-1]]
		if !ok {
			break
		}
		path = append(path, to)
		if to == backend.Destination {
			break
		}
	}

	return path
}

func (b *Backend) SampleRate() int { return b.rate }

func (b *Backend) CurrentTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now
}

func (b *Backend) CreateSource(buf *audio.Buffer) backend.NodeID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.buffers[id] = buf
	b.record(Op{Kind: CreateSource, Node: id})

	return id
}

func (b *Backend) CreateGain() backend.NodeID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.record(Op{Kind: CreateGain, Node: id})

	return id
}

func (b *Backend) Connect(from, to backend.NodeID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.outputs[from] = to
	b.record(Op{Kind: Connect, Node: from, To: to})
}

func (b *Backend) Disconnect(n backend.NodeID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.outputs, n)
	b.record(Op{Kind: Disconnect, Node: n})
}

func (b *Backend) Start(src backend.NodeID, at, offset float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Op{Kind: Start, Node: src, At: at, Offset: offset})
}

func (b *Backend) Stop(src backend.NodeID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Op{Kind: Stop, Node: src})
}

func (b *Backend) SetLoop(src backend.NodeID, loop backend.Loop) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Op{Kind: SetLoop, Node: src, Loop: loop})
}

func (b *Backend) SetPlaybackRate(src backend.NodeID, rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Op{Kind: SetPlaybackRate, Node: src, Value: rate})
}

func (b *Backend) SetGain(gain backend.NodeID, value float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Op{Kind: SetGain, Node: gain, Value: value})
}

func (b *Backend) RampGain(gain backend.NodeID, value, at float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Op{Kind: RampGain, Node: gain, Value: value, At: at})
}

func (b *Backend) Release(ids ...backend.NodeID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range ids {
		delete(b.buffers, id)
		b.record(Op{Kind: Release, Node: id})
	}
}
