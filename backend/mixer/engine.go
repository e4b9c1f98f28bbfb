// SPDX-License-Identifier: EPL-2.0

// Package mixer is a software rendering backend built on github.com/gopxl/beep.
//
// The Engine is itself a beep.Streamer: every pull renders the node graph and
// advances the engine clock by the number of frames produced. Open hands it
// to beep's speaker for real-time output; New leaves it to the caller, which
// is how offline renders and tests drive it.
//
// Every node is a beep streamer. Gain nodes sum their inputs with a
// beep.Mixer and the Destination bus is a beep.Mixer too; a connection is a
// beep.Ctrl wrapping the upstream node, and disconnecting clears that Ctrl so
// the mixer drops it on the next pass.
package mixer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/ik5/audsched/audio"
	"github.com/ik5/audsched/backend"
)

const (
	DefaultSampleRate = 48000
	DefaultQuality    = 4
	DefaultLatency    = 100 * time.Millisecond
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	SampleRate int
	// Quality of the playback-rate resampler, 1..64.
	Quality      int
	MasterVolume float64
	// Latency is the speaker buffer length, used by Open only.
	Latency time.Duration
	Logger  slog.Logger
}

type node interface {
	beep.Streamer
	output() **beep.Ctrl
	inputs() *beep.Mixer
}

// cursor maps the chunks a beep.Mixer pulls within one render pass onto
// absolute engine frames.
type cursor struct {
	pass uint64
	pos  int64
}

func (c *cursor) take(e *Engine, n int) int64 {
	if c.pass != e.pass {
		c.pass, c.pos = e.pass, 0
	}
	at := e.passStart + c.pos
	c.pos += int64(n)

	return at
}

// Engine renders a graph of source and gain nodes. It implements
// backend.Backend and beep.Streamer and is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	rate    beep.SampleRate
	quality int
	log     slog.Logger

	frame     int64
	pass      uint64
	passStart int64

	next   backend.NodeID
	nodes  map[backend.NodeID]node
	bus    *beep.Mixer
	master *effects.Volume

	speaker bool
}

var (
	_ backend.Backend  = (*Engine)(nil)
	_ backend.Releaser = (*Engine)(nil)
	_ beep.Streamer    = (*Engine)(nil)
)

// New returns an engine that renders only when streamed by its caller.
func New(opts Options) *Engine {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.Quality < 1 || opts.Quality > 64 {
		opts.Quality = DefaultQuality
	}
	if opts.Logger == nil {
		opts.Logger = slog.Disabled
	}

	bus := &beep.Mixer{}
	e := &Engine{
		rate:    beep.SampleRate(opts.SampleRate),
		quality: opts.Quality,
		log:     opts.Logger,
		next:    backend.Destination + 1,
		nodes:   make(map[backend.NodeID]node),
		bus:     bus,
		master:  &effects.Volume{Streamer: bus, Base: 2},
	}
	if opts.MasterVolume <= 0 {
		opts.MasterVolume = 1
	}
	e.master.Volume = math.Log2(opts.MasterVolume)

	return e
}

// Open starts an engine on the system audio output. It fails with
// backend.ErrUnavailable when no output device can be opened.
func Open(opts Options) (*Engine, error) {
	e := New(opts)

	latency := opts.Latency
	if latency <= 0 {
		latency = DefaultLatency
	}

	if err := speaker.Init(e.rate, e.rate.N(latency)); err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrUnavailable, err)
	}
	speaker.Play(e)
	e.speaker = true

	e.log.Infof("Audio output open at %d Hz, %v buffer", int(e.rate), latency)

	return e, nil
}

// Close releases the audio output opened by Open. The engine itself stays
// usable for offline rendering.
func (e *Engine) Close() {
	if !e.speaker {
		return
	}
	speaker.Clear()
	speaker.Close()
	e.speaker = false
}

// SetMasterVolume scales the whole output; 0 silences it.
func (e *Engine) SetMasterVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.master.Silent = v <= 0
	if v > 0 {
		e.master.Volume = math.Log2(v)
	}
}

// Stream renders the next len(samples) frames of the graph.
func (e *Engine) Stream(samples [][2]float64) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pass++
	e.passStart = e.frame
	e.master.Stream(samples)
	e.frame += int64(len(samples))

	return len(samples), true
}

func (e *Engine) Err() error { return nil }

func (e *Engine) seconds(frame int64) float64 {
	return float64(frame) / float64(e.rate)
}

func (e *Engine) now() float64 { return e.seconds(e.frame) }

func (e *Engine) SampleRate() int { return int(e.rate) }

func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.now()
}

// Frames is the number of frames rendered so far.
func (e *Engine) Frames() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.frame
}

// Nodes is the number of live nodes, Destination excluded.
func (e *Engine) Nodes() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.nodes)
}

func (e *Engine) add(n node) backend.NodeID {
	id := e.next
	e.next++
	e.nodes[id] = n

	return id
}

func (e *Engine) CreateSource(buf *audio.Buffer) backend.NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.add(newSourceNode(e, buf))
	e.log.Tracef("Created source %d (%d frames, %d ch)", id, buf.Frames(), buf.NumChannels())

	return id
}

func (e *Engine) CreateGain() backend.NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.add(newGainNode(e))
	e.log.Tracef("Created gain %d", id)

	return id
}

func (e *Engine) Connect(from, to backend.NodeID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	src, ok := e.nodes[from]
	if !ok {
		return
	}

	var dst *beep.Mixer
	if to == backend.Destination {
		dst = e.bus
	} else if n, ok := e.nodes[to]; ok {
		dst = n.inputs()
	}
	if dst == nil {
		e.log.Debugf("Ignoring connect %d -> %d: target takes no input", from, to)
		return
	}

	out := src.output()
	if *out != nil {
		(*out).Streamer = nil
	}
	ctrl := &beep.Ctrl{Streamer: src}
	dst.Add(ctrl)
	*out = ctrl
}

func (e *Engine) Disconnect(id backend.NodeID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[id]
	if !ok {
		return
	}

	out := n.output()
	if *out != nil {
		(*out).Streamer = nil
		*out = nil
	}
}

func (e *Engine) source(id backend.NodeID) (*sourceNode, bool) {
	s, ok := e.nodes[id].(*sourceNode)
	return s, ok
}

func (e *Engine) gain(id backend.NodeID) (*gainNode, bool) {
	g, ok := e.nodes[id].(*gainNode)
	return g, ok
}

func (e *Engine) Start(id backend.NodeID, at, offset float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.source(id)
	if !ok || s.started {
		return
	}

	s.from = max(int64(math.Ceil(at*float64(e.rate))), e.frame)
	s.reader.seek(offset)
	s.started = true

	e.log.Tracef("Source %d starts at frame %d, offset %.3fs", id, s.from, offset)
}

func (e *Engine) Stop(id backend.NodeID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.source(id); ok {
		s.stopped = true
	}
}

func (e *Engine) SetLoop(id backend.NodeID, loop backend.Loop) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.source(id); ok {
		s.reader.setLoop(loop)
	}
}

func (e *Engine) SetPlaybackRate(id backend.NodeID, rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.source(id); ok {
		s.setRate(rate)
	}
}

func (e *Engine) SetGain(id backend.NodeID, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if g, ok := e.gain(id); ok {
		g.gain.set(value, e.now())
	}
}

func (e *Engine) RampGain(id backend.NodeID, value, at float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if g, ok := e.gain(id); ok {
		g.gain.rampTo(value, at)
	}
}

// Release forgets nodes. A released node still connected somewhere keeps
// playing until it is disconnected through its former owner.
func (e *Engine) Release(ids ...backend.NodeID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range ids {
		delete(e.nodes, id)
	}
}
