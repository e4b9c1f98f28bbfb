// SPDX-License-Identifier: EPL-2.0

// Package dispatch applies command batches to a playback backend.
//
// A Dispatcher keeps the registry of sounding instances keyed by caller
// handles. A handle is either absent or playing: startSound makes it
// playing, stopSound makes it absent again. Commands aimed at an absent
// handle are ignored without a trace, since a stop racing a late update is
// normal.
//
// ProcessBatch, Playing and Stop are meant to be called from one goroutine.
// Loads run concurrently and report on the Events channel.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/ik5/audsched/audio"
	"github.com/ik5/audsched/backend"
	"github.com/ik5/audsched/loader"
	"github.com/ik5/audsched/schedule"
)

const DefaultEventBuffer = 64

// Loader fetches and decodes one asset.
type Loader interface {
	Load(ctx context.Context, url string) (*audio.Buffer, error)
}

type Options struct {
	// Loader defaults to a loader converting assets to the backend rate.
	Loader Loader
	// Assets defaults to an empty table.
	Assets      *loader.Assets
	EventBuffer int
	// Now reads the wall clock; tests and offline renders replace it.
	Now    func() time.Time
	Logger slog.Logger
}

type Dispatcher struct {
	be      backend.Backend
	load    Loader
	assets  *loader.Assets
	playing map[int]*schedule.NodeGroup
	now     func() time.Time
	log     slog.Logger

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// overflow holds events that found Events full, oldest first.
	mu       sync.Mutex
	overflow []Event
	kick     chan struct{}
	pumped   chan struct{}
}

// New returns a dispatcher driving be. A nil backend puts the dispatcher in
// silent mode: it accepts every batch and does nothing.
func New(be backend.Backend, opts Options) (*Dispatcher, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Disabled
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Assets == nil {
		opts.Assets = &loader.Assets{}
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	if opts.Loader == nil && be != nil {
		l, err := loader.New(loader.Options{SampleRate: be.SampleRate(), Logger: opts.Logger})
		if err != nil {
			return nil, fmt.Errorf("asset loader: %w", err)
		}
		opts.Loader = l
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		be:      be,
		load:    opts.Loader,
		assets:  opts.Assets,
		playing: make(map[int]*schedule.NodeGroup),
		now:     opts.Now,
		log:     opts.Logger,
		events:  make(chan Event, opts.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
		kick:    make(chan struct{}, 1),
		pumped:  make(chan struct{}),
	}

	go func() {
		defer close(d.pumped)
		d.forward()
	}()

	if be == nil {
		d.log.Warnf("No audio backend available, playback disabled")
		return d, nil
	}

	d.events <- EngineReady{SamplesPerSecond: be.SampleRate()}

	return d, nil
}

// Events delivers engine and load notifications. It is closed by Close.
func (d *Dispatcher) Events() <-chan Event { return d.events }

// Assets is the table loads are stored in.
func (d *Dispatcher) Assets() *loader.Assets { return d.assets }

// Playing reports whether handle currently names a sounding instance.
func (d *Dispatcher) Playing(handle int) bool {
	_, ok := d.playing[handle]
	return ok
}

// ProcessBatch applies b against a single snapshot of the wall clock.
//
// Playback commands run in order, then loads are started in the background.
// A start command naming an unknown asset aborts the batch with
// ErrUnknownAsset; commands before it have already taken effect.
func (d *Dispatcher) ProcessBatch(b Batch) error {
	if d.be == nil {
		return nil
	}

	clk := schedule.Snapshot(d.be, d.now())

	for _, cmd := range b.Audio {
		d.log.Tracef("%s %d", cmd.Action(), cmd.Target())

		if err := d.apply(clk, cmd); err != nil {
			return err
		}
	}

	for _, req := range b.Loads {
		d.startLoad(req)
	}

	return nil
}

func (d *Dispatcher) apply(clk schedule.Clock, cmd Command) error {
	if c, ok := cmd.(StartSound); ok {
		return d.start(clk, c)
	}

	g, ok := d.playing[cmd.Target()]
	if !ok {
		return nil
	}

	switch c := cmd.(type) {
	case StopSound:
		g.Stop(d.be)
		delete(d.playing, c.Handle)
	case SetVolume:
		g.SetVolume(d.be, c.Volume)
	case SetVolumeAt:
		g.SetVolumeAt(d.be, clk, c.Timelines)
	case SetLoopConfig:
		g.SetLoop(d.be, c.Loop)
	case SetPlaybackRate:
		g.SetPlaybackRate(d.be, c.PlaybackRate)
	default:
		return fmt.Errorf("unhandled command %T", cmd)
	}

	return nil
}

func (d *Dispatcher) start(clk schedule.Clock, c StartSound) error {
	buf, ok := d.assets.Get(c.AssetID)
	if !ok {
		return fmt.Errorf("%w: %d (handle %d)", ErrUnknownAsset, c.AssetID, c.Handle)
	}

	// A caller starting a handle it never stopped would otherwise leave the
	// old instance playing with nothing able to reach it.
	if old, ok := d.playing[c.Handle]; ok {
		d.log.Debugf("Handle %d restarted while playing, stopping the old instance", c.Handle)
		old.Stop(d.be)
	}

	d.playing[c.Handle] = schedule.Start(d.be, clk, schedule.StartParams{
		Buffer:       buf,
		Volume:       c.Volume,
		Timelines:    c.Timelines,
		StartTime:    c.StartTime,
		StartAt:      c.StartAt,
		Loop:         c.Loop,
		PlaybackRate: c.PlaybackRate,
	})

	return nil
}

func (d *Dispatcher) startLoad(req LoadRequest) {
	d.wg.Go(func() {
		buf, err := d.load.Load(d.ctx, req.URL)
		if err != nil {
			d.log.Debugf("Load %d of %s failed: %v", req.RequestID, req.URL, err)
			d.emit(LoadFailed{RequestID: req.RequestID, Error: err.Error()})
			return
		}

		id := d.assets.Add(buf)
		d.log.Debugf("Load %d of %s stored as asset %d", req.RequestID, req.URL, id)
		d.emit(LoadSucceeded{RequestID: req.RequestID, AssetID: id, Duration: buf.Duration()})
	})
}

// emit never blocks, so a slow reader cannot hold up loads.
func (d *Dispatcher) emit(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.overflow) == 0 {
		select {
		case d.events <- ev:
			return
		default:
		}
	}

	d.overflow = append(d.overflow, ev)
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// forward moves overflowed events onto Events as the reader catches up.
func (d *Dispatcher) forward() {
	for {
		d.mu.Lock()
		if len(d.overflow) == 0 {
			d.mu.Unlock()
			select {
			case <-d.kick:
				continue
			case <-d.ctx.Done():
				return
			}
		}
		ev := d.overflow[0]
		d.mu.Unlock()

		select {
		case d.events <- ev:
		case <-d.ctx.Done():
			return
		}

		d.mu.Lock()
		d.overflow[0] = nil
		d.overflow = d.overflow[1:]
		d.mu.Unlock()
	}
}

// Wait blocks until every load started so far has finished and queued its
// event. It does not depend on Events being read.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Stop silences every playing instance.
func (d *Dispatcher) Stop() {
	for h, g := range d.playing {
		g.Stop(d.be)
		delete(d.playing, h)
	}
}

// Close abandons pending loads and closes the Events channel. Events not yet
// read, and the outcome of loads cut short, may be lost. The dispatcher must
// not be used afterwards.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
	<-d.pumped
	close(d.events)
}
