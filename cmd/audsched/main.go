// SPDX-License-Identifier: EPL-2.0

// Command audsched reads command batches as JSON lines and plays them.
//
// Each input line is one batch; every event the scheduler reports is written
// to stdout as one JSON line. With -render the batches are applied up front
// against a virtual clock starting at the POSIX epoch, so startTime values
// are milliseconds from the start of the render, and the mix is written to
// a WAV file instead of the speaker.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"
	"github.com/ik5/audsched"
	"github.com/ik5/audsched/backend"
	"github.com/ik5/audsched/backend/mixer"
	"github.com/ik5/audsched/config"
	"github.com/ik5/audsched/dispatch"
	"github.com/ik5/audsched/loader"
	"github.com/ik5/audsched/protocol"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// maxLine bounds one input batch.
const maxLine = 4 << 20

var (
	logBackend = slog.NewBackend(os.Stderr)
	log        = logBackend.Logger("MAIN")
	dispLog    = logBackend.Logger("DISP")
	loadLog    = logBackend.Logger("LOAD")
	mixrLog    = logBackend.Logger("MIXR")
)

func setLevel(lvl slog.Level) {
	for _, l := range []slog.Logger{log, dispLog, loadLog, mixrLog} {
		l.SetLevel(lvl)
	}
}

func main() {
	cfgPath := flag.String("config", "", "YAML config file")
	render := flag.String("render", "", "render offline into this WAV file")
	duration := flag.Duration("duration", 10*time.Second, "length of an offline render")
	input := flag.String("input", "-", "batch input, - for stdin")
	flag.Parse()

	if err := run(*cfgPath, *input, *render, *duration); err != nil {
		log.Criticalf("%v", err)
		os.Exit(1)
	}
}

func run(cfgPath, input, render string, duration time.Duration) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	setLevel(cfg.Level())

	in := os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	if term.IsTerminal(int(in.Fd())) {
		log.Infof("Reading batches from the terminal, one JSON object per line")
	}

	opts := mixer.Options{
		SampleRate:   cfg.SampleRate,
		Quality:      cfg.ResampleQuality,
		MasterVolume: cfg.MasterVolume,
		Latency:      cfg.BufferSize,
		Logger:       mixrLog,
	}

	if render != "" {
		return renderFile(cfg, opts, in, render, duration)
	}

	return play(cfg, opts, in)
}

func newDispatcher(cfg *config.Config, be backend.Backend, now func() time.Time) (*dispatch.Dispatcher, error) {
	dopts := dispatch.Options{
		EventBuffer: cfg.EventBuffer,
		Now:         now,
		Logger:      dispLog,
	}

	if be != nil {
		l, err := loader.New(loader.Options{
			Base:       cfg.AssetBase,
			SampleRate: be.SampleRate(),
			Mono:       cfg.Mono,
			Timeout:    cfg.FetchTimeout,
			Logger:     loadLog,
		})
		if err != nil {
			return nil, err
		}
		dopts.Loader = l
	}

	return dispatch.New(be, dopts)
}

func writeEvent(w io.Writer, ev dispatch.Event) error {
	data, err := protocol.EncodeEvent(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)

	return err
}

// apply decodes and processes one input line and reports how many loads it
// started. Malformed batches are logged and skipped; a reference to an
// unknown asset is fatal.
func apply(d *dispatch.Dispatcher, line []byte) (int, error) {
	if len(line) == 0 {
		return 0, nil
	}

	batch, err := protocol.DecodeBatch(line)
	if err != nil {
		log.Errorf("Skipping batch: %v", err)
		return 0, nil
	}

	if err := d.ProcessBatch(batch); err != nil {
		return 0, err
	}

	return len(batch.Loads), nil
}

func play(cfg *config.Config, opts mixer.Options, in io.Reader) error {
	var be backend.Backend
	if cfg.Headless {
		be = mixer.New(opts)
	} else if eng, err := mixer.Open(opts); err != nil {
		log.Warnf("%v", err)
	} else {
		defer eng.Close()
		be = eng
	}

	d, err := newDispatcher(cfg, be, time.Now)
	if err != nil {
		return err
	}
	defer d.Close()
	defer d.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := make(chan []byte)
	go scan(in, lines)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					log.Infof("Input closed, playing until interrupted")
					<-ctx.Done()
					return nil
				}
				if _, err := apply(d, line); err != nil {
					return err
				}
			}
		}
	})

	g.Go(func() error {
		out := bufio.NewWriter(os.Stdout)
		for {
			select {
			case <-ctx.Done():
				return out.Flush()
			case ev := <-d.Events():
				if err := writeEvent(out, ev); err != nil {
					return err
				}
				if err := out.Flush(); err != nil {
					return err
				}
			}
		}
	})

	return g.Wait()
}

func scan(r io.Reader, lines chan<- []byte) {
	defer close(lines)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLine)
	for sc.Scan() {
		lines <- append([]byte(nil), sc.Bytes()...)
	}
	if err := sc.Err(); err != nil {
		log.Errorf("Reading input: %v", err)
	}
}

func renderFile(cfg *config.Config, opts mixer.Options, in io.Reader, name string, d time.Duration) error {
	eng := mixer.New(opts)
	epoch := time.UnixMilli(0)
	now := func() time.Time {
		return epoch.Add(time.Duration(eng.CurrentTime() * float64(time.Second)))
	}

	disp, err := newDispatcher(cfg, eng, now)
	if err != nil {
		return err
	}
	defer disp.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	// every load reports exactly once, after EngineReady
	flush := func(n int) error {
		for range n {
			if err := writeEvent(out, <-disp.Events()); err != nil {
				return err
			}
		}

		return nil
	}
	if err := flush(1); err != nil {
		return err
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64<<10), maxLine)
	for sc.Scan() {
		loads, err := apply(disp, sc.Bytes())
		if err != nil {
			return err
		}
		// later batches may start what this one loads
		disp.Wait()
		if err := flush(loads); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	f, err := os.Create(name)
	if err != nil {
		return err
	}

	err = audsched.RenderWAV(f, eng, eng.SampleRate(), d)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	log.Infof("Rendered %v to %s", d, name)

	return nil
}
