// SPDX-License-Identifier: EPL-2.0

package mixer_test

import (
	"math"
	"testing"

	"github.com/ik5/audsched/audio"
	"github.com/ik5/audsched/backend"
	"github.com/ik5/audsched/backend/mixer"
)

const rate = 48000

func constantBuffer(frames int, value float32) *audio.Buffer {
	b := audio.NewBuffer(1, frames, rate)
	for i := range b.Channels[0] {
		b.Channels[0][i] = value
	}

	return b
}

func render(e *mixer.Engine, frames int) [][2]float64 {
	out := make([][2]float64, frames)
	e.Stream(out)

	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

// chain wires buf through a fresh gain node into the destination.
func chain(e *mixer.Engine, buf *audio.Buffer) (src, gain backend.NodeID) {
	src = e.CreateSource(buf)
	gain = e.CreateGain()
	e.Connect(src, gain)
	e.Connect(gain, backend.Destination)

	return src, gain
}

func TestEngineSilentGraph(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	out := render(e, 1000)

	for i, s := range out {
		if s != [2]float64{} {
			t.Fatalf("frame %d = %v, want silence", i, s)
		}
	}

	if got := e.Frames(); got != 1000 {
		t.Errorf("Frames() = %d, want 1000", got)
	}
	if got, want := e.CurrentTime(), 1000.0/rate; !near(got, want) {
		t.Errorf("CurrentTime() = %v, want %v", got, want)
	}
}

func TestEngineDefaults(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{})
	if e.SampleRate() != mixer.DefaultSampleRate {
		t.Errorf("SampleRate() = %d, want %d", e.SampleRate(), mixer.DefaultSampleRate)
	}
	if e.CurrentTime() != 0 {
		t.Errorf("CurrentTime() = %v, want 0", e.CurrentTime())
	}
}

func TestEngineSourceThroughGain(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, gain := chain(e, constantBuffer(rate, 0.5))
	e.SetGain(gain, 0.5)
	e.Start(src, 0, 0)

	out := render(e, 2048)
	for _, i := range []int{100, 700, 2000} {
		if !near(out[i][0], 0.25) || !near(out[i][1], 0.25) {
			t.Errorf("frame %d = %v, want 0.25 on both channels", i, out[i])
		}
	}
}

func TestEngineUnstartedSourceIsSilent(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	chain(e, constantBuffer(rate, 1))

	out := render(e, 1024)
	if out[500] != [2]float64{} {
		t.Errorf("frame 500 = %v, want silence", out[500])
	}
}

func TestEngineScheduledStart(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, _ := chain(e, constantBuffer(rate, 1))
	e.Start(src, 0.01, 0) // frame 480

	out := render(e, 2048)
	if out[400] != [2]float64{} {
		t.Errorf("frame 400 = %v, want silence before the start", out[400])
	}
	if !near(out[1200][0], 1) {
		t.Errorf("frame 1200 = %v, want 1", out[1200])
	}
}

func TestEngineStartInThePastStartsNow(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	render(e, 4800)

	src, _ := chain(e, constantBuffer(rate, 1))
	e.Start(src, 0, 0)

	out := render(e, 1024)
	if !near(out[600][0], 1) {
		t.Errorf("frame 600 = %v, want 1", out[600])
	}
}

func TestEngineStartOffset(t *testing.T) {
	t.Parallel()

	buf := audio.NewBuffer(1, rate, rate)
	for i := range buf.Channels[0] {
		if i >= rate/2 {
			buf.Channels[0][i] = 1
		}
	}

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, _ := chain(e, buf)
	e.Start(src, 0, 0.5)

	out := render(e, 1024)
	if !near(out[500][0], 1) {
		t.Errorf("frame 500 = %v, want 1 when reading from the second half", out[500])
	}
}

func TestEngineStop(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, _ := chain(e, constantBuffer(rate, 1))
	e.Start(src, 0, 0)
	render(e, 1024)

	e.Stop(src)
	out := render(e, 1024)
	if out[10] != [2]float64{} {
		t.Errorf("frame 10 after Stop = %v, want silence", out[10])
	}

	e.Start(src, 0, 0)
	out = render(e, 1024)
	if out[500] != [2]float64{} {
		t.Errorf("a stopped source must not restart, frame 500 = %v", out[500])
	}
}

func TestEngineDisconnectAndReconnect(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, gain := chain(e, constantBuffer(rate, 1))
	e.Start(src, 0, 0)

	e.Disconnect(gain)
	if out := render(e, 1024); out[500] != [2]float64{} {
		t.Errorf("frame 500 after Disconnect = %v, want silence", out[500])
	}

	e.Connect(gain, backend.Destination)
	if out := render(e, 1024); !near(out[500][0], 1) {
		t.Errorf("frame 500 after reconnect = %v, want 1", out[500])
	}
}

func TestEngineConnectMovesOutput(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, first := chain(e, constantBuffer(rate, 1))
	e.SetGain(first, 0.5)

	second := e.CreateGain()
	e.SetGain(second, 0.25)
	e.Connect(second, backend.Destination)

	e.Connect(src, second)
	e.Start(src, 0, 0)

	out := render(e, 1024)
	if !near(out[500][0], 0.25) {
		t.Errorf("frame 500 = %v, want 0.25 from the second gain only", out[500])
	}
}

func TestEngineGainChain(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src := e.CreateSource(constantBuffer(rate, 1))
	g1, g2 := e.CreateGain(), e.CreateGain()
	e.Connect(src, g1)
	e.Connect(g1, g2)
	e.Connect(g2, backend.Destination)
	e.SetGain(g1, 0.5)
	e.SetGain(g2, 0.5)
	e.Start(src, 0, 0)

	if out := render(e, 1024); !near(out[500][0], 0.25) {
		t.Errorf("frame 500 = %v, want 0.25", out[500])
	}
}

func TestEngineRampGain(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, gain := chain(e, constantBuffer(rate, 1))
	e.SetGain(gain, 0)
	e.RampGain(gain, 1, 2048.0/rate)
	e.Start(src, 0, 0)

	out := render(e, 4096)
	tests := map[int]float64{512: 0.25, 1024: 0.5, 1536: 0.75, 3000: 1}
	for i, want := range tests {
		if !near(out[i][0], want) {
			t.Errorf("frame %d = %v, want %v", i, out[i][0], want)
		}
	}
}

func TestEngineOneShotEnds(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, _ := chain(e, constantBuffer(200, 1))
	e.Start(src, 0, 0)

	out := render(e, 2048)
	if out[1500] != [2]float64{} {
		t.Errorf("frame 1500 = %v, want silence after the buffer end", out[1500])
	}
}

func TestEngineLoop(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, _ := chain(e, constantBuffer(200, 1))
	e.SetLoop(src, backend.Loop{Enabled: true})
	e.Start(src, 0, 0)

	out := render(e, 4096)
	for _, i := range []int{1500, 4000} {
		if !near(out[i][0], 1) {
			t.Errorf("frame %d = %v, want the loop to keep playing", i, out[i])
		}
	}

	e.SetLoop(src, backend.Loop{})
	out = render(e, 4096)
	if out[3000] != [2]float64{} {
		t.Errorf("frame 3000 after disabling the loop = %v, want silence", out[3000])
	}
}

func TestEnginePlaybackRate(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, _ := chain(e, constantBuffer(2000, 1))
	e.SetPlaybackRate(src, 2)
	e.Start(src, 0, 0)

	out := render(e, 4096)
	if !near(out[500][0], 1) {
		t.Errorf("frame 500 = %v, want 1", out[500])
	}
	if out[1800] != [2]float64{} {
		t.Errorf("frame 1800 = %v, want silence: double speed ends near frame 1000", out[1800])
	}
}

func TestEnginePlaybackRateZeroIsSilent(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, _ := chain(e, constantBuffer(rate, 1))
	e.SetPlaybackRate(src, 0)
	e.Start(src, 0, 0)

	if out := render(e, 1024); out[500] != [2]float64{} {
		t.Errorf("frame 500 = %v, want silence", out[500])
	}

	e.SetPlaybackRate(src, 1)
	if out := render(e, 1024); !near(out[500][0], 1) {
		t.Errorf("frame 500 after restoring the rate = %v, want 1", out[500])
	}
}

func TestEngineSourceResampledToEngineRate(t *testing.T) {
	t.Parallel()

	buf := audio.NewBuffer(1, 1000, rate/2)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 1
	}

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, _ := chain(e, buf)
	e.Start(src, 0, 0)

	out := render(e, 4096)
	if !near(out[1500][0], 1) {
		t.Errorf("frame 1500 = %v, want a half-rate buffer to last 2000 frames", out[1500])
	}
	if out[3000] != [2]float64{} {
		t.Errorf("frame 3000 = %v, want silence", out[3000])
	}
}

func TestEngineMasterVolume(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate, MasterVolume: 0.5})
	src, _ := chain(e, constantBuffer(rate, 1))
	e.Start(src, 0, 0)

	if out := render(e, 1024); !near(out[500][0], 0.5) {
		t.Errorf("frame 500 = %v, want 0.5", out[500])
	}

	e.SetMasterVolume(0)
	if out := render(e, 1024); out[500] != [2]float64{} {
		t.Errorf("frame 500 muted = %v, want silence", out[500])
	}
}

func TestEngineUnknownNodes(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	gain := e.CreateGain()

	// None of these may panic.
	e.Connect(99, backend.Destination)
	e.Connect(gain, 99)
	e.Disconnect(99)
	e.Start(gain, 0, 0)
	e.Stop(99)
	e.SetLoop(gain, backend.Loop{Enabled: true})
	e.SetPlaybackRate(99, 2)
	e.SetGain(99, 0.5)
	e.RampGain(99, 0.5, 1)

	render(e, 512)
}

func TestEngineRelease(t *testing.T) {
	t.Parallel()

	e := mixer.New(mixer.Options{SampleRate: rate})
	src, gain := chain(e, constantBuffer(rate, 1))
	if e.Nodes() != 2 {
		t.Fatalf("Nodes() = %d, want 2", e.Nodes())
	}

	e.Stop(src)
	e.Disconnect(src)
	e.Disconnect(gain)
	e.Release(src, gain)

	if e.Nodes() != 0 {
		t.Errorf("Nodes() after Release = %d, want 0", e.Nodes())
	}
}
