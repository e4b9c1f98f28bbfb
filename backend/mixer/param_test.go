// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"math"
	"testing"
)

func TestParamValueAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(p *param)
		at    float64
		want  float64
	}{
		{"initial", func(*param) {}, 5, 1},
		{"set", func(p *param) { p.set(0.3, 1) }, 2, 0.3},
		{"set not reached", func(p *param) { p.set(0.3, 1) }, 0.5, 1},
		{"ramp midway", func(p *param) { p.set(0, 0); p.rampTo(1, 2) }, 1, 0.5},
		{"ramp from origin", func(p *param) { p.rampTo(0, 4) }, 1, 0.75},
		{"ramp done", func(p *param) { p.set(0, 0); p.rampTo(1, 2) }, 3, 1},
		{"chained ramps", func(p *param) { p.set(0, 0); p.rampTo(1, 1); p.rampTo(0, 3) }, 2, 0.5},
		{"zero length ramp", func(p *param) { p.set(0.2, 1); p.rampTo(0.8, 1) }, 1, 0.8},
		{"same time keeps order", func(p *param) { p.set(0.2, 1); p.set(0.7, 1) }, 1, 0.7},
		{"out of order insert", func(p *param) { p.rampTo(1, 4); p.set(0, 2) }, 3, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newParam(1, 0)
			tt.setup(&p)

			if got := p.valueAt(tt.at); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("valueAt(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestParamPrune(t *testing.T) {
	t.Parallel()

	p := newParam(1, 0)
	p.set(0, 1)
	p.rampTo(1, 3)
	p.rampTo(0.5, 5)

	before := []float64{2, 3, 4, 6}
	want := make([]float64, len(before))
	for i, at := range before {
		want[i] = p.valueAt(at)
	}

	p.prune(2)
	if len(p.events) != 2 {
		t.Fatalf("events after prune = %d, want 2", len(p.events))
	}

	for i, at := range before {
		if got := p.valueAt(at); math.Abs(got-want[i]) > 1e-9 {
			t.Errorf("valueAt(%v) after prune = %v, want %v", at, got, want[i])
		}
	}

	p.prune(10)
	if len(p.events) != 0 || p.initial != 0.5 {
		t.Errorf("prune(10): events=%d initial=%v", len(p.events), p.initial)
	}
}

func TestParamConstantFrom(t *testing.T) {
	t.Parallel()

	p := newParam(1, 0)
	if !p.constantFrom(0) {
		t.Error("fresh param should be constant")
	}

	p.rampTo(0, 2)
	if p.constantFrom(1) {
		t.Error("param with a pending ramp should not be constant")
	}
	if !p.constantFrom(2) {
		t.Error("param should be constant once the last event is reached")
	}
}
