// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"slices"

	"github.com/ik5/audsched/utils"
)

type automation struct {
	ramp  bool
	value float64
	at    float64
}

// param is a value automated against the engine clock. Events are kept
// sorted by time; events sharing a time keep their insertion order.
type param struct {
	origin  float64
	initial float64
	events  []automation
}

func newParam(initial, now float64) param {
	return param{origin: now, initial: initial}
}

func (p *param) insert(ev automation) {
	i, _ := slices.BinarySearchFunc(p.events, ev.at, func(a automation, t float64) int {
		if a.at <= t {
			return -1
		}
		return 1
	})
	p.events = slices.Insert(p.events, i, ev)
}

func (p *param) set(value, now float64) {
	p.insert(automation{value: value, at: now})
}

func (p *param) rampTo(value, at float64) {
	p.insert(automation{ramp: true, value: value, at: at})
}

// valueAt evaluates the automation at engine time t.
func (p *param) valueAt(t float64) float64 {
	value, from := p.initial, p.origin

	i := 0
	for ; i < len(p.events) && p.events[i].at <= t; i++ {
		value, from = p.events[i].value, p.events[i].at
	}

	if i < len(p.events) && p.events[i].ramp {
		next := p.events[i]
		return utils.Lerp(from, value, next.at, next.value, t)
	}

	return value
}

// constantFrom reports whether the value cannot change after t.
func (p *param) constantFrom(t float64) bool {
	return len(p.events) == 0 || p.events[len(p.events)-1].at <= t
}

// prune folds every event that can no longer influence values at or after t
// into the initial value.
func (p *param) prune(t float64) {
	n := 0
	for n+1 < len(p.events) && p.events[n+1].at <= t {
		n++
	}
	if n == 0 && (len(p.events) == 0 || p.events[0].at > t) {
		return
	}

	last := p.events[n]
	p.initial, p.origin = last.value, last.at
	p.events = slices.Delete(p.events, 0, n+1)
}
