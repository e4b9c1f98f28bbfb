// SPDX-License-Identifier: EPL-2.0

package schedule

import (
	"time"

	"github.com/ik5/audsched/backend"
)

// Clock maps wall-clock instants onto a backend's rendering clock.
type Clock struct {
	// Wall is the instant the batch was received.
	Wall time.Time
	// Engine is the backend time, in seconds, at Wall.
	Engine float64
}

// Snapshot pairs wall with the backend's current time.
func Snapshot(be backend.Backend, wall time.Time) Clock {
	return Clock{Wall: wall, Engine: be.CurrentTime()}
}

// EngineTime translates t into backend seconds. Instants before Wall land
// before Engine and may be negative.
func (c Clock) EngineTime(t time.Time) float64 {
	return t.Sub(c.Wall).Seconds() + c.Engine
}

// Now is the backend time of the snapshot.
func (c Clock) Now() float64 { return c.Engine }
