// SPDX-License-Identifier: EPL-2.0

package dispatch

// Event is reported to whoever drives the dispatcher.
type Event interface {
	event()
}

// EngineReady is emitted once, when a dispatcher with a working backend is
// created.
type EngineReady struct {
	SamplesPerSecond int
}

type LoadSucceeded struct {
	RequestID int
	AssetID   int
	// Duration of the decoded asset in seconds.
	Duration float64
}

type LoadFailed struct {
	RequestID int
	Error     string
}

func (EngineReady) event()   {}
func (LoadSucceeded) event() {}
func (LoadFailed) event()    {}
