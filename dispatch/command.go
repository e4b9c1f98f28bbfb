// SPDX-License-Identifier: EPL-2.0

package dispatch

import (
	"time"

	"github.com/ik5/audsched/schedule"
)

// Command is one playback instruction. Handle names the sounding instance
// it targets; handles are chosen by the caller.
type Command interface {
	Target() int
	Action() string
}

// StartSound plays asset AssetID under Handle.
type StartSound struct {
	Handle    int
	AssetID   int
	Volume    float64
	Timelines []schedule.Timeline
	StartTime time.Time
	StartAt   time.Duration
	// Loop is nil for a one-shot sound.
	Loop         *schedule.Loop
	PlaybackRate float64
}

type StopSound struct {
	Handle int
}

type SetVolume struct {
	Handle int
	Volume float64
}

// SetVolumeAt replaces every volume timeline of a sound.
type SetVolumeAt struct {
	Handle    int
	Timelines []schedule.Timeline
}

// SetLoopConfig changes the loop region of a sound; a nil Loop stops looping
// once the current pass ends.
type SetLoopConfig struct {
	Handle int
	Loop   *schedule.Loop
}

type SetPlaybackRate struct {
	Handle       int
	PlaybackRate float64
}

func (c StartSound) Target() int      { return c.Handle }
func (c StopSound) Target() int       { return c.Handle }
func (c SetVolume) Target() int       { return c.Handle }
func (c SetVolumeAt) Target() int     { return c.Handle }
func (c SetLoopConfig) Target() int   { return c.Handle }
func (c SetPlaybackRate) Target() int { return c.Handle }

func (StartSound) Action() string      { return "startSound" }
func (StopSound) Action() string       { return "stopSound" }
func (SetVolume) Action() string       { return "setVolume" }
func (SetVolumeAt) Action() string     { return "setVolumeAt" }
func (SetLoopConfig) Action() string   { return "setLoopConfig" }
func (SetPlaybackRate) Action() string { return "setPlaybackRate" }

// LoadRequest asks for the asset at URL. The outcome is reported with
// RequestID.
type LoadRequest struct {
	URL       string
	RequestID int
}

// Batch is the unit of work handed to ProcessBatch. Audio commands run in
// order; loads start after all of them.
type Batch struct {
	Audio []Command
	Loads []LoadRequest
}
