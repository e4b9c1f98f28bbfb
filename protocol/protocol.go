// SPDX-License-Identifier: EPL-2.0

// Package protocol is the JSON form of batches and events.
//
// An inbound message carries an "audio" array of playback commands, told
// apart by their "action" field, and an "audioCmds" array of load requests.
// Times are POSIX milliseconds, offsets and loop points are milliseconds.
// The short keys "handle", "assetId" and "url" are accepted in place of
// "nodeGroupId", "bufferId" and "audioUrl", and setVolumeAt takes its
// timelines from either "volumeAt" or "volumeTimelines". A command without
// a handle, or a startSound without an asset, is rejected.
//
//	{"audio":[{"action":"startSound","nodeGroupId":1,"bufferId":0,
//	  "volume":1,"volumeTimelines":[],"startTime":1700000000000,
//	  "startAt":0,"loop":null,"playbackRate":1}],
//	 "audioCmds":[{"audioUrl":"hit.wav","requestId":7}]}
//
// Outbound events are objects tagged with a numeric "type": 0 for a failed
// load, 1 for a finished load and 2 for the engine announcing its rate. A
// finished load names the new asset under both "bufferId" and "assetId".
package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ik5/audsched/dispatch"
	"github.com/ik5/audsched/schedule"
)

// Outbound event type codes.
const (
	TypeLoadFailed    = 0
	TypeLoadSucceeded = 1
	TypeEngineReady   = 2
)

var knownActions = map[string]bool{
	"startSound":      true,
	"stopSound":       true,
	"setVolume":       true,
	"setVolumeAt":     true,
	"setLoopConfig":   true,
	"setPlaybackRate": true,
}

type batch struct {
	Audio     []command `json:"audio"`
	AudioCmds []load    `json:"audioCmds"`
}

type command struct {
	Action          string       `json:"action"`
	NodeGroupID     *int         `json:"nodeGroupId"`
	Handle          *int         `json:"handle"`
	BufferID        *int         `json:"bufferId"`
	AssetID         *int         `json:"assetId"`
	Volume          float64      `json:"volume"`
	VolumeTimelines [][]keyframe `json:"volumeTimelines"`
	VolumeAt        [][]keyframe `json:"volumeAt"`
	StartTime       float64      `json:"startTime"`
	StartAt         float64      `json:"startAt"`
	Loop            *loop        `json:"loop"`
	PlaybackRate    *float64     `json:"playbackRate"`
}

type keyframe struct {
	Time   float64 `json:"time"`
	Volume float64 `json:"volume"`
}

type loop struct {
	LoopStart float64 `json:"loopStart"`
	LoopEnd   float64 `json:"loopEnd"`
}

type load struct {
	AudioURL  string `json:"audioUrl"`
	URL       string `json:"url"`
	RequestID int    `json:"requestId"`
}

type event struct {
	Type             int     `json:"type"`
	SamplesPerSecond int     `json:"samplesPerSecond,omitempty"`
	RequestID        *int    `json:"requestId,omitempty"`
	BufferID         *int    `json:"bufferId,omitempty"`
	AssetID          *int    `json:"assetId,omitempty"`
	Duration         float64 `json:"durationInSeconds,omitempty"`
	Error            string  `json:"error,omitempty"`
}

func posix(ms float64) time.Time {
	return time.Unix(0, int64(math.Round(ms*float64(time.Millisecond))))
}

func millis(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}

func timelines(in [][]keyframe) []schedule.Timeline {
	if len(in) == 0 {
		return nil
	}

	out := make([]schedule.Timeline, len(in))
	for i, tl := range in {
		out[i] = make(schedule.Timeline, len(tl))
		for j, kf := range tl {
			out[i][j] = schedule.Keyframe{Time: posix(kf.Time), Volume: kf.Volume}
		}
	}

	return out
}

func (l *loop) toLoop() *schedule.Loop {
	if l == nil {
		return nil
	}

	return &schedule.Loop{Start: millis(l.LoopStart), End: millis(l.LoopEnd)}
}

func (c *command) rate() float64 {
	if c.PlaybackRate == nil {
		return 1
	}

	return *c.PlaybackRate
}

func either(a, b *int) (int, bool) {
	switch {
	case a != nil:
		return *a, true
	case b != nil:
		return *b, true
	}

	return 0, false
}

func (c *command) toCommand() (dispatch.Command, error) {
	if !knownActions[c.Action] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}

	handle, ok := either(c.NodeGroupID, c.Handle)
	if !ok {
		return nil, fmt.Errorf("%w: %s without a handle", ErrMissingField, c.Action)
	}

	switch c.Action {
	case "startSound":
		asset, ok := either(c.BufferID, c.AssetID)
		if !ok {
			return nil, fmt.Errorf("%w: startSound %d without an asset", ErrMissingField, handle)
		}

		return dispatch.StartSound{
			Handle:       handle,
			AssetID:      asset,
			Volume:       c.Volume,
			Timelines:    timelines(c.VolumeTimelines),
			StartTime:    posix(c.StartTime),
			StartAt:      millis(c.StartAt),
			Loop:         c.Loop.toLoop(),
			PlaybackRate: c.rate(),
		}, nil
	case "stopSound":
		return dispatch.StopSound{Handle: handle}, nil
	case "setVolume":
		return dispatch.SetVolume{Handle: handle, Volume: c.Volume}, nil
	case "setVolumeAt":
		tls := c.VolumeAt
		if tls == nil {
			tls = c.VolumeTimelines
		}

		return dispatch.SetVolumeAt{Handle: handle, Timelines: timelines(tls)}, nil
	case "setLoopConfig":
		return dispatch.SetLoopConfig{Handle: handle, Loop: c.Loop.toLoop()}, nil
	default:
		return dispatch.SetPlaybackRate{Handle: handle, PlaybackRate: c.rate()}, nil
	}
}

// DecodeBatch parses one inbound message.
func DecodeBatch(data []byte) (dispatch.Batch, error) {
	var in batch
	if err := json.Unmarshal(data, &in); err != nil {
		return dispatch.Batch{}, fmt.Errorf("decode batch: %w", err)
	}

	var out dispatch.Batch
	for i := range in.Audio {
		cmd, err := in.Audio[i].toCommand()
		if err != nil {
			return dispatch.Batch{}, fmt.Errorf("audio[%d]: %w", i, err)
		}
		out.Audio = append(out.Audio, cmd)
	}

	for _, l := range in.AudioCmds {
		url := l.AudioURL
		if url == "" {
			url = l.URL
		}
		out.Loads = append(out.Loads, dispatch.LoadRequest{URL: url, RequestID: l.RequestID})
	}

	return out, nil
}

// EncodeEvent renders ev as one outbound message.
func EncodeEvent(ev dispatch.Event) ([]byte, error) {
	var out event

	switch ev := ev.(type) {
	case dispatch.EngineReady:
		out = event{Type: TypeEngineReady, SamplesPerSecond: ev.SamplesPerSecond}
	case dispatch.LoadSucceeded:
		out = event{
			Type:      TypeLoadSucceeded,
			RequestID: &ev.RequestID,
			BufferID:  &ev.AssetID,
			AssetID:   &ev.AssetID,
			Duration:  ev.Duration,
		}
	case dispatch.LoadFailed:
		out = event{Type: TypeLoadFailed, RequestID: &ev.RequestID, Error: ev.Error}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	return json.Marshal(out)
}
