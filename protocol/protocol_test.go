// SPDX-License-Identifier: EPL-2.0

package protocol_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/ik5/audsched/dispatch"
	"github.com/ik5/audsched/protocol"
	"github.com/ik5/audsched/schedule"
)

const t0 = 1_700_000_000_000

func at(ms int64) time.Time { return time.UnixMilli(ms) }

func TestDecodeBatch(t *testing.T) {
	t.Parallel()

	msg := fmt.Sprintf(`{
		"audio": [
			{"action":"startSound","nodeGroupId":1,"bufferId":2,"volume":0.8,
			 "volumeTimelines":[[{"time":%[1]d,"volume":0},{"time":%[2]d,"volume":1}]],
			 "startTime":%[1]d,"startAt":250,"loop":{"loopStart":100,"loopEnd":1500},
			 "playbackRate":1.5},
			{"action":"stopSound","nodeGroupId":3},
			{"action":"setVolume","nodeGroupId":1,"volume":0.25},
			{"action":"setVolumeAt","nodeGroupId":1,"volumeAt":[[{"time":%[2]d,"volume":0.5}]]},
			{"action":"setLoopConfig","nodeGroupId":1,"loop":null},
			{"action":"setPlaybackRate","nodeGroupId":1,"playbackRate":0.5}
		],
		"audioCmds": [{"audioUrl":"sounds/hit.mp3","requestId":7}]
	}`, t0, t0+1000)

	got, err := protocol.DecodeBatch([]byte(msg))
	if err != nil {
		t.Fatalf("DecodeBatch() error = %v", err)
	}

	want := dispatch.Batch{
		Audio: []dispatch.Command{
			dispatch.StartSound{
				Handle:  1,
				AssetID: 2,
				Volume:  0.8,
				Timelines: []schedule.Timeline{
					{{Time: at(t0), Volume: 0}, {Time: at(t0 + 1000), Volume: 1}},
				},
				StartTime:    at(t0),
				StartAt:      250 * time.Millisecond,
				Loop:         &schedule.Loop{Start: 100 * time.Millisecond, End: 1500 * time.Millisecond},
				PlaybackRate: 1.5,
			},
			dispatch.StopSound{Handle: 3},
			dispatch.SetVolume{Handle: 1, Volume: 0.25},
			dispatch.SetVolumeAt{Handle: 1, Timelines: []schedule.Timeline{{{Time: at(t0 + 1000), Volume: 0.5}}}},
			dispatch.SetLoopConfig{Handle: 1},
			dispatch.SetPlaybackRate{Handle: 1, PlaybackRate: 0.5},
		},
		Loads: []dispatch.LoadRequest{{URL: "sounds/hit.mp3", RequestID: 7}},
	}

	if len(got.Audio) != len(want.Audio) {
		t.Fatalf("got %d commands, want %d", len(got.Audio), len(want.Audio))
	}
	for i := range want.Audio {
		if !reflect.DeepEqual(got.Audio[i], want.Audio[i]) {
			t.Errorf("audio[%d] = %#v\nwant %#v", i, got.Audio[i], want.Audio[i])
		}
	}
	if !reflect.DeepEqual(got.Loads, want.Loads) {
		t.Errorf("loads = %#v, want %#v", got.Loads, want.Loads)
	}
}

func TestDecodeBatchShortKeys(t *testing.T) {
	t.Parallel()

	msg := fmt.Sprintf(`{
		"audio": [
			{"action":"startSound","handle":1,"assetId":3,"volume":0.8,"volumeTimelines":[],
			 "startTime":%[1]d,"startAt":0,"loop":null,"playbackRate":1},
			{"action":"setVolumeAt","handle":1,"volumeTimelines":[[{"time":%[1]d,"volume":0.5}]]}
		],
		"audioCmds": [{"url":"a.mp3","requestId":7}]
	}`, t0)

	got, err := protocol.DecodeBatch([]byte(msg))
	if err != nil {
		t.Fatalf("DecodeBatch() error = %v", err)
	}

	want := []dispatch.Command{
		dispatch.StartSound{Handle: 1, AssetID: 3, Volume: 0.8, StartTime: at(t0), PlaybackRate: 1},
		dispatch.SetVolumeAt{Handle: 1, Timelines: []schedule.Timeline{{{Time: at(t0), Volume: 0.5}}}},
	}
	if !reflect.DeepEqual(got.Audio, want) {
		t.Errorf("audio = %#v\nwant %#v", got.Audio, want)
	}
	if loads := []dispatch.LoadRequest{{URL: "a.mp3", RequestID: 7}}; !reflect.DeepEqual(got.Loads, loads) {
		t.Errorf("loads = %#v, want %#v", got.Loads, loads)
	}
}

func TestDecodeBatchDefaults(t *testing.T) {
	t.Parallel()

	got, err := protocol.DecodeBatch([]byte(`{"audio":[
		{"action":"startSound","nodeGroupId":1,"bufferId":0,"volume":1,"volumeTimelines":[],"startTime":0,"startAt":0,"loop":null},
		{"action":"setPlaybackRate","nodeGroupId":1}
	]}`))
	if err != nil {
		t.Fatalf("DecodeBatch() error = %v", err)
	}

	start := got.Audio[0].(dispatch.StartSound)
	if start.PlaybackRate != 1 || start.Loop != nil || start.Timelines != nil {
		t.Errorf("start = %#v, want rate 1, no loop, no timelines", start)
	}
	if rate := got.Audio[1].(dispatch.SetPlaybackRate).PlaybackRate; rate != 1 {
		t.Errorf("setPlaybackRate without a rate = %v, want 1", rate)
	}
	if got.Loads != nil {
		t.Errorf("loads = %v, want none", got.Loads)
	}
}

func TestDecodeBatchFractionalMillis(t *testing.T) {
	t.Parallel()

	got, err := protocol.DecodeBatch([]byte(`{"audio":[{"action":"startSound","handle":1,"assetId":0,"startTime":1000.5,"startAt":12.25}]}`))
	if err != nil {
		t.Fatalf("DecodeBatch() error = %v", err)
	}

	start := got.Audio[0].(dispatch.StartSound)
	if want := time.Unix(1, 500_000); !start.StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", start.StartTime, want)
	}
	if start.StartAt != 12250*time.Microsecond {
		t.Errorf("StartAt = %v, want 12.25ms", start.StartAt)
	}
}

func TestDecodeBatchErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  string
		want error
	}{
		{"unknown action", `{"audio":[{"action":"fadeOut","nodeGroupId":1}]}`, protocol.ErrUnknownAction},
		{"missing action", `{"audio":[{"nodeGroupId":1}]}`, protocol.ErrUnknownAction},
		{"missing handle", `{"audio":[{"action":"setVolume","volume":0.5}]}`, protocol.ErrMissingField},
		{"start without asset", `{"audio":[{"action":"startSound","handle":1}]}`, protocol.ErrMissingField},
		{"malformed", `{"audio":[`, nil},
		{"wrong type", `{"audio":{"action":"stopSound"}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := protocol.DecodeBatch([]byte(tt.msg))
			if err == nil {
				t.Fatal("DecodeBatch() succeeded")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("DecodeBatch() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ev   dispatch.Event
		want string
	}{
		{dispatch.EngineReady{SamplesPerSecond: 48000}, `{"type":2,"samplesPerSecond":48000}`},
		{
			dispatch.LoadSucceeded{RequestID: 7, AssetID: 0, Duration: 1.5},
			`{"type":1,"requestId":7,"bufferId":0,"assetId":0,"durationInSeconds":1.5}`,
		},
		{
			dispatch.LoadFailed{RequestID: 0, Error: "unexpected http status: 404 Not Found"},
			`{"type":0,"requestId":0,"error":"unexpected http status: 404 Not Found"}`,
		},
	}

	for _, tt := range tests {
		got, err := protocol.EncodeEvent(tt.ev)
		if err != nil {
			t.Fatalf("EncodeEvent(%#v) error = %v", tt.ev, err)
		}
		if string(got) != tt.want {
			t.Errorf("EncodeEvent(%#v) = %s, want %s", tt.ev, got, tt.want)
		}
	}
}

func TestEncodeEventUnknown(t *testing.T) {
	t.Parallel()

	if _, err := protocol.EncodeEvent(nil); !errors.Is(err, protocol.ErrUnknownEvent) {
		t.Errorf("EncodeEvent(nil) error = %v, want ErrUnknownEvent", err)
	}
}
