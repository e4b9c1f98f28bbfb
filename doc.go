// SPDX-License-Identifier: EPL-2.0

// Package audsched schedules and mixes sound playback against a wall-clock
// timeline.
//
// A host sends batches of declarative commands: start a sound, stop it,
// change its volume now or along a timeline, move its loop region, change
// its playback rate, load a new asset. The scheduler turns them into a graph
// of source and gain nodes on a rendering backend, with every parameter
// change placed on the backend clock so that sounds line up with the host's
// notion of time, including when a command arrives after its nominal start.
//
// # Packages
//
//   - schedule translates wall-clock instants to backend time, builds volume
//     envelopes, pads loop buffers and assembles node chains.
//   - dispatch applies command batches, keeps the registry of playing sounds
//     and runs asset loads in the background.
//   - protocol reads and writes the JSON form of batches and events.
//   - backend defines the primitive set the scheduler needs from an audio
//     engine; backend/mixer implements it on top of beep.
//   - loader fetches and decodes assets through the formats decoders.
//   - config reads settings from YAML and the environment.
//
// # Quick Start
//
//	eng, err := mixer.Open(mixer.Options{SampleRate: 48000})
//	if err != nil {
//	    // no audio device: pass a nil backend for silent mode
//	}
//	d, _ := dispatch.New(eng, dispatch.Options{})
//	batch, _ := protocol.DecodeBatch(msg)
//	if err := d.ProcessBatch(batch); err != nil {
//	    log.Fatal(err)
//	}
//	for ev := range d.Events() {
//	    out, _ := protocol.EncodeEvent(ev)
//	    fmt.Println(string(out))
//	}
//
// # Offline Rendering
//
// The mixer does not need an audio device. RenderWAV pulls any beep
// streamer, the mixer included, for a fixed duration and writes the result
// as 16-bit stereo WAV.
package audsched
