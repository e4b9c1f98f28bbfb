// SPDX-License-Identifier: EPL-2.0

// Package audio holds the sample-level building blocks of asset loading.
//
// A Source streams interleaved float32 samples in [-1, 1]. Decoders in the
// formats packages produce Sources, and a Registry maps format keys to
// those decoders. Sources chain: MonoMixer averages channels down to one,
// Resampler converts to another rate with cubic interpolation.
//
//	src, _ := dec.Decode(r)
//	src = audio.NewResampler(audio.NewMonoMixer(src), 48000)
//	buf, err := audio.ReadAll(src)
//
// ReadAll drains a chain into a Buffer, the planar in-memory form the
// playback engine consumes. A Buffer is shared by every sound playing it and
// must not be modified once loaded.
//
// Sources report the end of the stream with io.EOF. A Source that keeps
// returning no samples without EOF makes ReadAll fail with ErrStalled.
package audio
