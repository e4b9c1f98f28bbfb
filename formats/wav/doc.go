// SPDX-License-Identifier: EPL-2.0

// Package wav decodes integer PCM WAV files (8, 16, 24 and 32 bit) on top of
// github.com/go-audio/wav, and writes 16-bit PCM WAV files for offline renders.
//
// Any RIFF chunk layout accepted by go-audio/wav is supported; LIST/INFO and
// other unknown chunks are skipped. Input that is not an io.ReadSeeker is
// buffered in memory first.
package wav
