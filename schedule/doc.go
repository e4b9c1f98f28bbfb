// SPDX-License-Identifier: EPL-2.0

// Package schedule turns wall-clock playback requests into backend node
// graphs.
//
// Every batch of commands is handled against one Clock, a snapshot pairing
// the wall-clock instant the batch arrived with the backend's rendering
// clock at that moment. Keyframes and start times are translated through it,
// so all commands in a batch agree on what "now" is.
//
// A sounding instance is a NodeGroup: a source node feeding a gain node,
// followed by one envelope gain node per volume timeline, ending at the
// backend's destination.
//
// Two behaviors are deliberately left as they are. A late start on a looping
// sound skips ahead by the elapsed time without wrapping it around the loop,
// and changing the loop of a playing sound only moves its markers: the
// buffer is sized once, when the sound starts.
package schedule
