// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files into interleaved PCM16 using
// github.com/jfreymuth/oggvorbis.
//
// The decoder works on float samples internally; they are converted with
// utils.Float32ToInt16, so out-of-range values saturate. Reads are always a
// whole number of frames. Stream length is not known up front and Len
// returns -1, which makes the engine use its default buffer size.
package vorbis
