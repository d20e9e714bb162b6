// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1 Layer III files into interleaved PCM16.
//
// It wraps github.com/hajimehoshi/go-mp3, which always produces 16-bit
// little-endian stereo. The resulting audio.Stream reports two channels and
// the file's own sample rate; a stream whose rate differs from the output
// device is rejected when it is added to an engine.
//
//	f, _ := os.Open("theme.mp3")
//	stream, err := mp3.Decoder{}.Decode(f)
//	if err != nil {
//	    // not an MP3 file
//	}
//	defer stream.Close()
//
// Len reports the decoded length when the input is seekable and -1
// otherwise.
package mp3
