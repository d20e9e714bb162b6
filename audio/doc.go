// SPDX-License-Identifier: EPL-2.0

// Package audio holds the per-source building blocks of the engine.
//
// # Streams
//
// A Stream is a decoded PCM16 input with a fixed sample rate and channel
// count. Decoders for each container live under formats/ and are looked up
// through a Registry keyed by file extension:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	dec, ok := reg.Get(filepath.Ext(path))
//
// # Buffering
//
// StreamBuffer is a fixed window over a SampleReader with a read cursor and
// a fill boundary. TopUp moves the unread tail to the front and refills the
// rest, so samples are served exactly once and in order.
//
// Prefetcher decodes a stream on its own goroutine into a lock-free
// single-producer/single-consumer ring. Placing it between a Stream and a
// StreamBuffer keeps file I/O out of the audio callback:
//
//	pf := audio.NewPrefetcher(stream, audio.DefaultPrefetchSamples, logger)
//	_ = pf.Start(ctx)
//	src, err := audio.NewSource(pf, audio.SourceOptions{Channels: 2, ...})
//
// # Sources
//
// Source adds playback state, a volume percentage with a squared
// perceptual curve, and a world position. Render mixes a block of frames
// additively into an int32 accumulator. Control methods (Play, Pause,
// SetVolume, SetPosition) are safe to call while the audio callback
// renders.
//
// A source becomes Finished only when a render comes up short and the
// underlying reader has reported io.EOF. A short render without EOF is
// counted as an underrun and playback continues.
package audio
