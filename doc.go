// SPDX-License-Identifier: EPL-2.0

// Package audengine is a small real-time audio engine: it streams PCM16
// files from disk, mixes any number of sources with per-source volume and
// listener-relative stereo panning, runs the mix through an ordered effects
// chain and hands the result to an output device.
//
// # Quick Start
//
//	backend, _ := device.NewMalgoBackend(slog.Default())
//	eng, _ := audengine.New(backend, audengine.Options{SampleRate: 48000, Channels: 2})
//	defer eng.Close()
//
//	id, _ := eng.AddSource("steps.wav", 100, mgl32.Vec3{2, 0, -1})
//	_ = eng.Start("")
//	_ = eng.Wait(ctx)
//
// # Sources
//
// AddSource picks a decoder by file extension (wav, mp3, ogg, aiff) and
// rejects any stream whose rate or channel count differs from the engine.
// Each source decodes on its own goroutine into a lock-free ring; the audio
// callback only copies from that ring.
//
// Sources start Playing unless WithPaused is given. TogglePlay flips
// between Playing and Paused; a source that reaches the end of its stream
// becomes Finished and stays that way.
//
// # Spatialization
//
// Spatial sources are panned with a linear law relative to the listener's
// right vector and attenuated by 1/distance. WithNonSpatial sources are
// mixed at their own volume on every channel.
//
// # Effects
//
// SetEffects installs a chain of comb filters and feedback delay network
// reverbs that runs on the summed bus after mixing, in declared order.
//
// # Devices
//
// The engine drives any device.Backend: miniaudio through malgo, oto, or a
// WAV file renderer for offline mixdowns. SwitchDevice stops the current
// device, waits for its callback to return and opens the next one.
package audengine
