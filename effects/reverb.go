// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"fmt"

	"github.com/ik5/audengine/utils"
)

// Base delay line lengths in milliseconds before room scaling.
var reverbBaseMs = [4]float32{29, 37, 47, 59}

// hadamard4 is the 4x4 Hadamard matrix; rows are scaled by 1/sqrt(4) when
// mixing.
var hadamard4 = [4][4]float32{
	{1, 1, 1, 1},
	{1, -1, 1, -1},
	{1, 1, -1, -1},
	{1, -1, -1, 1},
}

// ReverbParams configures a Reverb.
type ReverbParams struct {
	// RoomSize scales the delay lines, designed for 0.5 to 5.
	RoomSize float32
	// Decay is the feedback gain in [0, 1].
	Decay float32
	// Damping is the one-pole lowpass coefficient in [0, 1].
	Damping float32
	// Wet is the wet/dry blend in [0, 1].
	Wet float32
}

// Reverb is a four-line feedback delay network.
type Reverb struct {
	lines [4][]int16
	pos   [4]int
	// filtered holds the lowpass state per line and per channel.
	filtered [4][]float32
	channel  int

	damping  float32
	feedback float32
	wet      float32
}

// NewReverb builds a reverb for an interleaved stream of the given rate and
// channel count. A scaled delay line longer than one second is rejected.
func NewReverb(sampleRate, channels int, p ReverbParams) (Effect, error) {
	if sampleRate <= 0 || channels <= 0 {
		return Effect{}, fmt.Errorf("%w: rate=%d channels=%d", ErrInvalidParam, sampleRate, channels)
	}
	if p.RoomSize <= 0 {
		return Effect{}, fmt.Errorf("%w: %v", ErrInvalidRoomSize, p.RoomSize)
	}
	for name, v := range map[string]float32{"decay": p.Decay, "damping": p.Damping, "wet": p.Wet} {
		if v < 0 || v > 1 {
			return Effect{}, fmt.Errorf("%w: %s=%v", ErrInvalidParam, name, v)
		}
	}

	r := &Reverb{
		damping:  p.Damping,
		feedback: min(p.RoomSize, 1) * p.Decay,
		wet:      p.Wet,
	}

	for i, ms := range reverbBaseMs {
		n := delaySamples(ms*p.RoomSize, sampleRate, channels)
		if n/channels > sampleRate {
			return Effect{}, fmt.Errorf("%w: line %d is %d frames at %d Hz",
				ErrDelayTooLong, i, n/channels, sampleRate)
		}
		r.lines[i] = make([]int16, n)
		r.filtered[i] = make([]float32, channels)
	}

	return Effect{kind: KindReverb, reverb: r}, nil
}

// Lens returns the four delay line lengths in samples.
func (r *Reverb) Lens() [4]int {
	var out [4]int
	for i := range r.lines {
		out[i] = len(r.lines[i])
	}

	return out
}

func (r *Reverb) process(x int32) int32 {
	in := float32(x)
	c := r.channel

	var taps [4]float32
	for i := range r.lines {
		tap := float32(r.lines[i][r.pos[i]])
		taps[i] = (1-r.damping)*tap + r.damping*r.filtered[i][c]
		r.filtered[i][c] = taps[i]
	}

	var wet float32
	for i := range r.lines {
		var mixed float32
		for j, h := range hadamard4[i] {
			mixed += h * taps[j]
		}
		mixed *= 0.5

		r.lines[i][r.pos[i]] = utils.SaturateInt16(mixed*r.feedback + in)
		r.pos[i]++
		if r.pos[i] == len(r.lines[i]) {
			r.pos[i] = 0
		}

		wet += taps[i]
	}
	wet /= 4

	r.channel++
	if r.channel == len(r.filtered[0]) {
		r.channel = 0
	}

	return utils.SaturateInt32((1-r.wet)*in + r.wet*wet)
}

func (r *Reverb) reset() {
	for i := range r.lines {
		clear(r.lines[i])
		r.pos[i] = 0
		clear(r.filtered[i])
	}
	r.channel = 0
}
