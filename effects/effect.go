// SPDX-License-Identifier: EPL-2.0

// Package effects implements the post-mix effects chain: a feedback comb
// filter and a four-line feedback delay network reverb.
//
// Effects work on the interleaved int32 mix bus one sample at a time and
// keep private state between calls, so a chain must see every output sample
// exactly once and in order. Delay lengths are whole frames, which keeps
// each channel's delayed tap on the same channel.
package effects

import (
	"fmt"
	"strings"
)

// Kind identifies an effect variant.
type Kind int

const (
	KindComb Kind = iota + 1
	KindReverb
)

func (k Kind) String() string {
	switch k {
	case KindComb:
		return "comb"
	case KindReverb:
		return "reverb"
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "comb":
		return KindComb, nil
	case "reverb":
		return KindReverb, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Effect is a closed set of variants. Exactly one of the variant pointers
// is set, matching kind.
type Effect struct {
	kind   Kind
	comb   *CombFilter
	reverb *Reverb
}

func (e Effect) Kind() Kind { return e.kind }

// Process runs one sample through the effect and returns the result. It
// is the single dispatch point over the variants.
func (e Effect) Process(x int32) int32 {
	switch e.kind {
	case KindComb:
		return e.comb.process(x)
	case KindReverb:
		return e.reverb.process(x)
	}

	return x
}

// Reset clears the effect's internal state.
func (e Effect) Reset() {
	switch e.kind {
	case KindComb:
		e.comb.reset()
	case KindReverb:
		e.reverb.reset()
	}
}

// delaySamples converts a delay in milliseconds to a whole number of
// interleaved frames, expressed in samples.
func delaySamples(ms float32, sampleRate, channels int) int {
	frames := int(ms * float32(sampleRate) / 1000)

	return max(frames, 1) * channels
}
