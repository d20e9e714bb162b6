// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"fmt"

	"github.com/ik5/audengine/utils"
)

// CombFilter is a feedback comb: y[n] = x[n] + feedback*y[n-D].
type CombFilter struct {
	line     []int16
	pos      int
	feedback float32
}

// NewComb builds a comb filter with a delay of delayMs milliseconds on an
// interleaved stream of the given rate and channel count.
func NewComb(sampleRate, channels int, delayMs, feedback float32) (Effect, error) {
	if sampleRate <= 0 || channels <= 0 {
		return Effect{}, fmt.Errorf("%w: rate=%d channels=%d", ErrInvalidParam, sampleRate, channels)
	}
	if delayMs <= 0 {
		return Effect{}, fmt.Errorf("%w: %vms", ErrInvalidDelay, delayMs)
	}
	if feedback <= -1 || feedback >= 1 {
		return Effect{}, fmt.Errorf("%w: %v", ErrInvalidFeedback, feedback)
	}
	if delayMs > 1000 {
		return Effect{}, fmt.Errorf("%w: %vms", ErrDelayTooLong, delayMs)
	}

	c := &CombFilter{
		line:     make([]int16, delaySamples(delayMs, sampleRate, channels)),
		feedback: feedback,
	}

	return Effect{kind: KindComb, comb: c}, nil
}

// Len is the delay line length in samples.
func (c *CombFilter) Len() int { return len(c.line) }

func (c *CombFilter) process(x int32) int32 {
	delayed := c.line[c.pos]
	y := float32(x) + c.feedback*float32(delayed)

	// The line holds the clamped output so feedback cannot run away.
	c.line[c.pos] = utils.SaturateInt16(y)
	c.pos++
	if c.pos == len(c.line) {
		c.pos = 0
	}

	return utils.SaturateInt32(y)
}

func (c *CombFilter) reset() {
	clear(c.line)
	c.pos = 0
}
