// SPDX-License-Identifier: EPL-2.0

package effects

import "fmt"

// Chain runs effects in declaration order. A Chain is owned by one audio
// callback at a time; replace it as a whole rather than mutating it while
// it is in use.
type Chain struct {
	stages []Effect
}

func NewChain(stages ...Effect) *Chain {
	return &Chain{stages: stages}
}

// Len is the number of stages. A nil chain has none.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}

	return len(c.stages)
}

// Kinds lists the stage kinds in order.
func (c *Chain) Kinds() []Kind {
	out := make([]Kind, c.Len())
	for i := range out {
		out[i] = c.stages[i].kind
	}

	return out
}

// Process passes one sample through every stage in order.
func (c *Chain) Process(x int32) int32 {
	if c == nil {
		return x
	}
	for _, e := range c.stages {
		x = e.Process(x)
	}

	return x
}

// ProcessBlock runs every sample of an interleaved block through the chain
// in place.
func (c *Chain) ProcessBlock(buf []int32) {
	if c.Len() == 0 {
		return
	}
	for i, x := range buf {
		buf[i] = c.Process(x)
	}
}

// Reset clears the state of every stage.
func (c *Chain) Reset() {
	if c == nil {
		return
	}
	for _, e := range c.stages {
		e.Reset()
	}
}

// Params is the configuration form of one effect stage. Fields that do not
// apply to a kind are ignored.
type Params struct {
	Kind     string  `mapstructure:"kind"`
	DelayMs  float32 `mapstructure:"delayms"`
	Feedback float32 `mapstructure:"feedback"`
	RoomSize float32 `mapstructure:"roomsize"`
	Decay    float32 `mapstructure:"decay"`
	Damping  float32 `mapstructure:"damping"`
	Wet      float32 `mapstructure:"wet"`
}

// Build constructs the effect described by p.
func (p Params) Build(sampleRate, channels int) (Effect, error) {
	kind, err := ParseKind(p.Kind)
	if err != nil {
		return Effect{}, err
	}

	switch kind {
	case KindComb:
		return NewComb(sampleRate, channels, p.DelayMs, p.Feedback)
	default:
		return NewReverb(sampleRate, channels, ReverbParams{
			RoomSize: p.RoomSize,
			Decay:    p.Decay,
			Damping:  p.Damping,
			Wet:      p.Wet,
		})
	}
}

// FromConfig builds a chain from configuration entries, in order.
func FromConfig(params []Params, sampleRate, channels int) (*Chain, error) {
	stages := make([]Effect, 0, len(params))
	for i, p := range params {
		e, err := p.Build(sampleRate, channels)
		if err != nil {
			return nil, fmt.Errorf("effect %d (%s): %w", i, p.Kind, err)
		}
		stages = append(stages, e)
	}

	return NewChain(stages...), nil
}
