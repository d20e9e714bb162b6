// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "comb", want: KindComb},
		{in: " Reverb ", want: KindReverb},
		{in: "chorus", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownKind) {
				t.Errorf("ParseKind(%q) error = %v, want ErrUnknownKind", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	if KindComb.String() != "comb" || KindReverb.String() != "reverb" || Kind(7).String() != "Kind(7)" {
		t.Error("unexpected Kind names")
	}
}

func TestComb_ImpulseResponse(t *testing.T) {
	t.Parallel()

	// 1 kHz mono, 3 ms delay = 3 samples.
	e, err := NewComb(1000, 1, 3, 0.5)
	if err != nil {
		t.Fatalf("NewComb() error = %v", err)
	}
	if e.Kind() != KindComb || e.comb.Len() != 3 {
		t.Fatalf("kind=%v len=%d, want comb with 3 samples", e.Kind(), e.comb.Len())
	}

	got := make([]int32, 10)
	for i := range got {
		var x int32
		if i == 0 {
			x = 1000
		}
		got[i] = e.Process(x)
	}

	want := []int32{1000, 0, 0, 500, 0, 0, 250, 0, 0, 125}
	if !slices.Equal(got, want) {
		t.Errorf("impulse response = %v, want %v", got, want)
	}

	e.Reset()
	if y := e.Process(0); y != 0 {
		t.Errorf("Process() after Reset = %d, want 0", y)
	}
}

func TestComb_ChannelAligned(t *testing.T) {
	t.Parallel()

	e, _ := NewComb(1000, 2, 3, 0.5)
	if e.comb.Len() != 6 {
		t.Fatalf("Len() = %d, want 6 (3 frames x 2 channels)", e.comb.Len())
	}

	// Left impulse only: the echo must land on the left channel again.
	got := make([]int32, 8)
	for i := range got {
		var x int32
		if i == 0 {
			x = 1000
		}
		got[i] = e.Process(x)
	}
	if got[6] != 500 || got[7] != 0 {
		t.Errorf("echo = %v, want left-channel echo at index 6", got)
	}
}

func TestNewComb_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rate, ch int
		delay    float32
		feedback float32
		want     error
	}{
		{name: "zero delay", rate: 48000, ch: 2, delay: 0, feedback: 0.5, want: ErrInvalidDelay},
		{name: "unity feedback", rate: 48000, ch: 2, delay: 10, feedback: 1, want: ErrInvalidFeedback},
		{name: "negative unity feedback", rate: 48000, ch: 2, delay: 10, feedback: -1, want: ErrInvalidFeedback},
		{name: "over one second", rate: 48000, ch: 2, delay: 1500, feedback: 0.5, want: ErrDelayTooLong},
		{name: "no channels", rate: 48000, ch: 0, delay: 10, feedback: 0.5, want: ErrInvalidParam},
	}

	for _, tt := range tests {
		if _, err := NewComb(tt.rate, tt.ch, tt.delay, tt.feedback); !errors.Is(err, tt.want) {
			t.Errorf("%s: NewComb() error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestComb_SaturatesLine(t *testing.T) {
	t.Parallel()

	e, _ := NewComb(1000, 1, 1, 0.99)
	for range 10000 {
		e.Process(math.MaxInt16)
	}
	for _, v := range e.comb.line {
		if v != math.MaxInt16 {
			t.Fatalf("line sample = %d, want saturated %d", v, math.MaxInt16)
		}
	}
}

func TestNewReverb_Lengths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		room float32
		ch   int
		want [4]int
	}{
		{name: "unit room mono", room: 1, ch: 1, want: [4]int{29, 37, 47, 59}},
		{name: "unit room stereo", room: 1, ch: 2, want: [4]int{58, 74, 94, 118}},
		{name: "double room", room: 2, ch: 1, want: [4]int{58, 74, 94, 118}},
	}

	for _, tt := range tests {
		e, err := NewReverb(1000, tt.ch, ReverbParams{RoomSize: tt.room, Decay: 0.5, Damping: 0.2, Wet: 0.3})
		if err != nil {
			t.Fatalf("%s: NewReverb() error = %v", tt.name, err)
		}
		if got := e.reverb.Lens(); got != tt.want {
			t.Errorf("%s: Lens() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewReverb_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    ReverbParams
		want error
	}{
		{name: "room too large", p: ReverbParams{RoomSize: 20, Decay: 0.5}, want: ErrDelayTooLong},
		{name: "zero room", p: ReverbParams{RoomSize: 0}, want: ErrInvalidRoomSize},
		{name: "decay above one", p: ReverbParams{RoomSize: 1, Decay: 1.5}, want: ErrInvalidParam},
		{name: "negative damping", p: ReverbParams{RoomSize: 1, Damping: -0.1}, want: ErrInvalidParam},
		{name: "wet above one", p: ReverbParams{RoomSize: 1, Wet: 2}, want: ErrInvalidParam},
	}

	for _, tt := range tests {
		if _, err := NewReverb(48000, 2, tt.p); !errors.Is(err, tt.want) {
			t.Errorf("%s: NewReverb() error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestReverb_DryPassthrough(t *testing.T) {
	t.Parallel()

	e, _ := NewReverb(8000, 2, ReverbParams{RoomSize: 1, Decay: 0.9, Damping: 0.3, Wet: 0})

	for i := range 2000 {
		x := int32(i%200 - 100)
		if y := e.Process(x); y != x {
			t.Fatalf("Process(%d) = %d with wet=0", x, y)
		}
	}
}

func TestReverb_ProducesTail(t *testing.T) {
	t.Parallel()

	e, _ := NewReverb(1000, 1, ReverbParams{RoomSize: 1, Decay: 0.8, Damping: 0, Wet: 1})

	e.Process(20000)
	var tail int
	for range 500 {
		if e.Process(0) != 0 {
			tail++
		}
	}
	if tail == 0 {
		t.Error("reverb produced no tail after an impulse")
	}
}

func TestReverb_ChannelsStaySeparate(t *testing.T) {
	t.Parallel()

	for _, ch := range []int{2, 3} {
		e, _ := NewReverb(8000, ch, ReverbParams{RoomSize: 1, Decay: 0.5, Damping: 0.5, Wet: 1})

		var leftTail bool
		for i := range 4000 * ch {
			var x int32
			if i%ch == 0 && i < 2000*ch {
				x = 10000
			}
			y := e.Process(x)

			switch {
			case i%ch != 0 && y != 0:
				t.Fatalf("%d channels: channel %d sample %d = %d for left-only input", ch, i%ch, i/ch, y)
			case i%ch == 0 && i >= 2000*ch && y != 0:
				leftTail = true
			}
		}
		if !leftTail {
			t.Errorf("%d channels: left channel produced no tail", ch)
		}
	}
}

func TestReverb_Reset(t *testing.T) {
	t.Parallel()

	e, _ := NewReverb(8000, 2, ReverbParams{RoomSize: 1, Decay: 0.7, Damping: 0.4, Wet: 1})
	for range 1000 {
		e.Process(12000)
	}
	e.Reset()

	for i := range 4000 {
		if y := e.Process(0); y != 0 {
			t.Fatalf("sample %d after Reset = %d, want 0", i, y)
		}
	}
}

// For room size and decay within [0, 1] the network stays bounded no matter
// how long it is driven.
func TestReverb_Bounded(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))

	for _, p := range []ReverbParams{
		{RoomSize: 1, Decay: 1, Damping: 0, Wet: 1},
		{RoomSize: 0.5, Decay: 0.9, Damping: 0.5, Wet: 0.5},
		{RoomSize: 1, Decay: 1, Damping: 0.99, Wet: 0.7},
	} {
		e, err := NewReverb(8000, 2, p)
		if err != nil {
			t.Fatalf("NewReverb(%+v) error = %v", p, err)
		}

		for i := range 200000 {
			x := int32(math.MaxInt16)
			if rng.IntN(2) == 0 {
				x = math.MinInt16
			}
			y := e.Process(x)
			if y > math.MaxInt16 || y < math.MinInt16 {
				t.Fatalf("%+v: sample %d = %d escapes PCM16 range", p, i, y)
			}
		}
	}
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	build := func() (Effect, Effect) {
		c, _ := NewComb(1000, 1, 2, 0.7)
		r, _ := NewReverb(1000, 1, ReverbParams{RoomSize: 0.5, Decay: 0.6, Damping: 0.1, Wet: 0.5})
		return c, r
	}

	c1, r1 := build()
	chain := NewChain(c1, r1)
	c2, r2 := build()

	for i := range 300 {
		x := int32((i * 977) % 20000)
		if got, want := chain.Process(x), r2.Process(c2.Process(x)); got != want {
			t.Fatalf("sample %d: chain = %d, manual = %d", i, got, want)
		}
	}

	if !slices.Equal(chain.Kinds(), []Kind{KindComb, KindReverb}) {
		t.Errorf("Kinds() = %v", chain.Kinds())
	}
}

func TestChain_Nil(t *testing.T) {
	t.Parallel()

	var c *Chain
	if c.Len() != 0 || c.Process(42) != 42 {
		t.Error("nil chain is not a passthrough")
	}

	buf := []int32{1, 2, 3}
	c.ProcessBlock(buf)
	c.Reset()
	if !slices.Equal(buf, []int32{1, 2, 3}) {
		t.Errorf("ProcessBlock() on nil chain changed buf to %v", buf)
	}
}

func TestChain_ProcessBlock(t *testing.T) {
	t.Parallel()

	e, _ := NewComb(1000, 1, 1, 0.5)
	chain := NewChain(e)

	buf := []int32{1000, 0, 0}
	chain.ProcessBlock(buf)

	if !slices.Equal(buf, []int32{1000, 500, 250}) {
		t.Errorf("ProcessBlock() = %v, want [1000 500 250]", buf)
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	chain, err := FromConfig([]Params{
		{Kind: "comb", DelayMs: 50, Feedback: 0.4},
		{Kind: "reverb", RoomSize: 1.5, Decay: 0.7, Damping: 0.3, Wet: 0.25},
	}, 48000, 2)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if chain.Len() != 2 {
		t.Errorf("Len() = %d, want 2", chain.Len())
	}

	_, err = FromConfig([]Params{{Kind: "comb", DelayMs: 10, Feedback: 0.2}, {Kind: "flanger"}}, 48000, 2)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("FromConfig() error = %v, want ErrUnknownKind", err)
	}

	empty, err := FromConfig(nil, 48000, 2)
	if err != nil || empty.Len() != 0 {
		t.Errorf("FromConfig(nil) = %v, %v, want empty chain", empty, err)
	}
}

func BenchmarkChain_ProcessBlock(b *testing.B) {
	chain, _ := FromConfig([]Params{
		{Kind: "comb", DelayMs: 50, Feedback: 0.4},
		{Kind: "reverb", RoomSize: 1, Decay: 0.7, Damping: 0.3, Wet: 0.25},
	}, 48000, 2)
	buf := make([]int32, 1024)

	b.ReportAllocs()
	for b.Loop() {
		chain.ProcessBlock(buf)
	}
}
