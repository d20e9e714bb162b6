// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{name: "zero", input: 0.0, want: 0},
		{name: "max positive", input: 1.0, want: math.MaxInt16},
		{name: "max negative", input: -1.0, want: -math.MaxInt16},
		{name: "half", input: 0.5, want: 16383},
		{name: "clamp above", input: 2.5, want: math.MaxInt16},
		{name: "clamp below", input: -7, want: -math.MaxInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Float32ToInt16(tt.input); got != tt.want {
				t.Errorf("Float32ToInt16(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestClampInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input int32
		want  int16
	}{
		{0, 0},
		{1234, 1234},
		{-1234, -1234},
		{math.MaxInt16, math.MaxInt16},
		{math.MinInt16, math.MinInt16},
		{math.MaxInt16 + 1, math.MaxInt16},
		{math.MinInt16 - 1, math.MinInt16},
		{math.MaxInt32, math.MaxInt16},
		{math.MinInt32, math.MinInt16},
	}

	for _, tt := range tests {
		if got := ClampInt16(tt.input); got != tt.want {
			t.Errorf("ClampInt16(%d) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestSaturateInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input float32
		want  int16
	}{
		{0, 0},
		{100.9, 100},
		{-100.9, -100},
		{40000, math.MaxInt16},
		{-40000, math.MinInt16},
	}

	for _, tt := range tests {
		if got := SaturateInt16(tt.input); got != tt.want {
			t.Errorf("SaturateInt16(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestSaturateInt32(t *testing.T) {
	t.Parallel()

	nan := float32(math.NaN())
	if got := SaturateInt32(nan); got != 0 {
		t.Errorf("SaturateInt32(NaN) = %d, want 0", got)
	}
	if got := SaturateInt32(1e12); got != math.MaxInt32 {
		t.Errorf("SaturateInt32(1e12) = %d, want MaxInt32", got)
	}
	if got := SaturateInt32(-1e12); got != math.MinInt32 {
		t.Errorf("SaturateInt32(-1e12) = %d, want MinInt32", got)
	}
	if got := SaturateInt32(-42.5); got != -42 {
		t.Errorf("SaturateInt32(-42.5) = %d, want -42", got)
	}
}

func TestClampInt16_ZeroAllocs(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		for i := int32(-70000); i < 70000; i += 997 {
			_ = ClampInt16(i)
		}
	})

	if allocs > 0 {
		t.Errorf("ClampInt16 allocated %v times, want 0", allocs)
	}
}

func BenchmarkClampInt16(b *testing.B) {
	acc := make([]int32, 1024)
	for i := range acc {
		acc[i] = int32(i*97) - 50000
	}
	out := make([]int16, len(acc))

	b.ResetTimer()
	for range b.N {
		for i, v := range acc {
			out[i] = ClampInt16(v)
		}
	}
}
