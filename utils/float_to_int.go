// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Float32ToInt16 converts a normalized sample in [-1,1] to PCM16.
func Float32ToInt16(x float32) int16 {
	// Clamp and scale
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Use 32767 for positive max to avoid overflow
	return int16(x * 32767.0)
}

// ClampInt16 narrows a wide accumulator sample to the PCM16 range.
func ClampInt16(x int32) int16 {
	if x > math.MaxInt16 {
		return math.MaxInt16
	}
	if x < math.MinInt16 {
		return math.MinInt16
	}

	return int16(x)
}

// SaturateInt16 converts a sample already in PCM16 scale (not normalized)
// to int16, saturating at the edges of the range.
func SaturateInt16(x float32) int16 {
	if x >= math.MaxInt16 {
		return math.MaxInt16
	}
	if x <= math.MinInt16 {
		return math.MinInt16
	}

	return int16(x)
}

// SaturateInt32 is SaturateInt16 for the wide accumulator. NaN maps to 0.
func SaturateInt32(x float32) int32 {
	if x != x {
		return 0
	}
	if x >= math.MaxInt32 {
		return math.MaxInt32
	}
	if x <= math.MinInt32 {
		return math.MinInt32
	}

	return int32(x)
}
