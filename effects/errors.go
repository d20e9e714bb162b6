// SPDX-License-Identifier: EPL-2.0

package effects

import "errors"

var (
	ErrUnknownKind     = errors.New("unknown effect kind")
	ErrInvalidDelay    = errors.New("effect delay must be positive")
	ErrInvalidFeedback = errors.New("comb feedback must be within (-1, 1)")
	ErrInvalidRoomSize = errors.New("reverb room size must be positive")
	// ErrDelayTooLong is returned when a scaled delay line would exceed one
	// second of audio.
	ErrDelayTooLong = errors.New("delay line longer than one second")
	ErrInvalidParam = errors.New("effect parameter out of range")
)
