// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrFormatMismatch  = errors.New("stream format does not match engine format")
	ErrInvalidCapacity = errors.New("buffer capacity must be a positive multiple of channels")
	ErrInvalidChannels = errors.New("channel count must be positive")
	ErrPrefetchStarted = errors.New("prefetcher already started")
	ErrUnknownFormat   = errors.New("no decoder registered for format")
)
