// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// DefaultBufferSamples is the capacity ceiling of a StreamBuffer in samples
// (64 KiB of PCM16).
const DefaultBufferSamples = 32 * 1024

// BufferCapacity picks the capacity of a StreamBuffer: the stream length
// when it is known and smaller than ceiling, the ceiling otherwise, rounded
// down to whole frames. The result is never below one frame.
func BufferCapacity(streamLen, ceiling, channels int) int {
	if channels <= 0 {
		channels = 1
	}
	if ceiling <= 0 {
		ceiling = DefaultBufferSamples
	}

	c := ceiling
	if streamLen >= 0 && streamLen < c {
		c = streamLen
	}
	c -= c % channels
	if c < channels {
		c = channels
	}

	return c
}

// StreamBuffer is a fixed-capacity window over a SampleReader.
//
// The unread span is samples[index:end]. Invariant: 0 <= index <= end <= cap.
// Only Reload and TopUp move end; only Advance moves index forward.
type StreamBuffer struct {
	r       SampleReader
	samples []int16
	index   int
	end     int
	eof     bool
	err     error
}

// NewStreamBuffer allocates a buffer of capacity samples over r. The buffer
// is empty until Reload is called.
func NewStreamBuffer(r SampleReader, capacity int) (*StreamBuffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	return &StreamBuffer{
		r:       r,
		samples: make([]int16, capacity),
	}, nil
}

// Reload discards everything buffered and fills the buffer from the
// reader's current position up to capacity.
func (b *StreamBuffer) Reload() error {
	b.index = 0
	b.end = 0

	return b.fill()
}

// TopUp moves the unread tail to the front of the buffer and fills the
// freed space from the reader. index resets to 0.
func (b *StreamBuffer) TopUp() error {
	if b.index > 0 {
		n := copy(b.samples, b.samples[b.index:b.end])
		b.index = 0
		b.end = n
	}

	return b.fill()
}

// fill reads until the buffer is full, the reader is drained for now, or
// the reader reports end of stream. A short fill with EOF leaves end < cap,
// which is the end-of-stream signal consumers act on.
func (b *StreamBuffer) fill() error {
	for b.end < len(b.samples) && !b.eof {
		n, err := b.r.ReadSamples(b.samples[b.end:])
		b.end += n

		if errors.Is(err, io.EOF) {
			b.eof = true
			break
		}
		if err != nil {
			// An unreadable stream cannot recover; treat it as ended.
			b.eof = true
			b.err = fmt.Errorf("refill: %w", err)
			return b.err
		}
		if n == 0 {
			break
		}
	}

	return nil
}

// Available is the number of unread samples.
func (b *StreamBuffer) Available() int { return b.end - b.index }

// Unread returns the unread span. It is only valid until the next
// Reload, TopUp or Advance.
func (b *StreamBuffer) Unread() []int16 { return b.samples[b.index:b.end] }

// Advance consumes n samples from the unread span.
func (b *StreamBuffer) Advance(n int) {
	if n < 0 {
		return
	}
	b.index = min(b.index+n, b.end)
}

// Cap is the fixed capacity in samples.
func (b *StreamBuffer) Cap() int { return len(b.samples) }

// Index is the read cursor.
func (b *StreamBuffer) Index() int { return b.index }

// End is the fill boundary.
func (b *StreamBuffer) End() int { return b.end }

// EOF reports whether the reader has been exhausted.
func (b *StreamBuffer) EOF() bool { return b.eof }

// Err returns the read error that ended the stream, if any.
func (b *StreamBuffer) Err() error { return b.err }
