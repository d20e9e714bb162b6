// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audengine/audio"
)

type wavSource struct {
	r         io.Reader
	header    Header
	remaining int64 // bytes left in the data chunk
	buf       []byte
}

func (s *wavSource) SampleRate() int { return int(s.header.SampleRate) }
func (s *wavSource) Channels() int { return int(s.header.Channels) }
func (s *wavSource) Len() int { return s.header.Samples() }

// Header returns the parsed header of the stream.
func (s *wavSource) Header() Header { return s.header }

func (s *wavSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}

// ReadSamples reads little-endian PCM16 samples from the data chunk. A file
// shorter than its declared data size ends early with io.EOF; a dangling
// odd byte is dropped.
func (s *wavSource) ReadSamples(dst []int16) (int, error) {
	if s.remaining < 2 {
		return 0, io.EOF
	}

	want := min(int64(len(dst))*2, s.remaining&^1)
	if int64(cap(s.buf)) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	n, err := io.ReadFull(s.r, s.buf)
	s.remaining -= int64(n)

	samples := n / 2
	for i := range samples {
		dst[i] = int16(binary.LittleEndian.Uint16(s.buf[2*i : 2*i+2]))
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// Truncated data chunk: serve what we have, then end.
		s.remaining = 0
		if samples == 0 {
			return 0, io.EOF
		}
	default:
		return samples, fmt.Errorf("%w", err)
	}

	return samples, nil
}

// Decoder implements audio.Decoder for RIFF/WAVE PCM16 streams.
type Decoder struct{}

// Decode validates the header and returns a stream positioned at the first
// sample. On error the reader is left open; closing it is the caller's job.
func (Decoder) Decode(r io.Reader) (audio.Stream, error) {
	h, err := ParseHeader(r)
	if err != nil {
		return nil, err
	}

	return &wavSource{
		r:         r,
		header:    h,
		remaining: int64(h.DataSize),
		buf:       make([]byte, 4096),
	}, nil
}
