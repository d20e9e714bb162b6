// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audengine/audio"
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
	Length() int64
}

type source struct {
	dec        mp3Reader
	closer     io.Closer
	sampleRate int
	channels   int
	buf        []byte
	pending    []byte // odd byte left over from the previous read
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int { return s.channels }

// Len is the decoded length in samples, or -1 when the input is not seekable.
func (s *source) Len() int {
	n := s.dec.Length()
	if n < 0 {
		return -1
	}

	return int(n / 2)
}

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (s *source) ReadSamples(dst []int16) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	// go-mp3 returns 16-bit little-endian PCM bytes (stereo interleaved)
	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	off := copy(s.buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.dec.Read(s.buf[off:])
	n += off
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, nil
	}

	samples := n / 2
	for i := range samples {
		dst[i] = int16(binary.LittleEndian.Uint16(s.buf[2*i : 2*i+2]))
	}
	if n%2 == 1 {
		s.pending = append(s.pending, s.buf[n-1])
	}

	return samples, err
}

// Decoder implements audio.Decoder for MP3 input.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Stream, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	closer, _ := r.(io.Closer)

	// go-mp3 always outputs stereo 16-bit PCM
	return &source{
		dec:        dec,
		closer:     closer,
		sampleRate: dec.SampleRate(),
		channels:   2,
		buf:        make([]byte, 8192),
	}, nil
}
