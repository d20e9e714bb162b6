// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Audio format codes found in the fmt chunk.
const (
	FormatPCM        uint16 = 0x0001
	FormatExtensible uint16 = 0xFFFE
)

// Header is the validated description of a RIFF/WAVE PCM stream.
type Header struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16

	// DataSize is the size of the data chunk in bytes.
	DataSize uint32
	// DataOffset is the byte offset of the first sample from the start of
	// the stream.
	DataOffset int64
}

// Invalid is returned for any stream whose chunk layout does not match.
// Compare with ==.
var Invalid = Header{}

// Consistent reports whether the derived fields agree with the primary ones.
func (h Header) Consistent() bool {
	return uint32(h.BlockAlign) == uint32(h.Channels)*uint32(h.BitsPerSample)/8 &&
		h.ByteRate == h.SampleRate*uint32(h.BlockAlign)
}

// Samples is the number of PCM16 samples in the data chunk.
func (h Header) Samples() int {
	return int(h.DataSize / 2)
}

// chunk IDs that may sit between fmt and data and carry no audio.
var ancillaryChunks = map[string]bool{
	"LIST": true,
	"INFO": true,
	"fact": true,
	"bext": true,
	"JUNK": true,
	"PAD ": true,
	"cue ": true,
	"id3 ": true,
}

// pcmSubFormat is the leading part of KSDATAFORMAT_SUBTYPE_PCM.
var pcmSubFormat = []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) readFull(p []byte) error {
	if _, err := io.ReadFull(c, p); err != nil {
		return fmt.Errorf("%w: %w", ErrTruncatedHeader, err)
	}

	return nil
}

func (c *countingReader) skip(n int64) error {
	if _, err := io.CopyN(io.Discard, c, n); err != nil {
		return fmt.Errorf("%w: %w", ErrTruncatedHeader, err)
	}

	return nil
}

// ParseHeader validates a RIFF/WAVE header and leaves r positioned at the
// first sample. It checks, in order: the container tag, the format tag, the
// fmt chunk tag, the fmt payload consistency, the optional extension block
// (fmt size 18 or 40) and the data chunk tag.
//
// Any layout problem returns Invalid with ErrInvalidChunk,
// ErrInconsistentFormat or ErrTruncatedHeader. Non-PCM or non-16-bit
// material returns Invalid with ErrUnsupportedEncoding, which callers must
// treat as fatal.
func ParseHeader(r io.Reader) (Header, error) {
	cr := &countingReader{r: r}
	var h Header

	riff := make([]byte, 12)
	if err := cr.readFull(riff); err != nil {
		return Invalid, err
	}
	if !bytes.Equal(riff[:4], []byte("RIFF")) {
		return Invalid, fmt.Errorf("%w: container tag %q", ErrInvalidChunk, riff[:4])
	}
	if !bytes.Equal(riff[8:12], []byte("WAVE")) {
		return Invalid, fmt.Errorf("%w: format tag %q", ErrInvalidChunk, riff[8:12])
	}

	chunk := make([]byte, 8)
	if err := cr.readFull(chunk); err != nil {
		return Invalid, err
	}
	if !bytes.Equal(chunk[:4], []byte("fmt ")) {
		return Invalid, fmt.Errorf("%w: fmt tag %q", ErrInvalidChunk, chunk[:4])
	}
	fmtSize := binary.LittleEndian.Uint32(chunk[4:8])
	if fmtSize < 16 {
		return Invalid, fmt.Errorf("%w: fmt size %d", ErrInvalidChunk, fmtSize)
	}

	payload := make([]byte, 16)
	if err := cr.readFull(payload); err != nil {
		return Invalid, err
	}
	h.AudioFormat = binary.LittleEndian.Uint16(payload[0:2])
	h.Channels = binary.LittleEndian.Uint16(payload[2:4])
	h.SampleRate = binary.LittleEndian.Uint32(payload[4:8])
	h.ByteRate = binary.LittleEndian.Uint32(payload[8:12])
	h.BlockAlign = binary.LittleEndian.Uint16(payload[12:14])
	h.BitsPerSample = binary.LittleEndian.Uint16(payload[14:16])

	if h.Channels == 0 || !h.Consistent() {
		return Invalid, fmt.Errorf(
			"%w: channels=%d bits=%d block_align=%d byte_rate=%d rate=%d",
			ErrInconsistentFormat, h.Channels, h.BitsPerSample,
			h.BlockAlign, h.ByteRate, h.SampleRate)
	}

	format := h.AudioFormat
	switch fmtSize {
	case 18, 40:
		cb := make([]byte, 2)
		if err := cr.readFull(cb); err != nil {
			return Invalid, err
		}
		ext := make([]byte, binary.LittleEndian.Uint16(cb))
		if err := cr.readFull(ext); err != nil {
			return Invalid, err
		}
		// valid bits (2) + channel mask (4) + sub-format GUID (16)
		if format == FormatExtensible && len(ext) >= 22 && bytes.Equal(ext[6:14], pcmSubFormat) {
			format = FormatPCM
		}
		if rest := int64(fmtSize) - 18 - int64(len(ext)); rest > 0 {
			if err := cr.skip(rest); err != nil {
				return Invalid, err
			}
		}
	default:
		if err := cr.skip(int64(fmtSize-16) + int64(fmtSize%2)); err != nil {
			return Invalid, err
		}
	}

	if format != FormatPCM || h.BitsPerSample != 16 {
		return Invalid, fmt.Errorf("%w: format=%#04x bits=%d",
			ErrUnsupportedEncoding, h.AudioFormat, h.BitsPerSample)
	}

	for {
		if err := cr.readFull(chunk); err != nil {
			return Invalid, err
		}
		id := string(chunk[:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		if id == "data" {
			h.DataSize = size
			h.DataOffset = cr.n
			return h, nil
		}
		if !ancillaryChunks[id] {
			return Invalid, fmt.Errorf("%w: data tag %q", ErrInvalidChunk, id)
		}
		if err := cr.skip(int64(size) + int64(size%2)); err != nil {
			return Invalid, err
		}
	}
}

// IsRecoverable reports whether err from ParseHeader only invalidates this
// asset (as opposed to an unsupported encoding, which is fatal).
func IsRecoverable(err error) bool {
	return err != nil && !errors.Is(err, ErrUnsupportedEncoding)
}
