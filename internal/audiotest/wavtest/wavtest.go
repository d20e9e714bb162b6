// SPDX-License-Identifier: EPL-2.0

package wavtest

import (
	"bytes"
	"encoding/binary"

	"github.com/ik5/audengine/formats/wav"
)

// WAVSpec describes a RIFF/WAVE byte stream to build. Zero fields fall back
// to a canonical 16-bit PCM layout derived from SampleRate and Channels.
type WAVSpec struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	AudioFormat   uint16
	Samples       []int16

	// FmtSize selects the fmt chunk size (16, 18 or 40).
	FmtSize int
	// ExtraChunks are written between the fmt and data chunks.
	ExtraChunks []Chunk

	// Overrides for corrupting the stream.
	RIFFTag    string
	WAVETag    string
	FmtTag     string
	DataTag    string
	ByteRate   uint32
	BlockAlign uint16
}

// Chunk is an arbitrary RIFF sub-chunk.
type Chunk struct {
	ID   string
	Data []byte
}

// Stereo returns a canonical stereo PCM16 spec.
func Stereo(sampleRate int, samples []int16) WAVSpec {
	return WAVSpec{SampleRate: sampleRate, Channels: 2, Samples: samples}
}

// Mono returns a canonical mono PCM16 spec.
func Mono(sampleRate int, samples []int16) WAVSpec {
	return WAVSpec{SampleRate: sampleRate, Channels: 1, Samples: samples}
}

func orTag(tag, def string) string {
	if tag == "" {
		return def
	}

	return tag
}

// canonical reports whether spec asks for nothing beyond a plain 44-byte
// PCM16 header.
func (spec WAVSpec) canonical() bool {
	return spec.Channels > 0 &&
		(spec.BitsPerSample == 0 || spec.BitsPerSample == 16) &&
		(spec.AudioFormat == 0 || spec.AudioFormat == wav.FormatPCM) &&
		(spec.FmtSize == 0 || spec.FmtSize == 16) &&
		len(spec.ExtraChunks) == 0 &&
		spec.RIFFTag == "" && spec.WAVETag == "" && spec.FmtTag == "" && spec.DataTag == "" &&
		spec.ByteRate == 0 && spec.BlockAlign == 0
}

// BuildWAV renders spec into a complete WAV byte stream. Canonical specs go
// through wav.WriteWAV16; anything else is assembled chunk by chunk.
func BuildWAV(spec WAVSpec) []byte {
	buf := new(bytes.Buffer)

	if spec.canonical() {
		if err := wav.WriteWAV16(buf, spec.SampleRate, spec.Channels, spec.Samples); err != nil {
			panic(err)
		}

		return buf.Bytes()
	}

	bits := spec.BitsPerSample
	if bits == 0 {
		bits = 16
	}
	format := spec.AudioFormat
	if format == 0 {
		format = 1
	}
	fmtSize := spec.FmtSize
	if fmtSize == 0 {
		fmtSize = 16
	}

	blockAlign := uint16(spec.Channels * bits / 8)
	if spec.BlockAlign != 0 {
		blockAlign = spec.BlockAlign
	}
	byteRate := uint32(spec.SampleRate) * uint32(blockAlign)
	if spec.ByteRate != 0 {
		byteRate = spec.ByteRate
	}

	body := new(bytes.Buffer)

	// fmt chunk
	body.WriteString(orTag(spec.FmtTag, "fmt "))
	binary.Write(body, binary.LittleEndian, uint32(fmtSize))
	binary.Write(body, binary.LittleEndian, format)
	binary.Write(body, binary.LittleEndian, uint16(spec.Channels))
	binary.Write(body, binary.LittleEndian, uint32(spec.SampleRate))
	binary.Write(body, binary.LittleEndian, byteRate)
	binary.Write(body, binary.LittleEndian, blockAlign)
	binary.Write(body, binary.LittleEndian, uint16(bits))

	switch fmtSize {
	case 18:
		binary.Write(body, binary.LittleEndian, uint16(0))
	case 40:
		// WAVE_FORMAT_EXTENSIBLE: valid bits, channel mask, sub-format GUID
		binary.Write(body, binary.LittleEndian, uint16(22))
		binary.Write(body, binary.LittleEndian, uint16(bits))
		binary.Write(body, binary.LittleEndian, uint32(3))
		guid := []byte{
			0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
			0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71,
		}
		body.Write(guid)
	}

	for _, c := range spec.ExtraChunks {
		body.WriteString(c.ID)
		binary.Write(body, binary.LittleEndian, uint32(len(c.Data)))
		body.Write(c.Data)
		if len(c.Data)%2 == 1 {
			body.WriteByte(0) // pad byte
		}
	}

	// data chunk
	body.WriteString(orTag(spec.DataTag, "data"))
	binary.Write(body, binary.LittleEndian, uint32(len(spec.Samples)*2))
	for _, s := range spec.Samples {
		binary.Write(body, binary.LittleEndian, s)
	}

	// RIFF header
	buf.WriteString(orTag(spec.RIFFTag, "RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(4+body.Len()))
	buf.WriteString(orTag(spec.WAVETag, "WAVE"))
	buf.Write(body.Bytes())

	return buf.Bytes()
}

// DataOffset returns the byte offset of the first sample in a stream built
// from spec.
func DataOffset(spec WAVSpec) int64 {
	fmtSize := spec.FmtSize
	if fmtSize == 0 {
		fmtSize = 16
	}

	off := int64(12 + 8 + fmtSize)
	for _, c := range spec.ExtraChunks {
		off += 8 + int64(len(c.Data)+len(c.Data)%2)
	}

	return off + 8
}
