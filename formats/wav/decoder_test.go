// SPDX-License-Identifier: EPL-2.0

package wav_test

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/ik5/audengine/audio"
	"github.com/ik5/audengine/formats/wav"
	"github.com/ik5/audengine/internal/audiotest"
	"github.com/ik5/audengine/internal/audiotest/wavtest"
)

func readAll(t *testing.T, s audio.SampleReader, chunk int) []int16 {
	t.Helper()

	var out []int16
	buf := make([]int16, chunk)
	for {
		n, err := s.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
		if n == 0 {
			t.Fatal("ReadSamples() returned (0, nil) from a file")
		}
	}
}

func TestDecoder_Decode(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 100, -100, 32767, -32768, 7}
	spec := wavtest.Mono(8000, samples)

	src, err := wav.Decoder{}.Decode(bytes.NewReader(wavtest.BuildWAV(spec)))
	if err != nil {
		t.Fatalf("Decode() error = %v, want nil", err)
	}
	defer src.Close()

	if src.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", src.SampleRate())
	}
	if src.Channels() != 1 {
		t.Errorf("Channels() = %d, want 1", src.Channels())
	}
	if src.Len() != len(samples) {
		t.Errorf("Len() = %d, want %d", src.Len(), len(samples))
	}

	got := readAll(t, src, 4)
	if !slices.Equal(got, samples) {
		t.Errorf("samples = %v, want %v", got, samples)
	}
}

func TestDecoder_Decode_Invalid(t *testing.T) {
	t.Parallel()

	spec := wavtest.Stereo(8000, audiotest.Ramp(4))
	spec.DataTag = "JUNQ"

	_, err := wav.Decoder{}.Decode(bytes.NewReader(wavtest.BuildWAV(spec)))
	if !errors.Is(err, wav.ErrInvalidChunk) {
		t.Errorf("Decode() error = %v, want ErrInvalidChunk", err)
	}
}

func TestWavSource_TruncatedData(t *testing.T) {
	t.Parallel()

	data := wavtest.BuildWAV(wavtest.Stereo(8000, audiotest.Ramp(100)))
	// Cut into the middle of a sample.
	data = data[:len(data)-51]

	src, err := wav.Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v, want nil", err)
	}

	got := readAll(t, src, 16)
	if len(got) != 74 {
		t.Errorf("read %d samples, want 74", len(got))
	}
	if !slices.Equal(got, audiotest.Ramp(100)[:74]) {
		t.Error("truncated read does not match prefix")
	}

	// Stays at EOF.
	n, err := src.ReadSamples(make([]int16, 8))
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() after EOF = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestWavSource_Header(t *testing.T) {
	t.Parallel()

	src, err := wav.Decoder{}.Decode(bytes.NewReader(wavtest.BuildWAV(wavtest.Mono(16000, nil))))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	h := src.(interface{ Header() wav.Header }).Header()
	if h.SampleRate != 16000 || h.Channels != 1 {
		t.Errorf("Header() = %+v, want 16000 Hz mono", h)
	}

	n, err := src.ReadSamples(make([]int16, 4))
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() on empty data = (%d, %v), want (0, EOF)", n, err)
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestWavSource_Close(t *testing.T) {
	t.Parallel()

	r := &closeTracker{Reader: bytes.NewReader(wavtest.BuildWAV(wavtest.Mono(8000, nil)))}

	src, err := wav.Decoder{}.Decode(r)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !r.closed {
		t.Error("Close() did not close the underlying reader")
	}
}

func BenchmarkWavSource_ReadSamples(b *testing.B) {
	data := wavtest.BuildWAV(wavtest.Stereo(48000, audiotest.Ramp(48000*2)))
	buf := make([]int16, 1024)

	b.ReportAllocs()
	for b.Loop() {
		src, _ := wav.Decoder{}.Decode(bytes.NewReader(data))
		for {
			if _, err := src.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
