// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"slices"
	"sync"
	"testing"

	"github.com/ik5/audengine/internal/audiotest"
)

// stubStream is a Stream over an in-memory MockReader.
type stubStream struct {
	*audiotest.MockReader
	rate, channels int
}

func newStubStream(rate, channels int, samples []int16) *stubStream {
	return &stubStream{MockReader: audiotest.NewMockReader(samples), rate: rate, channels: channels}
}

func (s *stubStream) SampleRate() int { return s.rate }
func (s *stubStream) Channels() int { return s.channels }
func (s *stubStream) Len() int { return -1 }

type stubDecoder struct {
	name string
}

func (d *stubDecoder) Decode(io.Reader) (Stream, error) {
	return newStubStream(48000, 2, nil), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	decoder := &stubDecoder{name: "wav"}
	registry.Register("wav", decoder)

	tests := []struct {
		key    string
		wantOK bool
	}{
		{key: "wav", wantOK: true},
		{key: ".wav", wantOK: true},
		{key: "WAV", wantOK: true},
		{key: ".Wav", wantOK: true},
		{key: "mp3", wantOK: false},
		{key: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := registry.Get(tt.key)
		if ok != tt.wantOK {
			t.Errorf("Registry.Get(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
		}
		if ok && got != decoder {
			t.Errorf("Registry.Get(%q) returned a different decoder", tt.key)
		}
	}
}

func TestRegistry_Overwrite(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	first := &stubDecoder{name: "first"}
	second := &stubDecoder{name: "second"}

	registry.Register("ogg", first)
	registry.Register(".OGG", second)

	got, _ := registry.Get("ogg")
	if got != second {
		t.Error("Registry.Get() did not return the overwritten decoder")
	}
	if n := len(registry.Formats()); n != 1 {
		t.Errorf("Formats() has %d entries, want 1", n)
	}
}

func TestRegistry_Formats(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	for _, f := range []string{"wav", ".mp3", "OGG", "aiff"} {
		registry.Register(f, &stubDecoder{})
	}

	want := []string{"aiff", "mp3", "ogg", "wav"}
	if got := registry.Formats(); !slices.Equal(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	decoder := &stubDecoder{name: "test"}

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() { registry.Register("format", decoder) })
		wg.Go(func() { _, _ = registry.Get("format") })
	}
	wg.Wait()

	got, ok := registry.Get("format")
	if !ok || got != decoder {
		t.Error("Registry returned wrong decoder after concurrent operations")
	}
}

func TestCheckFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rate, ch int
		wantErr  bool
	}{
		{name: "match", rate: 48000, ch: 2},
		{name: "rate mismatch", rate: 44100, ch: 2, wantErr: true},
		{name: "channel mismatch", rate: 48000, ch: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := CheckFormat(newStubStream(tt.rate, tt.ch, nil), 48000, 2)
			if tt.wantErr != errors.Is(err, ErrFormatMismatch) {
				t.Errorf("CheckFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func BenchmarkRegistry_Get(b *testing.B) {
	registry := NewRegistry()
	registry.Register("wav", &stubDecoder{})

	b.ReportAllocs()
	for b.Loop() {
		_, _ = registry.Get(".wav")
	}
}
