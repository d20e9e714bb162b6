// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// SampleReader yields interleaved PCM16 samples.
type SampleReader interface {
	// ReadSamples fills dst with interleaved samples and returns the number
	// of int16 values written (not frames). A reader that is temporarily
	// out of data returns (0, nil); when n == 0 with err == io.EOF the
	// stream is finished.
	ReadSamples(dst []int16) (n int, err error)
}

// Stream is a decoded, format-aware SampleReader.
type Stream interface {
	SampleReader

	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// Len is the total number of samples in the stream, or -1 if unknown.
	Len() int

	// Close releases any resources, including the underlying file.
	Close() error
}

// Decoder constructs a Stream from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Stream, error)
}

// CheckFormat verifies that s matches the engine's fixed rate and channel
// count. The engine does not resample or remix channels.
func CheckFormat(s Stream, sampleRate, channels int) error {
	if s.SampleRate() != sampleRate || s.Channels() != channels {
		return fmt.Errorf("%w: got %d Hz/%d ch, engine runs %d Hz/%d ch",
			ErrFormatMismatch, s.SampleRate(), s.Channels(), sampleRate, channels)
	}

	return nil
}

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg").
type Registry struct {
	codecs map[string]Decoder

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.Mutex{},
	}
}

// Register binds d to format. Keys are case-insensitive and may carry a
// leading dot, so file extensions can be passed as-is.
func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[normalizeFormat(format)] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[normalizeFormat(format)]
	return d, ok
}

// Formats lists the registered format keys in sorted order.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	slices.Sort(out)

	return out
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(format, "."))
}
