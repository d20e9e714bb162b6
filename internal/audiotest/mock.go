// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"io"
)

// ErrMockRead is returned by a MockReader configured to fail.
var ErrMockRead = errors.New("mock read failure")

// MockReader is a test helper that serves a fixed slice of PCM16 samples.
// It implements audio.SampleReader (without importing it to avoid cycles).
type MockReader struct {
	samples []int16
	offset  int
	chunk   int // max samples per ReadSamples call, 0 = unlimited
	failAt  int // offset at which reads start failing, -1 = never
	reads   int
	closed  bool
}

// NewMockReader creates a reader over samples.
func NewMockReader(samples []int16) *MockReader {
	return &MockReader{samples: samples, failAt: -1}
}

// WithChunk limits every read to at most n samples, simulating short reads.
func (m *MockReader) WithChunk(n int) *MockReader {
	m.chunk = n
	return m
}

// FailAt makes reads return ErrMockRead once offset reaches n.
func (m *MockReader) FailAt(n int) *MockReader {
	m.failAt = n
	return m
}

// Reads reports how many times ReadSamples was called.
func (m *MockReader) Reads() int { return m.reads }

// Offset reports how many samples have been served.
func (m *MockReader) Offset() int { return m.offset }

// Closed reports whether Close was called.
func (m *MockReader) Closed() bool { return m.closed }

func (m *MockReader) Close() error {
	m.closed = true
	return nil
}

func (m *MockReader) ReadSamples(dst []int16) (int, error) {
	m.reads++

	if m.failAt >= 0 && m.offset >= m.failAt {
		return 0, ErrMockRead
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := min(len(dst), len(m.samples)-m.offset)
	if m.chunk > 0 {
		n = min(n, m.chunk)
	}
	if m.failAt >= 0 {
		n = min(n, m.failAt-m.offset)
	}

	copy(dst, m.samples[m.offset:m.offset+n])
	m.offset += n

	return n, nil
}

// Ramp returns n samples counting up from 1, so every sample is unique
// and non-zero (useful for ordering checks).
func Ramp(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(i%32000 + 1)
	}

	return out
}

// Constant returns n samples of value v.
func Constant(n int, v int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = v
	}

	return out
}
