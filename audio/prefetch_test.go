// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/ik5/audengine/internal/audiotest"
)

// drainPrefetcher reads p until EOF or error, yielding on underruns.
func drainPrefetcher(t *testing.T, p *Prefetcher, chunk int) ([]int16, error) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	buf := make([]int16, chunk)

	var out []int16
	for time.Now().Before(deadline) {
		n, err := p.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			return out, err
		}
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("prefetcher did not finish in time")

	return nil, nil
}

func TestPrefetcher_StartPrimes(t *testing.T) {
	t.Parallel()

	p := NewPrefetcher(audiotest.NewMockReader(audiotest.Ramp(1000)), 64, nil)
	defer p.Close()

	if p.Buffered() != 0 {
		t.Errorf("Buffered() before Start = %d, want 0", p.Buffered())
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p.Buffered() != 64 {
		t.Errorf("Buffered() after Start = %d, want 64", p.Buffered())
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrPrefetchStarted) {
		t.Errorf("second Start() error = %v, want ErrPrefetchStarted", err)
	}
}

func TestPrefetcher_DeliversStreamInOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ring     int
		srcChunk int
		dstChunk int
	}{
		{name: "wraparound", ring: 10, srcChunk: 0, dstChunk: 3},
		{name: "short source reads", ring: 128, srcChunk: 7, dstChunk: 50},
		{name: "large reads", ring: 4096, srcChunk: 0, dstChunk: 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			want := audiotest.Ramp(5000)
			r := audiotest.NewMockReader(want).WithChunk(tt.srcChunk)
			p := NewPrefetcher(r, tt.ring, nil)
			if err := p.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			got, err := drainPrefetcher(t, p, tt.dstChunk)
			if !errors.Is(err, io.EOF) {
				t.Errorf("final error = %v, want io.EOF", err)
			}
			if !slices.Equal(got, want) {
				t.Errorf("received %d samples, stream order not preserved", len(got))
			}

			if err := p.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
			if !r.Closed() {
				t.Error("Close() did not close the source")
			}
		})
	}
}

func TestPrefetcher_ReadError(t *testing.T) {
	t.Parallel()

	p := NewPrefetcher(audiotest.NewMockReader(audiotest.Ramp(1000)).FailAt(300), 64, nil)
	defer p.Close()
	_ = p.Start(context.Background())

	got, err := drainPrefetcher(t, p, 32)
	if !errors.Is(err, audiotest.ErrMockRead) {
		t.Errorf("final error = %v, want ErrMockRead", err)
	}
	if len(got) != 300 {
		t.Errorf("received %d samples before the error, want 300", len(got))
	}
}

func TestPrefetcher_ReadBeforeStart(t *testing.T) {
	t.Parallel()

	p := NewPrefetcher(audiotest.NewMockReader(audiotest.Ramp(10)), 16, nil)

	n, err := p.ReadSamples(make([]int16, 8))
	if n != 0 || err != nil {
		t.Errorf("ReadSamples() = (%d, %v), want (0, nil)", n, err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() without Start error = %v", err)
	}
}

func TestPrefetcher_CancelStopsProducer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPrefetcher(audiotest.NewMockReader(audiotest.Ramp(100000)), 32, nil)
	_ = p.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		_ = p.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close() did not return after cancel")
	}
}

func TestPrefetcher_FeedsSource(t *testing.T) {
	t.Parallel()

	want := audiotest.Ramp(20000)
	p := NewPrefetcher(audiotest.NewMockReader(want).WithChunk(333), 1024, nil)
	_ = p.Start(context.Background())

	s, err := NewSource(p, SourceOptions{Channels: 2, Capacity: 256, Volume: 100, Closer: p})
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	defer s.Close()

	deadline := time.Now().Add(5 * time.Second)
	var got []int16
	for s.State() == Playing && time.Now().Before(deadline) {
		out := make([]int32, 2*100)
		n := s.Render(out, 100, unity)
		got = append(got, toInt16(out[:2*n])...)
		if n < 100 {
			time.Sleep(time.Millisecond)
		}
	}

	if s.State() != Finished {
		t.Fatalf("State() = %v, want finished", s.State())
	}
	if !slices.Equal(got, want) {
		t.Errorf("rendered %d samples, stream order not preserved", len(got))
	}
}
