// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultPrefetchSamples is the default ring size of a Prefetcher.
const DefaultPrefetchSamples = 64 * 1024

// prefetchChunk bounds a single read from the underlying stream.
const prefetchChunk = 4096

// Prefetcher decodes a SampleReader on a background goroutine into a
// single-producer/single-consumer ring, so the consumer (the audio
// callback) never touches the file. ReadSamples never blocks.
//
// Cursors are monotonic sample counts; the ring holds write-read samples.
type Prefetcher struct {
	logger *slog.Logger

	src   SampleReader
	ring  []int16
	chunk []int16

	read  atomic.Uint64 // owned by the consumer
	write atomic.Uint64 // owned by the producer
	done  atomic.Bool
	err   error // set by the producer before done

	wake chan struct{}

	startOnce sync.Once
	started   atomic.Bool
	cancel    context.CancelFunc
	finished  chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewPrefetcher wraps src with a ring of capacity samples. Call Start to
// begin decoding.
func NewPrefetcher(src SampleReader, capacity int, logger *slog.Logger) *Prefetcher {
	if capacity <= 0 {
		capacity = DefaultPrefetchSamples
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Prefetcher{
		logger:   logger,
		src:      src,
		ring:     make([]int16, capacity),
		chunk:    make([]int16, min(capacity, prefetchChunk)),
		wake:     make(chan struct{}, 1),
		finished: make(chan struct{}),
	}
}

// Start primes the ring synchronously on the calling goroutine (so the
// first Reload sees data) and then keeps it topped up in the background
// until ctx is canceled, the stream ends or Close is called.
func (p *Prefetcher) Start(ctx context.Context) error {
	err := ErrPrefetchStarted
	p.startOnce.Do(func() {
		err = nil
		ctx, p.cancel = context.WithCancel(ctx)
		p.started.Store(true)

		for p.pump() {
		}

		go p.run(ctx)
	})

	return err
}

func (p *Prefetcher) run(ctx context.Context) {
	defer close(p.finished)

	for {
		if p.done.Load() {
			return
		}

		if !p.pump() {
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// pump performs one read into the free part of the ring. It reports
// whether it made progress and more progress is possible.
func (p *Prefetcher) pump() bool {
	if p.done.Load() {
		return false
	}

	w := p.write.Load()
	free := len(p.ring) - int(w-p.read.Load())
	if free <= 0 {
		return false
	}

	n, err := p.src.ReadSamples(p.chunk[:min(free, len(p.chunk))])
	if n > 0 {
		at := int(w % uint64(len(p.ring)))
		k := copy(p.ring[at:], p.chunk[:n])
		copy(p.ring, p.chunk[k:n])
		p.write.Store(w + uint64(n))
	}

	if errors.Is(err, io.EOF) {
		p.logger.Debug("stream exhausted", "samples", w+uint64(n))
		p.done.Store(true)
		return false
	}
	if err != nil {
		p.logger.Error("prefetch read failed", "err", err)
		p.err = fmt.Errorf("prefetch: %w", err)
		p.done.Store(true)
		return false
	}

	return n > 0
}

// ReadSamples copies buffered samples into dst without blocking. It returns
// (0, nil) on underrun and (0, io.EOF) once the stream is drained.
func (p *Prefetcher) ReadSamples(dst []int16) (int, error) {
	// done is loaded before write: once done is seen every write is visible.
	done := p.done.Load()
	w := p.write.Load()
	r := p.read.Load()

	avail := int(w - r)
	if avail == 0 {
		if done {
			if p.err != nil {
				return 0, p.err
			}
			return 0, io.EOF
		}
		p.signal()
		return 0, nil
	}

	n := min(avail, len(dst))
	at := int(r % uint64(len(p.ring)))
	k := copy(dst[:n], p.ring[at:])
	copy(dst[k:n], p.ring)
	p.read.Store(r + uint64(n))
	p.signal()

	return n, nil
}

// signal wakes the producer without ever blocking the caller.
func (p *Prefetcher) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Buffered is the number of decoded samples waiting in the ring.
func (p *Prefetcher) Buffered() int {
	return int(p.write.Load() - p.read.Load())
}

// Close stops the producer, waits for it to return and closes the
// underlying reader if it is an io.Closer.
func (p *Prefetcher) Close() error {
	p.closeOnce.Do(func() {
		if p.started.Load() {
			p.cancel()
			<-p.finished
		}

		if c, ok := p.src.(io.Closer); ok {
			if err := c.Close(); err != nil {
				p.closeErr = fmt.Errorf("%w", err)
			}
		}
	})

	return p.closeErr
}
