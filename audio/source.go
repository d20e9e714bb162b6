// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// State is the playback state of a Source.
type State int32

const (
	Paused State = iota
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	}

	return fmt.Sprintf("State(%d)", int32(s))
}

// MaxVolume is the highest accepted volume percentage (2x boost).
const MaxVolume = 200

// SourceOptions configures a new Source.
type SourceOptions struct {
	// Channels of the interleaved stream; must match the engine.
	Channels int
	// Capacity of the StreamBuffer in samples, see BufferCapacity.
	Capacity int
	// Volume in percent, 0..MaxVolume.
	Volume int
	// Position in world space.
	Position mgl32.Vec3
	// NonSpatial sources bypass listener pan and attenuation.
	NonSpatial bool
	// Paused creates the source paused instead of playing.
	Paused bool
	// Closer is closed together with the source (typically the Prefetcher
	// or the file behind the reader).
	Closer io.Closer
	// Name is used for logging only.
	Name   string
	Logger *slog.Logger
}

// Source couples a StreamBuffer with playback state, volume and position.
//
// Render is called only from the audio callback. State, volume and position
// may be changed concurrently from control code.
type Source struct {
	id       uuid.UUID
	name     string
	logger   *slog.Logger
	channels int
	spatial  bool

	buf *StreamBuffer

	state     atomic.Int32
	volume    atomic.Int32
	position  atomic.Pointer[mgl32.Vec3]
	underruns atomic.Uint64

	closer    io.Closer
	closeOnce sync.Once
	closeErr  error
}

// NewSource builds a source over r and performs the initial Reload.
func NewSource(r SampleReader, opts SourceOptions) (*Source, error) {
	if opts.Channels <= 0 {
		return nil, ErrInvalidChannels
	}
	if opts.Capacity <= 0 || opts.Capacity%opts.Channels != 0 {
		return nil, fmt.Errorf("%w: %d samples for %d channels",
			ErrInvalidCapacity, opts.Capacity, opts.Channels)
	}

	buf, err := NewStreamBuffer(r, opts.Capacity)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("source uuid", id, "source", opts.Name)

	s := &Source{
		id:       id,
		name:     opts.Name,
		logger:   logger,
		channels: opts.Channels,
		spatial:  !opts.NonSpatial,
		buf:      buf,
		closer:   opts.Closer,
	}
	s.SetVolume(opts.Volume)
	s.SetPosition(opts.Position)

	if err := buf.Reload(); err != nil {
		logger.Error("initial load failed", "err", err)
		return nil, err
	}

	if opts.Paused {
		s.state.Store(int32(Paused))
	} else {
		s.state.Store(int32(Playing))
	}

	logger.Debug(
		"source loaded",
		"channels", opts.Channels,
		"capacity", opts.Capacity,
		"buffered", buf.Available(),
		"volume", s.Volume(),
	)

	return s, nil
}

func (s *Source) ID() uuid.UUID { return s.id }
func (s *Source) Name() string { return s.name }
func (s *Source) Channels() int { return s.channels }
func (s *Source) Spatial() bool { return s.spatial }
func (s *Source) State() State { return State(s.state.Load()) }
func (s *Source) Volume() int { return int(s.volume.Load()) }

// Underruns counts renders that came up short while the stream was still
// live (the prefetcher had not caught up).
func (s *Source) Underruns() uint64 { return s.underruns.Load() }

// Buffer exposes the underlying StreamBuffer for inspection. It must not be
// touched while the source is registered with a running mixer.
func (s *Source) Buffer() *StreamBuffer { return s.buf }

// Play moves a paused source to Playing. It reports whether the state
// changed; a finished source stays finished.
func (s *Source) Play() bool {
	return s.state.CompareAndSwap(int32(Paused), int32(Playing))
}

// Pause moves a playing source to Paused.
func (s *Source) Pause() bool {
	return s.state.CompareAndSwap(int32(Playing), int32(Paused))
}

// Toggle flips between Paused and Playing and returns the resulting state.
func (s *Source) Toggle() State {
	if s.Pause() {
		return Paused
	}
	s.Play()

	return s.State()
}

// SetVolume sets the volume percentage, clamped to [0, MaxVolume].
func (s *Source) SetVolume(v int) {
	v = max(0, min(v, MaxVolume))
	s.volume.Store(int32(v))
}

func (s *Source) SetPosition(p mgl32.Vec3) {
	s.position.Store(&p)
}

func (s *Source) Position() mgl32.Vec3 {
	return *s.position.Load()
}

// Gain is the perceptual volume curve: (volume/100)^2.
func (s *Source) Gain() float32 {
	v := float32(s.Volume()) / 100
	return v * v
}

// Render adds up to frames frames into out (interleaved, additive, never
// overwriting), each channel multiplied by gains[c] * Gain(). It returns the
// number of frames rendered. A source that is not Playing renders nothing
// and consumes nothing.
//
// When the buffer cannot supply the request after a TopUp and the reader
// is exhausted, the frame count is reduced to what is available and the
// source becomes Finished. A short TopUp without EOF is an underrun: the
// available frames are rendered and the source keeps playing.
func (s *Source) Render(out []int32, frames int, gains []float32) int {
	if s.State() != Playing {
		return 0
	}

	ch := s.channels
	if len(gains) < ch {
		return 0
	}
	frames = min(frames, len(out)/ch)

	curve := s.Gain()
	var k [8]float32
	var scale []float32
	if ch <= len(k) {
		scale = k[:ch]
	} else {
		scale = make([]float32, ch)
	}
	for c := range ch {
		scale[c] = gains[c] * curve
	}

	maxFrames := s.buf.Cap() / ch
	rendered := 0

	for rendered < frames {
		want := min(frames-rendered, maxFrames)
		if s.buf.Available() < want*ch {
			// A read error is sticky in buf.Err and marks the buffer EOF.
			_ = s.buf.TopUp()
		}

		n := min(want, s.buf.Available()/ch)
		src := s.buf.Unread()[:n*ch]
		dst := out[rendered*ch : (rendered+n)*ch]
		for i, v := range src {
			dst[i] += int32(float32(v) * scale[i%ch])
		}
		s.buf.Advance(n * ch)
		rendered += n

		if n < want {
			if s.buf.EOF() {
				s.state.CompareAndSwap(int32(Playing), int32(Finished))
			} else {
				s.underruns.Add(1)
			}
			break
		}
	}

	return rendered
}

// Close releases the buffer's reader. It is safe to call more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		if s.closer == nil {
			return
		}
		if err := s.closer.Close(); err != nil {
			s.logger.Error("close failed", "err", err)
			s.closeErr = fmt.Errorf("%w", err)
		}
	})

	return s.closeErr
}
