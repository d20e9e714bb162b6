// SPDX-License-Identifier: EPL-2.0

// Package mixer sums playing sources into the device buffer once per audio
// callback.
//
// Control code (Add, Remove, SetChain, SetListener) and the audio callback
// (Mix) may run concurrently. The source list and the effects chain are
// published as immutable snapshots through atomic pointers: writers build a
// new value under a mutex and swap it in, Mix loads each pointer once per
// callback and never blocks.
package mixer

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ik5/audengine/audio"
	"github.com/ik5/audengine/effects"
	"github.com/ik5/audengine/spatial"
	"github.com/ik5/audengine/utils"
)

// Stats is a snapshot of mixer activity.
type Stats struct {
	// Callbacks is the number of Mix calls so far.
	Callbacks uint64
	// Active is the number of sources that were playing in the last Mix.
	Active int
	// Sources is the number of registered sources.
	Sources int
	// Underruns is the sum of the registered sources' underrun counters.
	Underruns uint64
}

type Mixer struct {
	logger   *slog.Logger
	channels int

	mtx      sync.Mutex // serializes writers of sources
	sources  atomic.Pointer[[]*audio.Source]
	chain    atomic.Pointer[effects.Chain]
	listener atomic.Pointer[spatial.Listener]

	// Owned by the goroutine running Mix.
	acc     []int32
	gains   []float32
	playing []*audio.Source
	view    spatial.Listener

	callbacks atomic.Uint64
	active    atomic.Int32
}

// New returns a mixer for an interleaved output of the given channel count
// with no sources, no effects and a default listener.
func New(channels int, logger *slog.Logger) *Mixer {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mixer{
		logger:   logger,
		channels: channels,
		gains:    make([]float32, channels),
		playing:  make([]*audio.Source, 0, 16),
	}

	empty := []*audio.Source{}
	m.sources.Store(&empty)
	l := spatial.NewListener()
	m.listener.Store(&l)

	return m
}

func (m *Mixer) Channels() int { return m.channels }

// Add registers s. Sources are mixed in registration order.
func (m *Mixer) Add(s *audio.Source) error {
	if s.Channels() != m.channels {
		return fmt.Errorf("%w: source has %d, mixer has %d",
			ErrChannelMismatch, s.Channels(), m.channels)
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	cur := *m.sources.Load()
	if slices.ContainsFunc(cur, func(o *audio.Source) bool { return o.ID() == s.ID() }) {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, s.ID())
	}

	next := make([]*audio.Source, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, s)
	m.sources.Store(&next)

	m.logger.Debug("source added", "source uuid", s.ID(), "sources", len(next))

	return nil
}

// Remove unregisters the source with the given id and returns it. Once
// Remove returns, the next Mix no longer sees the source, but a Mix that
// is already running may still render it. A source reading from a
// Prefetcher can be closed right away; any other reader must stay readable
// until a callback has passed.
func (m *Mixer) Remove(id uuid.UUID) (*audio.Source, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	cur := *m.sources.Load()
	i := slices.IndexFunc(cur, func(s *audio.Source) bool { return s.ID() == id })
	if i < 0 {
		return nil, false
	}

	removed := cur[i]
	next := slices.Concat(cur[:i], cur[i+1:])
	m.sources.Store(&next)

	m.logger.Debug("source removed", "source uuid", id, "sources", len(next))

	return removed, true
}

// Sources returns the current snapshot. The slice must not be modified.
func (m *Mixer) Sources() []*audio.Source {
	return *m.sources.Load()
}

// Source looks up a registered source by id.
func (m *Mixer) Source(id uuid.UUID) (*audio.Source, bool) {
	for _, s := range m.Sources() {
		if s.ID() == id {
			return s, true
		}
	}

	return nil, false
}

// SetChain replaces the effects chain. A nil chain disables effects. The
// previous chain must not be reused while a Mix may still hold it.
func (m *Mixer) SetChain(c *effects.Chain) {
	m.chain.Store(c)
}

func (m *Mixer) Chain() *effects.Chain {
	return m.chain.Load()
}

// SetListener publishes a new listener pose, picked up by the next Mix.
func (m *Mixer) SetListener(l spatial.Listener) {
	m.listener.Store(&l)
}

func (m *Mixer) Listener() spatial.Listener {
	return *m.listener.Load()
}

// Mix renders frames frames of interleaved PCM16 into out. It is meant to
// be called from the device callback only, one call at a time.
//
// The playing sources are counted (N) and each is rendered with a ducking
// scale of 1/N (1 when nothing plays) times its channel gains into an int32
// accumulator. Spatial sources take their gains from the listener's pan and
// distance attenuation; non-spatial sources use the scale alone. The summed
// block then goes through the effects chain sample by sample and is clamped
// to PCM16. Any part of out beyond frames is zeroed.
func (m *Mixer) Mix(out []int16, frames int) {
	ch := m.channels
	frames = max(0, min(frames, len(out)/ch))
	n := frames * ch

	if cap(m.acc) < n {
		m.acc = make([]int32, n)
	}
	acc := m.acc[:n]
	clear(acc)

	m.view = *m.listener.Load()

	playing := m.playing[:0]
	for _, s := range *m.sources.Load() {
		if s.State() == audio.Playing {
			playing = append(playing, s)
		}
	}

	scale := float32(1)
	if len(playing) > 0 {
		scale = 1 / float32(len(playing))
	}

	for _, s := range playing {
		if s.Spatial() {
			m.view.Gains(m.gains, s.Position(), 1, scale)
		} else {
			for c := range m.gains {
				m.gains[c] = scale
			}
		}
		s.Render(acc, frames, m.gains)
	}

	// Keep the slice for reuse but drop the source references.
	clear(playing)
	m.playing = playing[:0]

	m.chain.Load().ProcessBlock(acc)

	for i, v := range acc {
		out[i] = utils.ClampInt16(v)
	}
	clear(out[n:])

	m.callbacks.Add(1)
	m.active.Store(int32(len(playing)))
}

// Stats returns counters for diagnostics.
func (m *Mixer) Stats() Stats {
	srcs := m.Sources()

	var underruns uint64
	for _, s := range srcs {
		underruns += s.Underruns()
	}

	return Stats{
		Callbacks: m.callbacks.Load(),
		Active:    int(m.active.Load()),
		Sources:   len(srcs),
		Underruns: underruns,
	}
}

// Done reports whether every registered source has finished. A mixer
// without sources is done.
func (m *Mixer) Done() bool {
	for _, s := range m.Sources() {
		if s.State() != audio.Finished {
			return false
		}
	}

	return true
}
