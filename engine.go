// SPDX-License-Identifier: EPL-2.0

package audengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/ik5/audengine/audio"
	"github.com/ik5/audengine/device"
	"github.com/ik5/audengine/effects"
	"github.com/ik5/audengine/formats/aiff"
	"github.com/ik5/audengine/formats/mp3"
	"github.com/ik5/audengine/formats/vorbis"
	"github.com/ik5/audengine/formats/wav"
	"github.com/ik5/audengine/mixer"
	"github.com/ik5/audengine/spatial"
)

// waitInterval is how often Wait polls for completion.
const waitInterval = 10 * time.Millisecond

// Options fixes the engine's output format. Every source must already be in
// this format.
type Options struct {
	SampleRate   int
	Channels     int
	PeriodFrames int

	// BufferSamples caps each source's StreamBuffer; 0 selects
	// audio.DefaultBufferSamples.
	BufferSamples int
	// PrefetchSamples sizes each source's decode ring; 0 selects
	// audio.DefaultPrefetchSamples.
	PrefetchSamples int
	// Synchronous makes sources decode on the callback instead of through a
	// Prefetcher, so a short read is always the end of the stream. New sets
	// it for backends that report device.Offline.
	Synchronous bool

	Logger *slog.Logger
}

func (o Options) validate() error {
	switch {
	case o.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidOptions, o.SampleRate)
	case o.Channels <= 0:
		return fmt.Errorf("%w: %d channels", ErrInvalidOptions, o.Channels)
	case o.PeriodFrames < 0:
		return fmt.Errorf("%w: period %d", ErrInvalidOptions, o.PeriodFrames)
	}

	return nil
}

// Engine owns the mixer, the decoders and the output device.
type Engine struct {
	logger   *slog.Logger
	opts     Options
	backend  device.Backend
	decoders *audio.Registry
	mixer    *mixer.Mixer

	// ctx bounds every prefetch goroutine.
	ctx    context.Context
	cancel context.CancelFunc

	mtx    sync.Mutex // guards dev and closed
	dev    device.Device
	closed bool
}

// New creates an engine on top of backend. The engine takes ownership of
// the backend and closes it in Close.
func New(backend device.Backend, opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if off, ok := backend.(device.Offline); ok && off.Offline() {
		opts.Synchronous = true
	}

	logger := opts.Logger.With("engine uuid", uuid.New())

	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		logger:   logger,
		opts:     opts,
		backend:  backend,
		decoders: reg,
		mixer:    mixer.New(opts.Channels, logger),
		ctx:      ctx,
		cancel:   cancel,
	}

	logger.Debug(
		"engine created",
		"backend", backend.Name(),
		"sampleRate", opts.SampleRate,
		"channels", opts.Channels,
		"formats", reg.Formats(),
		"synchronous", opts.Synchronous,
	)

	return e, nil
}

// Decoders exposes the registry so callers can add formats.
func (e *Engine) Decoders() *audio.Registry { return e.decoders }

// Mixer returns the engine's mixer.
func (e *Engine) Mixer() *mixer.Mixer { return e.mixer }

// SourceOption adjusts a source before it is registered.
type SourceOption func(*audio.SourceOptions)

// WithPaused adds the source in the Paused state.
func WithPaused() SourceOption {
	return func(o *audio.SourceOptions) { o.Paused = true }
}

// WithNonSpatial mixes the source without listener pan or attenuation.
func WithNonSpatial() SourceOption {
	return func(o *audio.SourceOptions) { o.NonSpatial = true }
}

// AddSource opens path, validates its format against the engine and
// registers it with the mixer. volume is a percentage in 0..200.
//
// An unknown extension fails with audio.ErrUnknownFormat. A stream in the
// wrong rate or channel count fails with audio.ErrFormatMismatch. A
// malformed WAV container fails with wav.ErrInvalidChunk, which callers may
// treat as "skip this asset".
func (e *Engine) AddSource(path string, volume int, pos mgl32.Vec3, opts ...SourceOption) (uuid.UUID, error) {
	if e.isClosed() {
		return uuid.Nil, ErrClosed
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	dec, ok := e.decoders.Get(ext)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %q", audio.ErrUnknownFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		e.logger.Error("could not open source file", "path", path, "err", err)
		return uuid.Nil, fmt.Errorf("open source: %w", err)
	}

	stream, err := dec.Decode(f)
	if err != nil {
		_ = f.Close()
		e.logger.Warn("could not decode source", "path", path, "err", err)
		return uuid.Nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := audio.CheckFormat(stream, e.opts.SampleRate, e.opts.Channels); err != nil {
		_ = stream.Close()
		e.logger.Error("source format rejected", "path", path, "err", err)
		return uuid.Nil, err
	}

	so := audio.SourceOptions{
		Channels: e.opts.Channels,
		Capacity: audio.BufferCapacity(stream.Len(), e.opts.BufferSamples, e.opts.Channels),
		Volume:   volume,
		Position: pos,
		Name:     filepath.Base(path),
		Logger:   e.logger,
	}
	for _, opt := range opts {
		opt(&so)
	}

	var reader audio.SampleReader
	if e.opts.Synchronous {
		ls := &lockedStream{stream: stream}
		reader, so.Closer = ls, ls
	} else {
		pf := audio.NewPrefetcher(stream, e.opts.PrefetchSamples, e.logger.With("source", so.Name))
		if err := pf.Start(e.ctx); err != nil {
			_ = pf.Close()
			return uuid.Nil, err
		}
		reader, so.Closer = pf, pf
	}

	src, err := audio.NewSource(reader, so)
	if err != nil {
		_ = so.Closer.Close()
		return uuid.Nil, fmt.Errorf("load %s: %w", path, err)
	}

	if err := e.mixer.Add(src); err != nil {
		_ = src.Close()
		return uuid.Nil, err
	}

	return src.ID(), nil
}

// lockedStream lets a synchronous source be closed while the callback may
// still be reading it. After Close it reports io.EOF.
type lockedStream struct {
	mtx    sync.Mutex
	stream audio.Stream
	closed bool
}

func (l *lockedStream) ReadSamples(dst []int16) (int, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed {
		return 0, io.EOF
	}

	return l.stream.ReadSamples(dst)
}

func (l *lockedStream) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	return l.stream.Close()
}

func (e *Engine) source(id uuid.UUID) (*audio.Source, error) {
	s, ok := e.mixer.Source(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}

	return s, nil
}

// RemoveSource unregisters a source and releases its file.
//
// A callback already running may still render the source once more from
// its previous snapshot; that only reads the prefetch ring, which stays
// valid after Close.
func (e *Engine) RemoveSource(id uuid.UUID) error {
	s, ok := e.mixer.Remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}

	return s.Close()
}

// TogglePlay flips a source between Playing and Paused and returns the
// resulting state. Finished sources are left alone.
func (e *Engine) TogglePlay(id uuid.UUID) (audio.State, error) {
	s, err := e.source(id)
	if err != nil {
		return 0, err
	}

	return s.Toggle(), nil
}

func (e *Engine) SetVolume(id uuid.UUID, volume int) error {
	s, err := e.source(id)
	if err != nil {
		return err
	}
	s.SetVolume(volume)

	return nil
}

func (e *Engine) SetSourcePosition(id uuid.UUID, pos mgl32.Vec3) error {
	s, err := e.source(id)
	if err != nil {
		return err
	}
	s.SetPosition(pos)

	return nil
}

// SetListener moves and turns the listener. forward and up need not be
// normalized.
func (e *Engine) SetListener(pos, forward, up mgl32.Vec3) {
	l := spatial.NewListener()
	l.SetPosition(pos)
	l.SetOrientation(forward, up)
	e.mixer.SetListener(l)
}

func (e *Engine) Listener() spatial.Listener { return e.mixer.Listener() }

// SetEffects replaces the post-mix effects chain. An empty list removes
// all effects. On error the current chain is kept.
func (e *Engine) SetEffects(params []effects.Params) error {
	chain, err := effects.FromConfig(params, e.opts.SampleRate, e.opts.Channels)
	if err != nil {
		return err
	}
	e.mixer.SetChain(chain)
	e.logger.Debug("effects chain replaced", "kinds", chain.Kinds())

	return nil
}

// Devices lists the backend's output devices.
func (e *Engine) Devices() ([]device.Info, error) {
	return e.backend.Devices()
}

// Device returns the running device, or nil.
func (e *Engine) Device() device.Device {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	return e.dev
}

func (e *Engine) deviceConfig(id string) device.Config {
	return device.Config{
		SampleRate:   e.opts.SampleRate,
		Channels:     e.opts.Channels,
		PeriodFrames: e.opts.PeriodFrames,
		DeviceID:     id,
	}
}

// openLocked opens and starts device id with the mixer as its callback.
func (e *Engine) openLocked(id string) error {
	dev, err := e.backend.Open(e.deviceConfig(id), e.mixer.Mix)
	if err != nil {
		e.logger.Error("could not open device", "device", id, "err", err)
		return err
	}
	if err := dev.Start(); err != nil {
		_ = dev.Close()
		e.logger.Error("could not start device", "device", id, "err", err)
		return err
	}
	e.dev = dev
	e.logger.Info("device started", "device", dev.Info().Name)

	return nil
}

// closeLocked stops the current device, which returns only after its
// callback has, and then releases it.
func (e *Engine) closeLocked() error {
	if e.dev == nil {
		return nil
	}
	dev := e.dev
	e.dev = nil

	return errors.Join(dev.Stop(), dev.Close())
}

// Start opens device id (empty for the backend default) and starts
// pulling audio from the mixer.
func (e *Engine) Start(id string) error {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.dev != nil {
		return ErrAlreadyStarted
	}

	return e.openLocked(id)
}

// Stop stops and closes the running device. Sources keep their position and
// play on from there after the next Start.
func (e *Engine) Stop() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.dev == nil {
		return ErrNotStarted
	}

	return e.closeLocked()
}

// SwitchDevice moves output to device id. The old device is fully stopped
// before the new one is opened. If the new device fails to open the engine
// is left without a device.
func (e *Engine) SwitchDevice(id string) error {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.closed {
		return ErrClosed
	}

	if err := e.closeLocked(); err != nil {
		e.logger.Warn("error while closing previous device", "err", err)
	}

	return e.openLocked(id)
}

// Done reports whether every source has finished.
func (e *Engine) Done() bool { return e.mixer.Done() }

// Stats returns mixer counters.
func (e *Engine) Stats() mixer.Stats { return e.mixer.Stats() }

// Wait blocks until every source has finished, the device stops on its own
// (a file device hitting its frame limit) or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	var devDone <-chan struct{}
	if d, ok := e.Device().(interface{ Done() <-chan struct{} }); ok {
		devDone = d.Done()
	}

	ticker := time.NewTicker(waitInterval)
	defer ticker.Stop()

	for {
		if e.Done() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-devDone:
			return nil
		case <-ticker.C:
		}
	}
}

// Close stops the device, closes every source and the backend. It is safe
// to call more than once.
func (e *Engine) Close() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	errs := []error{e.closeLocked()}
	stats := e.mixer.Stats()

	e.cancel()
	for _, s := range e.mixer.Sources() {
		e.mixer.Remove(s.ID())
		errs = append(errs, s.Close())
	}

	errs = append(errs, e.backend.Close())

	e.logger.Debug("engine closed", "callbacks", stats.Callbacks, "underruns", stats.Underruns)

	return errors.Join(errs...)
}

func (e *Engine) isClosed() bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	return e.closed
}
