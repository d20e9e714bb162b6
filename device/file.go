// SPDX-License-Identifier: EPL-2.0

package device

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// FileOptions configures the WAV file backend.
type FileOptions struct {
	Path string
	// Realtime paces callbacks at the stream rate instead of rendering as
	// fast as possible.
	Realtime bool
	// MaxFrames stops rendering after this many frames; 0 means no limit.
	MaxFrames int64
	// Until is polled after every period; rendering stops once it returns
	// true.
	Until func() bool
}

// FileBackend renders the callback into a 16-bit PCM WAV file.
type FileBackend struct {
	logger *slog.Logger
	opts   FileOptions
}

func NewFileBackend(opts FileOptions, logger *slog.Logger) *FileBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &FileBackend{logger: logger.With("backend", "file"), opts: opts}
}

func (b *FileBackend) Name() string { return "file" }

// Offline reports whether callbacks run unpaced.
func (b *FileBackend) Offline() bool { return !b.opts.Realtime }

func (b *FileBackend) info() Info {
	return Info{ID: "file", Name: b.opts.Path, Default: true}
}

func (b *FileBackend) Devices() ([]Info, error) { return []Info{b.info()}, nil }

func (b *FileBackend) DefaultDevice() (Info, error) { return b.info(), nil }

// Open creates (truncates) the output file and writes the WAV header once
// the device is closed.
func (b *FileBackend) Open(cfg Config, cb Callback) (Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.DeviceID != "" && cfg.DeviceID != "file" {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, cfg.DeviceID)
	}

	logger := b.logger.With("device uuid", uuid.New(), "path", b.opts.Path)

	f, err := os.Create(b.opts.Path)
	if err != nil {
		logger.Error("could not create output file", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrDeviceOpen, err)
	}

	period := cfg.PeriodFrames
	if period == 0 {
		period = 512
	}

	d := &fileDevice{
		logger:  logger,
		info:    b.info(),
		opts:    b.opts,
		cb:      cb,
		file:    f,
		encoder: wav.NewEncoder(f, cfg.SampleRate, 16, cfg.Channels, 1),
		period:  period,
		pcm:     make([]int16, period*cfg.Channels),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{SampleRate: cfg.SampleRate, NumChannels: cfg.Channels},
			Data:           make([]int, period*cfg.Channels),
			SourceBitDepth: 16,
		},
		interval: time.Duration(period) * time.Second / time.Duration(cfg.SampleRate),
		done:     make(chan struct{}),
	}

	logger.Debug("loaded output file", "sampleRate", cfg.SampleRate, "channels", cfg.Channels)

	return d, nil
}

func (b *FileBackend) Close() error { return nil }

type fileDevice struct {
	logger *slog.Logger
	info   Info
	opts   FileOptions
	cb     Callback

	file    *os.File
	encoder *wav.Encoder

	period   int
	pcm      []int16
	buf      *goaudio.IntBuffer
	interval time.Duration
	frames   int64

	mtx       sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	done      chan struct{}
	doneOnce  sync.Once
	closed    bool
	closeErr  error
	renderErr error
}

func (d *fileDevice) Info() Info { return d.info }

// Done is closed once rendering stops on its own (MaxFrames or Until).
func (d *fileDevice) Done() <-chan struct{} { return d.done }

// Frames is the number of frames written so far.
func (d *fileDevice) Frames() int64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.frames
}

func (d *fileDevice) Start() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(1)
	go d.run(ctx)

	return nil
}

func (d *fileDevice) run(ctx context.Context) {
	defer d.wg.Done()

	var tick <-chan time.Time
	if d.opts.Realtime {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		} else {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}

		frames := d.period
		d.mtx.Lock()
		if d.opts.MaxFrames > 0 {
			frames = int(min(int64(frames), d.opts.MaxFrames-d.frames))
		}
		d.mtx.Unlock()

		if frames > 0 {
			if err := d.render(frames); err != nil {
				d.logger.Error("error while writing frame to file", "err", err)
				d.mtx.Lock()
				d.renderErr = err
				d.mtx.Unlock()
				d.finish()
				return
			}
		}

		if frames <= 0 || (d.opts.Until != nil && d.opts.Until()) {
			d.logger.Debug("rendering finished", "frames", d.Frames())
			d.finish()
			return
		}
	}
}

func (d *fileDevice) render(frames int) error {
	n := frames * len(d.pcm) / d.period
	out := d.pcm[:n]
	d.cb(out, frames)

	d.buf.Data = d.buf.Data[:n]
	for i, v := range out {
		d.buf.Data[i] = int(v)
	}
	if err := d.encoder.Write(d.buf); err != nil {
		return fmt.Errorf("%w", err)
	}

	d.mtx.Lock()
	d.frames += int64(frames)
	d.mtx.Unlock()

	return nil
}

func (d *fileDevice) finish() {
	d.doneOnce.Do(func() { close(d.done) })
}

// Stop cancels rendering and waits for the render goroutine to return.
func (d *fileDevice) Stop() error {
	d.mtx.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mtx.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()

	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.renderErr
}

// Close stops the device and finalizes the WAV header.
func (d *fileDevice) Close() error {
	_ = d.Stop()

	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.closed {
		return d.closeErr
	}
	d.closed = true

	if err := d.encoder.Close(); err != nil {
		d.closeErr = fmt.Errorf("finalize wav: %w", err)
	}
	if err := d.file.Close(); err != nil && d.closeErr == nil {
		d.closeErr = fmt.Errorf("%w", err)
	}
	d.logger.Debug("device closed", "frames", d.frames)

	return d.closeErr
}
