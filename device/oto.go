// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/google/uuid"
)

var otoDefault = Info{ID: "default", Name: "oto default output", Default: true}

// OtoBackend plays through the platform default output using oto. oto
// allows a single context per process, fixing the format at creation.
type OtoBackend struct {
	logger *slog.Logger
	ctx    *oto.Context
	cfg    Config
}

// NewOtoBackend creates the oto context for the given format and waits
// until it is ready.
func NewOtoBackend(cfg Config, logger *slog.Logger) (*OtoBackend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", "oto")

	var buffer time.Duration
	if cfg.PeriodFrames > 0 {
		buffer = time.Duration(cfg.PeriodFrames) * time.Second / time.Duration(cfg.SampleRate)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   buffer,
	})
	if err != nil {
		logger.Error("could not create context", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrBackendInit, err)
	}
	<-ready

	return &OtoBackend{logger: logger, ctx: ctx, cfg: cfg}, nil
}

func (b *OtoBackend) Name() string { return "oto" }

func (b *OtoBackend) Devices() ([]Info, error) { return []Info{otoDefault}, nil }

func (b *OtoBackend) DefaultDevice() (Info, error) { return otoDefault, nil }

// Open creates a player on the shared context. The requested format must
// match the one the backend was created with.
func (b *OtoBackend) Open(cfg Config, cb Callback) (Device, error) {
	if cfg.SampleRate != b.cfg.SampleRate || cfg.Channels != b.cfg.Channels {
		return nil, fmt.Errorf("%w: oto context runs %d Hz/%d ch",
			ErrInvalidConfig, b.cfg.SampleRate, b.cfg.Channels)
	}
	if cfg.DeviceID != "" && cfg.DeviceID != otoDefault.ID {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, cfg.DeviceID)
	}

	d := &otoDevice{
		logger: b.logger.With("device uuid", uuid.New()),
		bridge: newPCMBridge(cb, cfg.Channels, cfg.PeriodFrames),
	}
	d.player = b.ctx.NewPlayer(d)

	return d, nil
}

func (b *OtoBackend) Close() error {
	if err := b.ctx.Suspend(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// otoPlayer is the part of oto.Player the device drives, to allow testing.
type otoPlayer interface {
	Play()
	Pause()
	Close() error
}

// otoDevice is the io.Reader oto pulls from. mtx is held while the
// callback runs, which makes Stop wait for an in-flight read.
type otoDevice struct {
	logger *slog.Logger
	player otoPlayer
	bridge *pcmBridge

	mtx     sync.Mutex
	running bool
	closed  bool
}

func (d *otoDevice) Info() Info { return otoDefault }

func (d *otoDevice) Read(p []byte) (int, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if !d.running {
		clear(p)
		return len(p), nil
	}
	d.bridge.fill(p)

	return len(p), nil
}

func (d *otoDevice) Start() error {
	d.mtx.Lock()
	if d.closed {
		d.mtx.Unlock()
		return ErrClosed
	}
	d.running = true
	d.mtx.Unlock()

	d.player.Play()

	return nil
}

func (d *otoDevice) Stop() error {
	d.player.Pause()

	d.mtx.Lock()
	d.running = false
	d.mtx.Unlock()

	return nil
}

func (d *otoDevice) Close() error {
	_ = d.Stop()

	d.mtx.Lock()
	if d.closed {
		d.mtx.Unlock()
		return nil
	}
	d.closed = true
	d.mtx.Unlock()

	if err := d.player.Close(); err != nil {
		d.logger.Error("could not close player", "err", err)
		return fmt.Errorf("%w", err)
	}
	d.logger.Debug("device closed")

	return nil
}
