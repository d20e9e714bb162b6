// SPDX-License-Identifier: EPL-2.0

package device

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/google/uuid"
)

// MalgoBackend drives output devices through miniaudio.
type MalgoBackend struct {
	logger *slog.Logger
	ctx    *malgo.AllocatedContext

	closeOnce sync.Once
}

// NewMalgoBackend initializes a miniaudio context with the platform's
// default backend list.
func NewMalgoBackend(logger *slog.Logger) (*MalgoBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", "malgo")

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", "message", message)
	})
	if err != nil {
		logger.Error("could not initialize context", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrBackendInit, err)
	}

	return &MalgoBackend{logger: logger, ctx: ctx}, nil
}

func (b *MalgoBackend) Name() string { return "malgo" }

func (b *MalgoBackend) playback() ([]malgo.DeviceInfo, error) {
	infos, err := b.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate: %w", ErrBackendInit, err)
	}

	return infos, nil
}

func toInfo(d malgo.DeviceInfo) Info {
	return Info{
		ID:      hex.EncodeToString(d.ID[:]),
		Name:    d.Name(),
		Default: d.IsDefault != 0,
	}
}

func (b *MalgoBackend) Devices() ([]Info, error) {
	infos, err := b.playback()
	if err != nil {
		return nil, err
	}

	out := make([]Info, len(infos))
	for i := range infos {
		out[i] = toInfo(infos[i])
	}

	return out, nil
}

func (b *MalgoBackend) DefaultDevice() (Info, error) {
	devices, err := b.Devices()
	if err != nil {
		return Info{}, err
	}

	return defaultOf(devices)
}

// Open initializes a PCM16 playback device. An empty cfg.DeviceID selects
// the default output.
func (b *MalgoBackend) Open(cfg Config, cb Callback) (Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	d := &malgoDevice{
		bridge: newPCMBridge(cb, cfg.Channels, cfg.PeriodFrames),
	}

	infos, err := b.playback()
	if err != nil {
		return nil, err
	}

	var selected *malgo.DeviceInfo
	for i := range infos {
		info := toInfo(infos[i])
		if (cfg.DeviceID == "" && info.Default) || (cfg.DeviceID != "" && info.ID == cfg.DeviceID) {
			selected = &infos[i]
			d.info = info
			break
		}
	}
	if selected == nil && cfg.DeviceID != "" {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, cfg.DeviceID)
	}
	if selected == nil {
		d.info = Info{ID: "", Name: "default", Default: true}
	}

	d.logger = b.logger.With("device uuid", uuid.New(), "device", d.info.Name)

	devCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	devCfg.Playback.Format = malgo.FormatS16
	devCfg.Playback.Channels = uint32(cfg.Channels)
	devCfg.SampleRate = uint32(cfg.SampleRate)
	devCfg.PeriodSizeInFrames = uint32(cfg.PeriodFrames)
	devCfg.Alsa.NoMMap = 1
	if selected != nil {
		d.id = selected.ID
		devCfg.Playback.DeviceID = d.id.Pointer()
	}

	dev, err := malgo.InitDevice(b.ctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			d.bridge.fill(out)
		},
	})
	if err != nil {
		d.logger.Error("could not initialize device", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrDeviceOpen, err)
	}
	d.dev = dev

	d.logger.Debug(
		"device opened",
		"sampleRate", cfg.SampleRate,
		"channels", cfg.Channels,
		"periodFrames", cfg.PeriodFrames,
	)

	return d, nil
}

func (b *MalgoBackend) Close() error {
	b.closeOnce.Do(func() {
		_ = b.ctx.Uninit()
		b.ctx.Free()
	})

	return nil
}

type malgoDevice struct {
	logger *slog.Logger
	info   Info
	id     malgo.DeviceID
	dev    *malgo.Device
	bridge *pcmBridge

	closeOnce sync.Once
}

func (d *malgoDevice) Info() Info { return d.info }

func (d *malgoDevice) Start() error {
	if err := d.dev.Start(); err != nil {
		d.logger.Error("could not start device", "err", err)
		return fmt.Errorf("%w: start: %w", ErrDeviceOpen, err)
	}

	return nil
}

// Stop blocks until miniaudio has stopped calling back.
func (d *malgoDevice) Stop() error {
	if err := d.dev.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	return nil
}

func (d *malgoDevice) Close() error {
	d.closeOnce.Do(func() {
		d.dev.Uninit()
		d.logger.Debug("device closed")
	})

	return nil
}
