// SPDX-License-Identifier: EPL-2.0

// Package device connects the mixer to an audio output.
//
// A Backend enumerates outputs and opens a Device for a given format. The
// Device pulls audio by invoking a Callback on its own goroutine (the audio
// thread) with a buffer of interleaved PCM16 that the callback must fill
// completely. Stop returns only after any in-flight callback has returned,
// so it is safe to release resources the callback uses right after it.
//
// Three backends are provided: miniaudio through malgo (real devices,
// enumeration), oto (the platform default output) and a WAV file writer
// for offline rendering and tests.
package device

import (
	"encoding/binary"
	"fmt"
)

// Info describes an output device.
type Info struct {
	ID      string
	Name    string
	Default bool
}

// Config is the stream format requested from a device.
type Config struct {
	SampleRate int
	Channels   int
	// PeriodFrames is the preferred callback size; 0 lets the backend pick.
	PeriodFrames int
	// DeviceID selects an output from Backend.Devices; empty means default.
	DeviceID string
}

func (c Config) validate() error {
	if c.SampleRate <= 0 || c.Channels <= 0 || c.PeriodFrames < 0 {
		return fmt.Errorf("%w: rate=%d channels=%d period=%d",
			ErrInvalidConfig, c.SampleRate, c.Channels, c.PeriodFrames)
	}

	return nil
}

// Callback fills out with frames interleaved frames.
type Callback func(out []int16, frames int)

type Backend interface {
	Name() string
	Devices() ([]Info, error)
	DefaultDevice() (Info, error)
	Open(cfg Config, cb Callback) (Device, error)
	Close() error
}

// Offline is implemented by backends that may pull the callback faster
// than real time. Producers feeding such a backend must not rely on a
// background decoder keeping up.
type Offline interface {
	Offline() bool
}

type Device interface {
	Info() Info
	Start() error
	// Stop halts the stream and waits for the callback to return.
	Stop() error
	Close() error
}

// defaultOf picks the device flagged as default, or the first one.
func defaultOf(devices []Info) (Info, error) {
	for _, d := range devices {
		if d.Default {
			return d, nil
		}
	}
	if len(devices) > 0 {
		return devices[0], nil
	}

	return Info{}, ErrDeviceNotFound
}

// pcmBridge adapts a Callback to backends that want little-endian bytes.
type pcmBridge struct {
	cb       Callback
	channels int
	scratch  []int16
}

func newPCMBridge(cb Callback, channels, periodFrames int) *pcmBridge {
	return &pcmBridge{
		cb:       cb,
		channels: channels,
		scratch:  make([]int16, max(periodFrames, 256)*channels),
	}
}

// fill renders into p. Bytes that do not form a whole frame are zeroed.
func (b *pcmBridge) fill(p []byte) {
	frames := len(p) / (2 * b.channels)
	n := frames * b.channels

	if cap(b.scratch) < n {
		b.scratch = make([]int16, n)
	}
	out := b.scratch[:n]

	b.cb(out, frames)

	for i, v := range out {
		binary.LittleEndian.PutUint16(p[2*i:], uint16(v))
	}
	clear(p[2*n:])
}
