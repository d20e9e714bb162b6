// SPDX-License-Identifier: EPL-2.0

package device

import "errors"

var (
	// ErrBackendInit is fatal: the audio backend could not be initialized.
	ErrBackendInit = errors.New("audio backend initialization failed")
	// ErrDeviceOpen is fatal: the output device could not be opened or
	// started.
	ErrDeviceOpen = errors.New("audio device open failed")
	// ErrDeviceNotFound reports an unknown device id.
	ErrDeviceNotFound = errors.New("audio device not found")
	ErrInvalidConfig  = errors.New("invalid device configuration")
	ErrClosed         = errors.New("device closed")
)
