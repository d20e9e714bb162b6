// SPDX-License-Identifier: EPL-2.0

package audengine

import "errors"

var (
	ErrClosed         = errors.New("engine closed")
	ErrInvalidOptions = errors.New("invalid engine options")
	ErrNotStarted     = errors.New("engine has no running device")
	ErrAlreadyStarted = errors.New("engine already started")
	ErrSourceNotFound = errors.New("source not found")
)
