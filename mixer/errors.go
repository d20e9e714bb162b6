// SPDX-License-Identifier: EPL-2.0

package mixer

import "errors"

var (
	ErrChannelMismatch = errors.New("source channel count does not match mixer")
	ErrDuplicateSource = errors.New("source already registered")
)
