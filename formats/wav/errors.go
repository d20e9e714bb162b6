// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	// ErrInvalidChunk reports a chunk tag that does not match the expected
	// RIFF/WAVE layout. It is recoverable: the header is Invalid and the
	// caller decides whether to skip the asset.
	ErrInvalidChunk = errors.New("invalid WAV chunk")
	// ErrInconsistentFormat reports a fmt payload whose block alignment or
	// byte rate does not follow from its other fields.
	ErrInconsistentFormat = errors.New("inconsistent WAV format chunk")
	// ErrTruncatedHeader reports a stream that ends inside the header.
	ErrTruncatedHeader = errors.New("truncated WAV header")
	// ErrUnsupportedEncoding is fatal: only 16-bit PCM is supported.
	ErrUnsupportedEncoding = errors.New("only PCM 16-bit supported")
)
