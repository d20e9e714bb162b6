// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes 16-bit PCM AIFF files into interleaved PCM16 using
// github.com/go-audio/aiff.
//
// The go-audio decoder needs an io.ReadSeeker. Readers that cannot seek are
// read into memory first.
//
// Errors:
//   - ErrNotAiffFile: the input is not a FORM/AIFF container
//   - ErrOnlyPCM16bitSupported: the sample size is not 16 bits
//   - ErrUnsupportedAiffLayout: the COMM chunk could not be read
package aiff
