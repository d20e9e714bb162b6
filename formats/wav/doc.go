// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF/WAVE PCM 16-bit files.
//
// ParseHeader validates a header in a fixed order (RIFF tag, WAVE tag, fmt
// tag, fmt payload, optional extension, data tag) and leaves the reader on
// the first sample. Ancillary chunks such as LIST, fact or JUNK between fmt
// and data are skipped; any other unexpected tag makes the header Invalid.
//
//	h, err := wav.ParseHeader(f)
//	switch {
//	case err == nil:
//	    // h.DataOffset, h.Samples() ...
//	case wav.IsRecoverable(err):
//	    // skip this asset
//	default:
//	    // ErrUnsupportedEncoding: not PCM16, abort
//	}
//
// Decoder wraps a parsed file as an audio.Stream of interleaved int16
// samples. WriteWAV16 writes the canonical 44-byte header followed by the
// samples.
package wav
