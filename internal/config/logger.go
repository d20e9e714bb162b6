// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
)

var ErrUnknownLogLevel = errors.New("unexpected log level")

// ConfigureLogger installs the default slog logger for a level and an
// optional output file.
//
// Valid log levels are "none", "error", "warn", "info", "debug". An empty
// logFile logs text to stdout; otherwise JSON goes to the file, whose handle
// is returned so the caller can close it.
func ConfigureLogger(logLevel, logFile string, opts slog.HandlerOptions) (*os.File, error) {
	switch logLevel {
	case "none":
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	case "error":
		opts.Level = slog.LevelError
	case "warn":
		opts.Level = slog.LevelWarn
	case "info":
		opts.Level = slog.LevelInfo
	case "debug":
		opts.Level = slog.LevelDebug
	default:
		return nil, ErrUnknownLogLevel
	}

	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &opts)))
		return nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &opts)))

	return f, nil
}
