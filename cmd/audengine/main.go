// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ik5/audengine"
	"github.com/ik5/audengine/device"
	"github.com/ik5/audengine/internal/config"
)

var errBadPosition = errors.New("position must be x,y,z")

// parseSourceArg splits "path[@x,y,z]". A source without a position is
// non-spatial.
func parseSourceArg(arg string) (string, mgl32.Vec3, bool, error) {
	path, pos, found := strings.Cut(arg, "@")
	if !found {
		return arg, mgl32.Vec3{}, false, nil
	}

	parts := strings.Split(pos, ",")
	if len(parts) != 3 {
		return "", mgl32.Vec3{}, false, fmt.Errorf("%w: %q", errBadPosition, pos)
	}

	var v mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return "", mgl32.Vec3{}, false, fmt.Errorf("%w: %w", errBadPosition, err)
		}
		v[i] = float32(f)
	}

	return path, v, true, nil
}

func newBackend(cfg config.Config, until func() bool) (device.Backend, error) {
	logger := slog.Default()

	switch cfg.Backend {
	case "oto":
		return device.NewOtoBackend(device.Config{
			SampleRate:   cfg.SampleRate,
			Channels:     cfg.Channels,
			PeriodFrames: cfg.PeriodFrames,
		}, logger)
	case "file":
		return device.NewFileBackend(device.FileOptions{Path: cfg.OutputFile, Until: until}, logger), nil
	default:
		return device.NewMalgoBackend(logger)
	}
}

func run(cfg config.Config, listDevices bool, args []string) error {
	var eng *audengine.Engine
	backend, err := newBackend(cfg, func() bool { return eng.Done() })
	if err != nil {
		return fmt.Errorf("init backend: %w", err)
	}

	if listDevices {
		defer backend.Close()

		devices, err := backend.Devices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			marker := " "
			if d.Default {
				marker = "*"
			}
			fmt.Printf("%s %-40s %s\n", marker, d.Name, d.ID)
		}

		return nil
	}

	eng, err = audengine.New(backend, audengine.Options{
		SampleRate:      cfg.SampleRate,
		Channels:        cfg.Channels,
		PeriodFrames:    cfg.PeriodFrames,
		BufferSamples:   cfg.BufferSamples,
		PrefetchSamples: cfg.PrefetchSamples,
	})
	if err != nil {
		_ = backend.Close()
		return err
	}
	defer eng.Close()

	if err := eng.SetEffects(cfg.Effects); err != nil {
		return fmt.Errorf("effects: %w", err)
	}

	for _, arg := range args {
		path, pos, spatial, err := parseSourceArg(arg)
		if err != nil {
			return err
		}

		var opts []audengine.SourceOption
		if !spatial {
			opts = append(opts, audengine.WithNonSpatial())
		}

		id, err := eng.AddSource(path, 100, pos, opts...)
		if err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
		slog.Info("source added", "path", path, "id", id, "spatial", spatial)
	}

	if err := eng.Start(cfg.Device); err != nil {
		return fmt.Errorf("start device: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := eng.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := eng.Stats()
	slog.Info(
		"playback finished",
		"elapsed", time.Since(start),
		"callbacks", stats.Callbacks,
		"underruns", stats.Underruns,
	)

	return nil
}

func main() {
	configFilePath := flag.String("config", "config.yaml", "Set the file path to the config file.")
	listDevices := flag.Bool("list-devices", false, "List output devices of the configured backend and exit.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] file[@x,y,z] ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configFilePath)
	if err != nil {
		slog.Error("error while loading config", "err", err)
		os.Exit(1)
	}

	logFilePointer, err := config.ConfigureLogger(cfg.LogLevel, cfg.LogFile, slog.HandlerOptions{})
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		os.Exit(1)
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	if !*listDevices && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// --------------------------------------------------------------------------------

	if err := run(cfg, *listDevices, flag.Args()); err != nil {
		slog.Error("fatal", "err", err)
		if logFilePointer != nil {
			_ = logFilePointer.Close()
		}
		os.Exit(1)
	}
}
