// SPDX-License-Identifier: EPL-2.0

// Package config loads engine settings through viper and configures the
// default slog logger.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/ik5/audengine/effects"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the unmarshalled engine configuration.
type Config struct {
	LogLevel string `mapstructure:"loglevel"`
	LogFile  string `mapstructure:"logfile"`

	SampleRate   int    `mapstructure:"samplerate"`
	Channels     int    `mapstructure:"channels"`
	PeriodFrames int    `mapstructure:"periodframes"`
	Backend      string `mapstructure:"backend"`
	Device       string `mapstructure:"device"`
	OutputFile   string `mapstructure:"outputfile"`

	// BufferSamples is the ceiling for a source's StreamBuffer capacity.
	BufferSamples int `mapstructure:"buffersamples"`
	// PrefetchSamples is the capacity of each source's decode ring.
	PrefetchSamples int `mapstructure:"prefetchsamples"`

	Effects []effects.Params `mapstructure:"effects"`
}

func setViperDefaults(v *viper.Viper) {
	v.SetDefault("loglevel", "info")
	v.SetDefault("logfile", "")
	v.SetDefault("samplerate", 48000)
	v.SetDefault("channels", 2)
	v.SetDefault("periodframes", 512)
	v.SetDefault("backend", "malgo")
	v.SetDefault("device", "")
	v.SetDefault("outputfile", "out.wav")
	v.SetDefault("buffersamples", 32768)
	v.SetDefault("prefetchsamples", 65536)
	v.SetDefault("effects", []map[string]any{})
}

// Default returns the configuration with every key at its default.
func Default() Config {
	cfg, _ := Load("")
	return cfg
}

// Load reads configFilePath (any format viper understands) over the
// defaults. An empty path or a missing file leaves the defaults in place.
func Load(configFilePath string) (Config, error) {
	v := viper.New()
	setViperDefaults(v)

	if configFilePath != "" {
		v.SetConfigFile(configFilePath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				slog.Info("no config file found", "configFilePath", configFilePath)
			} else {
				slog.Error("error during config read", "err", err)
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: samplerate %d", ErrInvalidConfig, c.SampleRate)
	case c.Channels <= 0:
		return fmt.Errorf("%w: channels %d", ErrInvalidConfig, c.Channels)
	case c.PeriodFrames < 0:
		return fmt.Errorf("%w: periodframes %d", ErrInvalidConfig, c.PeriodFrames)
	case c.BufferSamples < c.Channels:
		return fmt.Errorf("%w: buffersamples %d", ErrInvalidConfig, c.BufferSamples)
	case c.PrefetchSamples < c.Channels:
		return fmt.Errorf("%w: prefetchsamples %d", ErrInvalidConfig, c.PrefetchSamples)
	}

	switch c.Backend {
	case "malgo", "oto", "file":
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}

	return nil
}
