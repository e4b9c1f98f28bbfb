// SPDX-License-Identifier: EPL-2.0

// Package config holds the runtime settings of the scheduler.
//
// Settings come from an optional YAML file and can be overridden by
// environment variables named after the YAML keys, upper-cased and prefixed
// with AUDSCHED_, e.g. AUDSCHED_SAMPLE_RATE.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"
	"gopkg.in/yaml.v3"
)

const envPrefix = "AUDSCHED_"

type Config struct {
	SampleRate int `yaml:"sample_rate"`
	// BufferSize is the output latency of the speaker.
	BufferSize time.Duration `yaml:"buffer_size"`
	// ResampleQuality of playback-rate changes, 1 to 64.
	ResampleQuality int     `yaml:"resample_quality"`
	MasterVolume    float64 `yaml:"master_volume"`
	// Mono downmixes assets when they are loaded.
	Mono bool `yaml:"mono"`
	// AssetBase resolves relative asset URLs: a URL or a directory.
	AssetBase    string        `yaml:"asset_base"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	EventBuffer  int           `yaml:"event_buffer"`
	LogLevel     string        `yaml:"log_level"`
	// Headless renders without opening an audio device.
	Headless bool `yaml:"headless"`
}

func Default() *Config {
	return &Config{
		SampleRate:      48000,
		BufferSize:      100 * time.Millisecond,
		ResampleQuality: 4,
		MasterVolume:    1,
		FetchTimeout:    30 * time.Second,
		EventBuffer:     64,
		LogLevel:        "info",
	}
}

// Load reads the file at path over the defaults, applies the environment
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	vars := []struct {
		key string
		set func(string) error
	}{
		{"SAMPLE_RATE", intVar(&c.SampleRate)},
		{"BUFFER_SIZE", durationVar(&c.BufferSize)},
		{"RESAMPLE_QUALITY", intVar(&c.ResampleQuality)},
		{"MASTER_VOLUME", floatVar(&c.MasterVolume)},
		{"MONO", boolVar(&c.Mono)},
		{"ASSET_BASE", stringVar(&c.AssetBase)},
		{"FETCH_TIMEOUT", durationVar(&c.FetchTimeout)},
		{"EVENT_BUFFER", intVar(&c.EventBuffer)},
		{"LOG_LEVEL", stringVar(&c.LogLevel)},
		{"HEADLESS", boolVar(&c.Headless)},
	}

	for _, v := range vars {
		s, ok := lookup(envPrefix + v.key)
		if !ok {
			continue
		}
		if err := v.set(strings.TrimSpace(s)); err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, v.key, err)
		}
	}

	return nil
}

func intVar(p *int) func(string) error {
	return func(s string) (err error) {
		*p, err = strconv.Atoi(s)
		return err
	}
}

func floatVar(p *float64) func(string) error {
	return func(s string) (err error) {
		*p, err = strconv.ParseFloat(s, 64)
		return err
	}
}

func boolVar(p *bool) func(string) error {
	return func(s string) (err error) {
		*p, err = strconv.ParseBool(s)
		return err
	}
}

func durationVar(p *time.Duration) func(string) error {
	return func(s string) (err error) {
		*p, err = time.ParseDuration(s)
		return err
	}
}

func stringVar(p *string) func(string) error {
	return func(s string) error {
		*p = s
		return nil
	}
}

// Level is the parsed LogLevel.
func (c *Config) Level() slog.Level {
	lvl, _ := slog.LevelFromString(c.LogLevel)
	return lvl
}

func (c *Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate %d must be positive", ErrInvalid, c.SampleRate)
	case c.BufferSize <= 0:
		return fmt.Errorf("%w: buffer_size %v must be positive", ErrInvalid, c.BufferSize)
	case c.ResampleQuality < 1 || c.ResampleQuality > 64:
		return fmt.Errorf("%w: resample_quality %d outside 1..64", ErrInvalid, c.ResampleQuality)
	case c.MasterVolume < 0:
		return fmt.Errorf("%w: master_volume %v is negative", ErrInvalid, c.MasterVolume)
	case c.FetchTimeout < 0:
		return fmt.Errorf("%w: fetch_timeout %v is negative", ErrInvalid, c.FetchTimeout)
	case c.EventBuffer <= 0:
		return fmt.Errorf("%w: event_buffer %d must be positive", ErrInvalid, c.EventBuffer)
	}

	if _, ok := slog.LevelFromString(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}

	return nil
}
