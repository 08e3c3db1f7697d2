// Package config loads the settings of the bats command line tool.
//
// The defaults are embedded in the binary. A config.yml in the bats
// directory of the user config dir, or a file given explicitly, overrides
// any of them.
package config

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/engine"
	yamlv2 "gopkg.in/yaml.v2"
	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		ClientName           string
		SampleRate           int
		BufferSize           int
		CommandCapacity      int
		MaxCommandsPerBuffer int
		LoadTimeConstant     time.Duration
		OverrunGuard         bool
		BPM                  float64
		MetronomeVolume      float32
		SampleDir            string
		VST2Paths            []string
		MIDIInput            string
		Tracks               []Track
	}

	// Track is a track made when the engine starts.
	Track struct {
		Plugins []bats.PluginID
		Volume  float32
		Enabled bool
	}
)

const fileName = "config.yml"

//go:embed default.yml
var defaultYml []byte

// Default returns the embedded default configuration.
func Default() Config {
	var c Config
	if err := yamlv2.UnmarshalStrict(defaultYml, &c); err != nil {
		panic(errors.Wrapf(err, "embedded %v", fileName))
	}
	return c
}

// UserPath returns the path of the user config file, which need not exist.
func UserPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrapf(err, "user config dir")
	}
	return filepath.Join(dir, "bats", fileName), nil
}

// Load returns the defaults overridden by the file at path. With an empty
// path the user config file is used if it exists.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		p, err := UserPath()
		if err != nil {
			return c, nil
		}
		if _, err := os.Stat(p); err != nil {
			return c, nil
		}
		path = p
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "read config %v", path)
	}
	if err := c.Overlay(b); err != nil {
		return c, errors.Wrapf(err, "config %v", path)
	}
	return c, c.Validate()
}

// Overlay replaces the fields present in the YAML document b. Unknown fields
// are errors.
func (c *Config) Overlay(b []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return errors.Wrapf(err, "parse")
	}
	return nil
}

func (c *Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return errors.Errorf("sample rate must be positive, got %d", c.SampleRate)
	case c.BufferSize <= 0:
		return errors.Errorf("buffer size must be positive, got %d", c.BufferSize)
	case c.CommandCapacity <= 0:
		return errors.Errorf("command capacity must be positive, got %d", c.CommandCapacity)
	case c.MaxCommandsPerBuffer <= 0:
		return errors.Errorf("commands per buffer must be positive, got %d", c.MaxCommandsPerBuffer)
	case c.LoadTimeConstant <= 0:
		return errors.Errorf("load time constant must be positive, got %v", c.LoadTimeConstant)
	case c.BPM < engine.MinBPM || c.BPM > engine.MaxBPM:
		return errors.Errorf("bpm must be within [%v, %v], got %v", engine.MinBPM, engine.MaxBPM, c.BPM)
	case c.MetronomeVolume < 0 || c.MetronomeVolume > 1:
		return errors.Errorf("metronome volume must be within [0, 1], got %v", c.MetronomeVolume)
	}
	for i, t := range c.Tracks {
		if t.Volume < 0 || t.Volume > engine.MaxVolume {
			return errors.Errorf("track %d: volume must be within [0, %v], got %v", i, engine.MaxVolume, t.Volume)
		}
	}
	return nil
}

// EngineOptions returns the engine options of the configuration. session
// identifies the run.
func (c *Config) EngineOptions(session string) engine.Options {
	return engine.Options{
		ClientName:           c.ClientName,
		Session:              session,
		SampleRate:           c.SampleRate,
		BufferSize:           c.BufferSize,
		MaxCommandsPerBuffer: c.MaxCommandsPerBuffer,
		LoadTimeConstant:     c.LoadTimeConstant,
		OverrunGuard:         c.OverrunGuard,
		BPM:                  c.BPM,
		MetronomeVolume:      c.MetronomeVolume,
	}
}
