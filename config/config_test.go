package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vsariola/bats/config"
)

func TestDefault(t *testing.T) {
	c := config.Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if c.SampleRate != 44100 || c.BufferSize != 512 || c.LoadTimeConstant != 250*time.Millisecond {
		t.Errorf("default config = %+v", c)
	}
	if len(c.Tracks) != 1 || len(c.Tracks[0].Plugins) != 1 || c.Tracks[0].Plugins[0] != "bats:toof" {
		t.Errorf("default tracks = %+v", c.Tracks)
	}
}

func TestOverlay(t *testing.T) {
	c := config.Default()
	err := c.Overlay([]byte("buffersize: 128\nvst2paths: [/usr/lib/vst]\ntracks:\n  - plugins: [sample:kick.wav]\n    volume: 0.5\n"))
	if err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}
	if c.BufferSize != 128 || c.SampleRate != 44100 {
		t.Errorf("overlay gave buffer size %d, sample rate %d", c.BufferSize, c.SampleRate)
	}
	if len(c.VST2Paths) != 1 || c.VST2Paths[0] != "/usr/lib/vst" {
		t.Errorf("vst2 paths = %v", c.VST2Paths)
	}
	if len(c.Tracks) != 1 || c.Tracks[0].Plugins[0] != "sample:kick.wav" || c.Tracks[0].Volume != 0.5 || c.Tracks[0].Enabled {
		t.Errorf("tracks = %+v, want the overlay to replace the defaults", c.Tracks)
	}
	if err := c.Overlay(nil); err != nil {
		t.Errorf("empty overlay failed: %v", err)
	}
	if err := c.Overlay([]byte("buffer_size: 128\n")); err == nil {
		t.Error("unknown field accepted")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"SampleRate", func(c *config.Config) { c.SampleRate = 0 }},
		{"BufferSize", func(c *config.Config) { c.BufferSize = -1 }},
		{"CommandCapacity", func(c *config.Config) { c.CommandCapacity = 0 }},
		{"MaxCommandsPerBuffer", func(c *config.Config) { c.MaxCommandsPerBuffer = 0 }},
		{"LoadTimeConstant", func(c *config.Config) { c.LoadTimeConstant = 0 }},
		{"BPM", func(c *config.Config) { c.BPM = 5000 }},
		{"MetronomeVolume", func(c *config.Config) { c.MetronomeVolume = 2 }},
		{"TrackVolume", func(c *config.Config) { c.Tracks[0].Volume = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := config.Default()
			tc.modify(&c)
			if err := c.Validate(); err == nil {
				t.Errorf("Validate() accepted %+v", c)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("samplerate: 48000\nloadtimeconstant: 1s\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.SampleRate != 48000 || c.LoadTimeConstant != time.Second || c.BufferSize != 512 {
		t.Errorf("loaded config = %+v", c)
	}
	o := c.EngineOptions("session")
	if o.SampleRate != 48000 || o.Session != "session" || o.ClientName != "bats" || !o.OverrunGuard {
		t.Errorf("engine options = %+v", o)
	}
	if err := os.WriteFile(path, []byte("samplerate: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Error("Load accepted a zero sample rate")
	}
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Load accepted a missing explicit file")
	}
}
