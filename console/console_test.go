package console_test

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/console"
	"github.com/vsariola/bats/control"
	"github.com/vsariola/bats/engine"
	"github.com/vsariola/bats/plugin/builtin"
)

type harness struct {
	t       *testing.T
	engine  *engine.Engine
	control *control.Control
	console *console.Console
	out     bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	old := logger.Switch(io.Discard)
	h := &harness{t: t}
	h.engine = engine.New(engine.NewBroker(64), engine.Options{SampleRate: 1000, BufferSize: 4, Session: "0f8fad5b-d9cb-469f-a165-70867728950e"})
	h.control = control.New(h.engine, builtin.Format{})
	ctx, cancel := context.WithCancel(context.Background())
	go h.control.Run(ctx)
	t.Cleanup(func() {
		cancel()
		h.control.Close()
		logger.Switch(old)
	})
	c, err := console.New(h.control, &h.out, console.DefaultTheme)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.console = c
	return h
}

// exec runs line, lets the engine apply it and returns the output.
func (h *harness) exec(line string) (string, error) {
	h.t.Helper()
	h.out.Reset()
	err := h.console.Exec(context.Background(), line)
	h.engine.Process(make(bats.AudioBuffer, 4), engine.NullProcessContext{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.control.Sync(ctx)
	return h.out.String(), err
}

func (h *harness) expect(line string, want ...string) {
	h.t.Helper()
	out, err := h.exec(line)
	if err != nil {
		h.t.Fatalf("%q failed: %v", line, err)
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			h.t.Fatalf("%q printed %q, want it to contain %q", line, out, w)
		}
	}
}

func TestConsoleCommands(t *testing.T) {
	h := newHarness(t)
	h.expect("make-track bats:toof bats:gain", "ok track 0")
	h.expect("tracks", "track 0", "volume 1.00", "enabled", "bats:toof", "bats:gain")
	h.expect("volume 0 0.5", "ok")
	h.expect("track 0", "volume 0.50")
	h.expect("disable 0", "ok")
	h.expect("track 0", "disabled")
	h.expect("enable 0", "ok")
	h.expect("instantiate 0 bats:moog", "ok instance 2")
	h.expect("instance 1", "instance 1", "bats:gain", "on track 0", "Gain")
	h.expect("param 0 1 1 1.5", "ok")
	h.expect("delete-instance 0 2", "ok")
	h.expect("bpm 90", "ok")
	h.expect("metronome 0.25", "ok")
	h.expect("settings", "90 bpm", "metronome 0.25", "1000 Hz", "4 frames", "running", "0f8fad5b")
	h.expect("undo", "ok")
	h.expect("settings", "metronome 0.00")
	h.expect("delete-track 0", "ok")
	h.expect("tracks", "no tracks")
	h.expect("plugins", "bats:toof", "Instrument, Synth", "bats:empty")
	h.expect("help", "make-track", "[plugin...]", "delete-instance")
	h.expect("# a comment")
}

func TestConsoleErrors(t *testing.T) {
	h := newHarness(t)
	h.expect("make-track", "ok track 0")
	cases := []struct {
		line string
		want error
	}{
		{"track 9", bats.ErrUnknownTrack},
		{"instance 3", bats.ErrUnknownPluginInstance},
		{"volume 7 1", bats.ErrUnknownTrack},
		{"instantiate 0 lv2:missing", bats.ErrPluginInstantiationFailed},
		{"make-track bats:nope", bats.ErrPluginInstantiationFailed},
		{"quit", console.ErrQuit},
		{"exit", console.ErrQuit},
	}
	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			if _, err := h.exec(c.line); errors.Cause(err) != c.want {
				t.Errorf("got %v, want %v", err, c.want)
			}
		})
	}
	for _, line := range []string{"bogus", "volume x 1", "volume 0", "bpm fast", "param 0 0 a 1", "delete-track"} {
		t.Run(line, func(t *testing.T) {
			if _, err := h.exec(line); err == nil {
				t.Errorf("%q succeeded", line)
			}
		})
	}
}

func TestConsoleSaveLoad(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "session.yml")
	h.expect("make-track bats:toof", "ok track 0")
	h.expect("volume 0 0.75", "ok")
	h.expect("save "+path, "ok")
	h.expect("load "+path, "ok")
	h.expect("tracks", "track 1", "volume 0.75")
	if _, err := h.exec("load " + filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("loading a missing file succeeded")
	}
}

func TestConsoleRun(t *testing.T) {
	h := newHarness(t)
	in := strings.NewReader("make-track\nbogus\nquit\nmake-track\n")
	if err := h.console.Run(context.Background(), in); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	out := h.out.String()
	if !strings.Contains(out, "ok track 0") || !strings.Contains(out, "error:") {
		t.Errorf("output %q", out)
	}
	if strings.Contains(out, "track 1") {
		t.Errorf("Run went on after quit: %q", out)
	}
}
