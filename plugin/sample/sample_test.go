package sample_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/plugin/sample"
)

func writeStereo(t *testing.T, path string, sampleRate int, buf bats.AudioBuffer, pcm16 bool) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("could not create %v: %v", path, err)
	}
	defer f.Close()
	if err := buf.Wav(f, sampleRate, pcm16); err != nil {
		t.Fatalf("could not write %v: %v", path, err)
	}
}

func writeMono16(t *testing.T, path string, sampleRate int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("could not create %v: %v", path, err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{Data: data, Format: &audio.Format{SampleRate: sampleRate, NumChannels: 1}, SourceBitDepth: 16}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFloatWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "float.wav")
	want := bats.AudioBuffer{{0.5, -0.5}, {0.25, 1}, {-1, 0}}
	writeStereo(t, path, 44100, want, false)
	s, err := sample.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.SampleRate != 44100 || len(s.Frames) != len(want) {
		t.Fatalf("loaded %d frames at %d Hz", len(s.Frames), s.SampleRate)
	}
	for i := range want {
		if s.Frames[i] != want[i] {
			t.Errorf("frame %d = %v, want %v", i, s.Frames[i], want[i])
		}
	}
}

func TestLoadPCM16Wav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pcm.wav")
	writeStereo(t, path, 22050, bats.AudioBuffer{{0.5, -0.5}, {0, 1}}, true)
	s, err := sample.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s.Frames) != 2 {
		t.Fatalf("loaded %d frames, want 2", len(s.Frames))
	}
	if math.Abs(float64(s.Frames[0][0]-0.5)) > 1e-3 || math.Abs(float64(s.Frames[1][1]-1)) > 1e-3 {
		t.Errorf("frames = %v", s.Frames)
	}
}

func TestLoadMonoDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeMono16(t, path, 44100, []int{16384, -16384, 0})
	s, err := sample.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := bats.AudioBuffer{{0.5, 0.5}, {-0.5, -0.5}, {0, 0}}
	if len(s.Frames) != len(want) {
		t.Fatalf("loaded %d frames, want %d", len(s.Frames), len(want))
	}
	for i := range want {
		if s.Frames[i] != want[i] {
			t.Errorf("frame %d = %v, want %v", i, s.Frames[i], want[i])
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("definitely not a riff file"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := sample.Load(path); err == nil {
		t.Error("loading garbage succeeded")
	}
	if _, err := sample.Load(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("loading a missing file succeeded")
	}
}

func TestResample(t *testing.T) {
	s := sample.FromMono(1000, []float32{0, 1, 2, 3})
	if s.Resample(1000) != s {
		t.Error("resampling to the same rate copied the sample")
	}
	up := s.Resample(2000)
	want := []float32{0, 0.5, 1, 1.5, 2, 2.5, 3, 3}
	if len(up.Frames) != len(want) {
		t.Fatalf("upsampled to %d frames, want %d", len(up.Frames), len(want))
	}
	for i, v := range want {
		if up.Frames[i] != [2]float32{v, v} {
			t.Errorf("frame %d = %v, want %v", i, up.Frames[i], v)
		}
	}
	down := s.Resample(500)
	if len(down.Frames) != 2 || down.Frames[1][0] != 2 {
		t.Errorf("downsampled = %v", down.Frames)
	}
}

func process(u bats.Unit, frames int, events ...bats.MIDIEvent) [2][]float32 {
	out := [2][]float32{make([]float32, frames), make([]float32, frames)}
	u.Process(nil, out[:], events)
	return out
}

func TestSampler(t *testing.T) {
	s := sample.NewSampler(sample.FromMono(44100, []float32{1, 1, 1}))
	out := process(s, 2)
	if out[0][0] != 0 || out[1][1] != 0 {
		t.Fatalf("sampler played without a note: %v", out)
	}
	out = process(s, 5, bats.NoteOnEvent(1, 0, 60, 100))
	want := []float32{0, 1, 1, 1, 0}
	for i, v := range want {
		if out[0][i] != v || out[1][i] != v {
			t.Fatalf("frame %d = %v %v, want %v", i, out[0][i], out[1][i], v)
		}
	}
	process(s, 1, bats.NoteOnEvent(0, 0, 60, 100))
	if !s.Playing() {
		t.Fatal("sampler not playing after a note on")
	}
	out = process(s, 2, bats.NoteOffEvent(0, 0, 60))
	if s.Playing() || out[0][0] != 0 {
		t.Fatalf("note off did not stop the sample: %v", out)
	}
	process(s, 1, bats.NoteOnEvent(0, 0, 60, 100))
	process(s, 1, bats.ResetEvent(0))
	if s.Playing() {
		t.Fatal("reset did not stop the sample")
	}
}

func TestFormat(t *testing.T) {
	dir := t.TempDir()
	writeStereo(t, filepath.Join(dir, "drums", "kick.wav"), 22050, bats.AudioBuffer{{1, 1}, {0.5, 0.5}}, false)
	writeStereo(t, filepath.Join(dir, "clap.wav"), 44100, bats.AudioBuffer{{1, 1}}, false)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	f := sample.NewFormat(dir)
	plugins := f.Plugins()
	if len(plugins) != 2 {
		t.Fatalf("got %d plugins, want 2", len(plugins))
	}
	if plugins[0].ID != "sample:clap.wav" || plugins[1].ID != "sample:drums/kick.wav" {
		t.Fatalf("plugin ids %v, %v", plugins[0].ID, plugins[1].ID)
	}
	if plugins[1].Name != "kick" || !plugins[1].Instrument {
		t.Errorf("descriptor = %+v", plugins[1])
	}
	u, err := f.Instantiate(plugins[1].ID, 44100, 64)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	out := process(u, 5, bats.NoteOnEvent(0, 0, 60, 100))
	// two frames at 22050 Hz resampled to four at 44100 Hz
	want := []float32{1, 0.75, 0.5, 0.5, 0}
	for i, v := range want {
		if out[0][i] != v {
			t.Fatalf("frame %d = %v, want %v", i, out[0][i], v)
		}
	}
	if _, err := f.Instantiate("sample:../escape.wav", 44100, 64); err == nil {
		t.Error("instantiating a path outside the directory succeeded")
	}
	if _, err := f.Instantiate("sample:missing.wav", 44100, 64); err == nil {
		t.Error("instantiating a missing sample succeeded")
	}
	if got := sample.NewFormat("").Plugins(); len(got) != 0 {
		t.Errorf("format without a directory lists %v", got)
	}
}
