package builtin_test

import (
	"testing"

	"github.com/vsariola/bats"
	"github.com/vsariola/bats/plugin/builtin"
)

func render(u bats.Unit, frames int, events ...bats.MIDIEvent) [2][]float32 {
	out := [2][]float32{make([]float32, frames), make([]float32, frames)}
	var in [][]float32
	for i := 0; i < u.Ports().AudioIn; i++ {
		in = append(in, make([]float32, frames))
	}
	if err := u.Process(in, out[:], events); err != nil {
		panic(err)
	}
	return out
}

func silent(buf []float32) bool {
	for _, v := range buf {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestToofNoteProducesAudio(t *testing.T) {
	toof := builtin.NewToof(44100)
	out := render(toof, 44100)
	if !silent(out[0]) || !silent(out[1]) {
		t.Fatal("toof made sound without notes")
	}
	out = render(toof, 44100, bats.NoteOnEvent(0, 0, 48, 127))
	if silent(out[0]) || silent(out[1]) {
		t.Fatal("toof is silent after a note on")
	}
}

func TestToofPolyphonySums(t *testing.T) {
	newToof := func() *builtin.Toof {
		toof := builtin.NewToof(44100)
		toof.SetParam(builtin.ToofBypassFilter, 1)
		toof.SetParam(builtin.ToofPolyphonic, 1)
		return toof
	}
	a := bats.NoteOnEvent(0, 0, 57, 127)
	b := bats.NoteOnEvent(0, 0, 71, 127)
	outA := render(newToof(), 100, a)
	outB := render(newToof(), 100, b)
	sum := render(newToof(), 100, a, b)
	for c := 0; c < 2; c++ {
		for i := range sum[c] {
			if sum[c][i] != outA[c][i]+outB[c][i] {
				t.Fatalf("channel %d frame %d: %v, want %v", c, i, sum[c][i], outA[c][i]+outB[c][i])
			}
		}
	}
}

func TestToofVoiceLifecycle(t *testing.T) {
	toof := builtin.NewToof(1000)
	toof.SetParam(builtin.ToofPolyphonic, 1)
	render(toof, 10, bats.NoteOnEvent(0, 0, 60, 100), bats.NoteOnEvent(1, 0, 64, 100))
	if got := toof.Voices(); got != 2 {
		t.Fatalf("voices = %d, want 2", got)
	}
	render(toof, 10, bats.NoteOffEvent(0, 0, 60))
	// the release of 50 ms is over after 50 frames at 1 kHz
	render(toof, 100)
	if got := toof.Voices(); got != 1 {
		t.Fatalf("voices after note off = %d, want 1", got)
	}
	render(toof, 10, bats.ResetEvent(0))
	if got := toof.Voices(); got != 0 {
		t.Fatalf("voices after reset = %d, want 0", got)
	}
	toof.SetParam(builtin.ToofPolyphonic, 0)
	render(toof, 10, bats.NoteOnEvent(0, 0, 60, 100), bats.NoteOnEvent(1, 0, 64, 100))
	if got := toof.Voices(); got != 1 {
		t.Fatalf("mono voices = %d, want 1", got)
	}
	for i := 0; i < 20; i++ {
		toof.SetParam(builtin.ToofPolyphonic, 1)
		render(toof, 1, bats.NoteOnEvent(0, 0, byte(40+i), 100))
	}
	if got := toof.Voices(); got != builtin.MaxToofVoices {
		t.Fatalf("voices = %d, want at most %d", got, builtin.MaxToofVoices)
	}
}

func TestToofParams(t *testing.T) {
	toof := builtin.NewToof(44100)
	cases := []struct {
		id        int
		set, want float32
	}{
		{builtin.ToofCutoff, 1000, 1000},
		{builtin.ToofCutoff, 20000, 9000},
		{builtin.ToofResonance, 0, 0.01},
		{builtin.ToofBypassFilter, 0.7, 1},
		{builtin.ToofPolyphonic, 0.2, 0},
	}
	for _, c := range cases {
		toof.SetParam(c.id, c.set)
		if got := toof.Param(c.id); got != c.want {
			t.Errorf("param %d set to %v reads %v, want %v", c.id, c.set, got, c.want)
		}
	}
}

func TestEmptyIsSilent(t *testing.T) {
	out := [2][]float32{{1, 2, 3}, {4, 5, 6}}
	builtin.Empty{}.Process(nil, out[:], []bats.MIDIEvent{bats.NoteOnEvent(0, 0, 60, 100)})
	if !silent(out[0]) || !silent(out[1]) {
		t.Fatalf("empty wrote %v", out)
	}
}

func TestGain(t *testing.T) {
	g := builtin.NewGain()
	g.SetParam(builtin.GainGain, 0.5)
	in := [][]float32{{1, 2}, {-2, 4}}
	out := [][]float32{make([]float32, 2), make([]float32, 2)}
	g.Process(in, out, nil)
	want := [][]float32{{0.5, 1}, {-1, 2}}
	for c := range want {
		for i := range want[c] {
			if out[c][i] != want[c][i] {
				t.Fatalf("out = %v, want %v", out, want)
			}
		}
	}
	g.SetParam(builtin.GainGain, 5)
	if got := g.Param(builtin.GainGain); got != 2 {
		t.Errorf("gain = %v, want it clamped to 2", got)
	}
}

func TestMoogAttenuatesHighFrequencies(t *testing.T) {
	m := builtin.NewMoog(44100)
	m.SetParam(builtin.MoogCutoff, 200)
	const n = 4096
	in := [][]float32{make([]float32, n), make([]float32, n)}
	for i := 0; i < n; i++ {
		// Nyquist frequency square wave
		v := float32(0.5)
		if i%2 == 1 {
			v = -0.5
		}
		in[0][i], in[1][i] = v, v
	}
	out := [][]float32{make([]float32, n), make([]float32, n)}
	m.Process(in, out, nil)
	for c := range out {
		for _, v := range out[c][n/2:] {
			if v > 0.05 || v < -0.05 {
				t.Fatalf("channel %d: filtered sample %v not attenuated", c, v)
			}
		}
	}
}

func TestFormat(t *testing.T) {
	f := builtin.Format{}
	if f.Namespace() != "bats" {
		t.Fatalf("namespace = %q", f.Namespace())
	}
	for _, d := range f.Plugins() {
		t.Run(d.Name, func(t *testing.T) {
			if d.ID.Namespace() != "bats" {
				t.Fatalf("descriptor id %v outside the namespace", d.ID)
			}
			u, err := f.Instantiate(d.ID, 44100, 512)
			if err != nil {
				t.Fatalf("Instantiate(%v) failed: %v", d.ID, err)
			}
			if u.Ports() != d.Ports {
				t.Errorf("unit ports %+v, descriptor says %+v", u.Ports(), d.Ports)
			}
			if p, ok := u.(bats.Parametrized); ok && len(p.Params()) != len(d.Params) {
				t.Errorf("unit has %d params, descriptor %d", len(p.Params()), len(d.Params))
			}
		})
	}
	if _, err := f.Instantiate("bats:nope", 44100, 512); err == nil {
		t.Error("instantiating an unknown plugin succeeded")
	}
}
