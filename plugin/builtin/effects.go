package builtin

import (
	"github.com/viterin/vek/vek32"
	"github.com/vsariola/bats"
)

type (
	// Moog is a stereo Moog ladder filter effect.
	Moog struct {
		sampleRate int
		cutoff     float32
		resonance  float32
		filters    [2]moogFilter
	}

	// Gain scales a stereo signal.
	Gain struct {
		gain float32
	}

	// Empty outputs silence. It is the placeholder of a track slot.
	Empty struct{}
)

const (
	MoogCutoff = iota + 1
	MoogResonance
)

const GainGain = 1

var (
	moogParams = []bats.ParamInfo{
		{ID: MoogCutoff, Name: "cutoff", Default: DefaultCutoff, Min: 50, Max: 9000},
		{ID: MoogResonance, Name: "resonance", Default: DefaultResonance, Min: 0.01, Max: 0.7},
	}
	gainParams = []bats.ParamInfo{
		{ID: GainGain, Name: "gain", Default: 1, Min: 0, Max: 2},
	}
)

func NewMoog(sampleRate int) *Moog {
	m := &Moog{sampleRate: sampleRate, cutoff: DefaultCutoff, resonance: DefaultResonance}
	m.filters[0] = newMoogFilter(sampleRate)
	m.filters[1] = newMoogFilter(sampleRate)
	return m
}

func (m *Moog) Ports() bats.Ports { return bats.Ports{AudioIn: 2, AudioOut: 2, MIDIIn: true} }

func (m *Moog) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	for _, ev := range events {
		if ev.Reset() {
			m.filters[0].reset()
			m.filters[1].reset()
		}
	}
	for c := range out {
		f := &m.filters[c]
		for i, v := range in[c] {
			out[c][i] = f.process(v)
		}
	}
	return nil
}

func (m *Moog) Close() error { return nil }

func (m *Moog) Params() []bats.ParamInfo { return moogParams }

func (m *Moog) Param(id int) float32 {
	switch id {
	case MoogCutoff:
		return m.cutoff
	case MoogResonance:
		return m.resonance
	}
	return 0
}

func (m *Moog) SetParam(id int, value float32) {
	switch id {
	case MoogCutoff:
		m.cutoff = clamp(value, moogParams[0].Min, moogParams[0].Max)
	case MoogResonance:
		m.resonance = clamp(value, moogParams[1].Min, moogParams[1].Max)
	default:
		return
	}
	m.filters[0].set(m.sampleRate, m.cutoff, m.resonance)
	m.filters[1].set(m.sampleRate, m.cutoff, m.resonance)
}

func NewGain() *Gain {
	return &Gain{gain: 1}
}

func (g *Gain) Ports() bats.Ports { return bats.Ports{AudioIn: 2, AudioOut: 2} }

func (g *Gain) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	for c := range out {
		vek32.MulNumber_Into(out[c], in[c], g.gain)
	}
	return nil
}

func (g *Gain) Close() error { return nil }

func (g *Gain) Params() []bats.ParamInfo { return gainParams }

func (g *Gain) Param(id int) float32 {
	if id == GainGain {
		return g.gain
	}
	return 0
}

func (g *Gain) SetParam(id int, value float32) {
	if id == GainGain {
		g.gain = clamp(value, gainParams[0].Min, gainParams[0].Max)
	}
}

func (Empty) Ports() bats.Ports { return bats.Ports{AudioOut: 2, MIDIIn: true} }

func (Empty) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	for _, ch := range out {
		clear(ch)
	}
	return nil
}

func (Empty) Close() error { return nil }
