package builtin

import "github.com/vsariola/bats"

type (
	// Toof is a small sawtooth synthesizer with an ADSR envelope per voice and
	// a Moog filter over the mix of the voices. In mono mode a new note
	// retriggers the playing voice.
	Toof struct {
		sampleRate   int
		envelope     envelopeParams
		filter       moogFilter
		cutoff       float32
		resonance    float32
		bypassFilter bool
		polyphonic   bool
		voices       [MaxToofVoices]toofVoice
		numVoices    int
	}

	toofVoice struct {
		note     byte
		wave     sawtooth
		envelope envelope
	}
)

const MaxToofVoices = 16

const (
	ToofBypassFilter = iota + 1
	ToofCutoff
	ToofResonance
	ToofPolyphonic
)

var toofParams = []bats.ParamInfo{
	{ID: ToofBypassFilter, Name: "bypass filter", Default: 0, Min: 0, Max: 1},
	{ID: ToofCutoff, Name: "filter cutoff", Default: DefaultCutoff, Min: 50, Max: 9000},
	{ID: ToofResonance, Name: "filter resonance", Default: DefaultResonance, Min: 0.01, Max: 0.7},
	{ID: ToofPolyphonic, Name: "polyphonic", Default: 0, Min: 0, Max: 1},
}

func NewToof(sampleRate int) *Toof {
	return &Toof{
		sampleRate: sampleRate,
		envelope:   newEnvelopeParams(sampleRate, 0.005, 0.08, 0.4, 0.05),
		filter:     newMoogFilter(sampleRate),
		cutoff:     DefaultCutoff,
		resonance:  DefaultResonance,
	}
}

func (t *Toof) Ports() bats.Ports { return bats.Ports{AudioOut: 2, MIDIIn: true} }

func (t *Toof) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	left, right := out[0], out[1]
	for i := range left {
		for len(events) > 0 && events[0].Frame <= i {
			t.handle(events[0])
			events = events[1:]
		}
		var v float32
		for j := 0; j < t.numVoices; j++ {
			voice := &t.voices[j]
			v += voice.wave.next() * voice.envelope.next(&t.envelope)
		}
		t.retain()
		if !t.bypassFilter {
			v = t.filter.process(v)
		}
		left[i], right[i] = v, v
	}
	for _, ev := range events {
		t.handle(ev)
	}
	return nil
}

func (t *Toof) handle(ev bats.MIDIEvent) {
	if ev.Reset() {
		t.numVoices = 0
		return
	}
	if note, ok := ev.NoteOff(); ok {
		for j := 0; j < t.numVoices; j++ {
			if t.voices[j].note == note {
				t.voices[j].envelope.release(&t.envelope)
			}
		}
		return
	}
	note, _, ok := ev.NoteOn()
	if !ok {
		return
	}
	if !t.polyphonic && t.numVoices > 0 {
		t.voices[0].set(t.sampleRate, note)
		return
	}
	if t.numVoices == MaxToofVoices {
		copy(t.voices[:], t.voices[1:])
		t.numVoices--
	}
	t.voices[t.numVoices] = toofVoice{}
	t.voices[t.numVoices].set(t.sampleRate, note)
	t.numVoices++
}

// retain drops the voices whose envelope has finished, keeping the order of
// the rest.
func (t *Toof) retain() {
	n := 0
	for j := 0; j < t.numVoices; j++ {
		if t.voices[j].envelope.active() {
			t.voices[n] = t.voices[j]
			n++
		}
	}
	t.numVoices = n
}

func (v *toofVoice) set(sampleRate int, note byte) {
	v.note = note
	v.wave.setFrequency(sampleRate, noteFrequency(note))
	v.envelope = envelope{}
}

func (t *Toof) Close() error { return nil }

func (t *Toof) Params() []bats.ParamInfo { return toofParams }

func (t *Toof) Param(id int) float32 {
	switch id {
	case ToofBypassFilter:
		return boolParam(t.bypassFilter)
	case ToofCutoff:
		return t.cutoff
	case ToofResonance:
		return t.resonance
	case ToofPolyphonic:
		return boolParam(t.polyphonic)
	}
	return 0
}

func (t *Toof) SetParam(id int, value float32) {
	switch id {
	case ToofBypassFilter:
		t.bypassFilter = value >= 0.5
	case ToofCutoff:
		t.cutoff = clamp(value, toofParams[1].Min, toofParams[1].Max)
		t.filter.set(t.sampleRate, t.cutoff, t.resonance)
	case ToofResonance:
		t.resonance = clamp(value, toofParams[2].Min, toofParams[2].Max)
		t.filter.set(t.sampleRate, t.cutoff, t.resonance)
	case ToofPolyphonic:
		t.polyphonic = value >= 0.5
	}
}

// Voices is the number of sounding voices.
func (t *Toof) Voices() int {
	return t.numVoices
}
