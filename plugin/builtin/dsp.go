package builtin

import "math"

type (
	// envelopeParams are the per sample increments of an ADSR envelope,
	// precomputed for a sample rate.
	envelopeParams struct {
		attackDelta  float32
		decayDelta   float32
		releaseDelta float32
		sustain      float32
	}

	envelope struct {
		stage int
		amp   float32
	}

	// sawtooth is a naive, non band limited sawtooth in [-1, 1].
	sawtooth struct {
		amp   float32
		delta float32
	}

	// moogFilter is a four stage Moog ladder lowpass filter.
	moogFilter struct {
		cutoff, resonance float32
		p, k, t1, t2      float32
		stage, delay      [4]float32
	}
)

const (
	envStateAttack = iota
	envStateDecay
	envStateSustain
	envStateRelease
	envStateDone
)

const (
	DefaultCutoff    = 8000
	DefaultResonance = 0.1
)

func newEnvelopeParams(sampleRate int, attack, decay, sustain, release float32) envelopeParams {
	sr := float32(sampleRate)
	return envelopeParams{
		attackDelta:  1 / (sr * attack),
		decayDelta:   -(1 - sustain) / (sr * decay),
		releaseDelta: -sustain / (sr * release),
		sustain:      sustain,
	}
}

func (e *envelope) next(p *envelopeParams) float32 {
	switch e.stage {
	case envStateAttack:
		e.amp += p.attackDelta
		if e.amp >= 1 {
			e.amp = 1
			e.stage = envStateDecay
		}
	case envStateDecay:
		e.amp += p.decayDelta
		if e.amp <= p.sustain {
			e.amp = p.sustain
			e.stage = envStateSustain
		}
	case envStateRelease:
		e.amp += p.releaseDelta
		if e.amp < 0 {
			e.amp = 0
			e.stage = envStateDone
		}
	}
	return e.amp
}

func (e *envelope) release(p *envelopeParams) {
	e.amp = min(e.amp, p.sustain)
	e.stage = envStateRelease
}

func (e *envelope) active() bool {
	return e.stage != envStateDone
}

func (s *sawtooth) setFrequency(sampleRate int, freq float32) {
	s.delta = 2 * freq / float32(sampleRate)
}

func (s *sawtooth) next() float32 {
	s.amp += s.delta
	if s.amp > 1 {
		s.amp -= 2
	}
	return s.amp
}

func newMoogFilter(sampleRate int) moogFilter {
	var f moogFilter
	f.set(sampleRate, DefaultCutoff, DefaultResonance)
	return f
}

func (f *moogFilter) set(sampleRate int, cutoff, resonance float32) {
	f.cutoff = 2 * cutoff / float32(sampleRate)
	f.p = f.cutoff * (1.8 - 0.8*f.cutoff)
	f.k = 2*float32(math.Sin(float64(f.cutoff)*math.Pi*0.5)) - 1
	f.t1 = (1 - f.p) * 1.386249
	f.t2 = 12 + f.t1*f.t1
	f.resonance = resonance * (f.t2 + 6*f.t1) / (f.t2 - 6*f.t1)
}

func (f *moogFilter) process(sample float32) float32 {
	x := sample - f.resonance*f.stage[3]
	f.stage[0] = clip(x*f.p + f.delay[0]*f.p - f.k*f.stage[0])
	f.stage[1] = f.stage[0]*f.p + f.delay[1]*f.p - f.k*clip(f.stage[1])
	f.stage[2] = f.stage[1]*f.p + f.delay[2]*f.p - f.k*clip(f.stage[2])
	f.stage[3] = f.stage[2]*f.p + f.delay[3]*f.p - f.k*clip(f.stage[3])
	f.stage[3] -= f.stage[3] * f.stage[3] * f.stage[3] / 6
	f.stage[3] = clip(f.stage[3])
	f.delay[0] = x
	f.delay[1] = f.stage[0]
	f.delay[2] = f.stage[1]
	f.delay[3] = f.stage[2]
	return f.stage[3]
}

func (f *moogFilter) reset() {
	f.stage = [4]float32{}
	f.delay = [4]float32{}
}

func clip(value float32) float32 {
	if value < -1 {
		return -1
	}
	if value > 1 {
		return 1
	}
	return value
}

func clamp(value, lo, hi float32) float32 {
	if value != value || value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// noteFrequency is the equal tempered frequency of a MIDI note, A4 = 440 Hz.
func noteFrequency(note byte) float32 {
	return float32(440 * math.Exp2((float64(note)-69)/12))
}

func boolParam(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
