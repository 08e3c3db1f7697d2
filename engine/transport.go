package engine

// Transport keeps the musical position in beats and plays a metronome click
// at every beat boundary.
type Transport struct {
	sampleRate int
	bpm        float64
	volume     float32
	position   float64 // in beats
	perFrame   float64
	last       float64
	started    bool
}

const (
	DefaultBPM = 120
	MinBPM     = 10
	MaxBPM     = 999
)

func NewTransport(sampleRate int, bpm float64) Transport {
	t := Transport{sampleRate: sampleRate}
	t.SetBPM(bpm)
	return t
}

// SetBPM sets the tempo, clamped to [MinBPM, MaxBPM].
func (t *Transport) SetBPM(bpm float64) {
	if bpm != bpm || bpm < MinBPM {
		bpm = MinBPM
	}
	if bpm > MaxBPM {
		bpm = MaxBPM
	}
	t.bpm = bpm
	if t.sampleRate > 0 {
		t.perFrame = bpm / 60 / float64(t.sampleRate)
	}
}

// SetVolume sets the click amplitude, clamped to [0, 1].
func (t *Transport) SetVolume(v float32) {
	if v != v || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	t.volume = v
}

func (t *Transport) BPM() float64 { return t.bpm }
func (t *Transport) Volume() float32 { return t.volume }
func (t *Transport) Position() float64 { return t.position }

// process advances the transport by len(left) frames, adding a click of the
// metronome volume to every frame that starts a new beat. The very first
// frame ever processed counts as a beat start.
func (t *Transport) process(left, right []float32) {
	for i := range left {
		p := t.position
		if !t.started || int64(p) != int64(t.last) {
			left[i] += t.volume
			right[i] += t.volume
			t.started = true
		}
		t.last = p
		t.position += t.perFrame
	}
}
