package sample

import "github.com/vsariola/bats"

// Sampler plays a sample once from the start on every note on. A note off or
// a reset stops it.
type Sampler struct {
	sample *Sample
	pos    int
}

func NewSampler(s *Sample) *Sampler {
	return &Sampler{sample: s, pos: len(s.Frames)}
}

func (s *Sampler) Ports() bats.Ports { return bats.Ports{AudioOut: 2, MIDIIn: true} }

func (s *Sampler) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	left, right := out[0], out[1]
	frames := min(len(left), len(right))
	data := s.sample.Frames
	for i := 0; i < frames; i++ {
		for len(events) > 0 && events[0].Frame <= i {
			s.handle(events[0])
			events = events[1:]
		}
		if s.pos < len(data) {
			left[i], right[i] = data[s.pos][0], data[s.pos][1]
			s.pos++
		} else {
			left[i], right[i] = 0, 0
		}
	}
	for _, ev := range events {
		s.handle(ev)
	}
	return nil
}

func (s *Sampler) handle(ev bats.MIDIEvent) {
	if _, _, ok := ev.NoteOn(); ok {
		s.pos = 0
		return
	}
	if _, ok := ev.NoteOff(); ok || ev.Reset() {
		s.pos = len(s.sample.Frames)
	}
}

// Playing reports whether the sample is being played.
func (s *Sampler) Playing() bool {
	return s.pos < len(s.sample.Frames)
}

func (s *Sampler) Close() error { return nil }
