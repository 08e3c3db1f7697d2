package bats

type (
	// AudioBuffer is an interleaved stereo buffer, one [left, right] pair per
	// frame.
	AudioBuffer [][2]float32

	// AudioContext is an audio backend. Play starts calling render from the
	// audio thread of the backend, once per buffer, until the returned
	// CloserWaiter is closed. render must fill the whole buffer.
	AudioContext interface {
		Play(render func(buf AudioBuffer) error) CloserWaiter
		Close() error
	}

	CloserWaiter interface {
		Close() error
		Wait()
	}
)

// Clear sets every frame of the buffer to silence.
func (b AudioBuffer) Clear() {
	clear(b)
}

// Peak returns the largest absolute sample value in both channels.
func (b AudioBuffer) Peak() (peak [2]float32) {
	for _, f := range b {
		for c := range f {
			v := f[c]
			if v < 0 {
				v = -v
			}
			if v > peak[c] {
				peak[c] = v
			}
		}
	}
	return
}
