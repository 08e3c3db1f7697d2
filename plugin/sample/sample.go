// Package sample implements a one-shot sampler plugin format over the .wav
// files of a directory.
package sample

import (
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
)

// Sample is decoded stereo audio at a fixed sample rate. It is immutable and
// may be shared by any number of samplers.
type Sample struct {
	SampleRate int
	Frames     bats.AudioBuffer
}

const wavFormatFloat = 3

// FromMono duplicates data to both channels.
func FromMono(sampleRate int, data []float32) *Sample {
	s := &Sample{SampleRate: sampleRate, Frames: make(bats.AudioBuffer, len(data))}
	for i, v := range data {
		s.Frames[i] = [2]float32{v, v}
	}
	return s
}

// Load decodes a .wav file.
func Load(path string) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v", path)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %v", path)
	}
	return s, nil
}

// Decode reads integer PCM (8 to 32 bits) or 32-bit float .wav data. Mono
// data is duplicated to both channels; only the first two channels of data
// with more channels are kept.
func Decode(r io.ReadSeeker) (*Sample, error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrapf(err, "read pcm")
	}
	if buf == nil {
		return nil, errors.New("invalid wav")
	}
	chans := int(dec.NumChans)
	if chans <= 0 {
		return nil, errors.Errorf("invalid channel count %d", chans)
	}
	var conv func(v int) float32
	switch {
	case dec.WavAudioFormat == wavFormatFloat && dec.BitDepth == 32:
		conv = func(v int) float32 { return math.Float32frombits(uint32(int32(v))) }
	case dec.WavAudioFormat == wavFormatFloat:
		return nil, errors.Errorf("unsupported float bit depth %d", dec.BitDepth)
	case dec.BitDepth == 8:
		conv = func(v int) float32 { return float32(v-128) / 128 }
	case dec.BitDepth == 16 || dec.BitDepth == 24 || dec.BitDepth == 32:
		scale := float32(int64(1) << (dec.BitDepth - 1))
		conv = func(v int) float32 { return float32(v) / scale }
	default:
		return nil, errors.Errorf("unsupported bit depth %d", dec.BitDepth)
	}
	frames := len(buf.Data) / chans
	s := &Sample{SampleRate: int(dec.SampleRate), Frames: make(bats.AudioBuffer, frames)}
	for i := range s.Frames {
		l := conv(buf.Data[i*chans])
		r := l
		if chans > 1 {
			r = conv(buf.Data[i*chans+1])
		}
		s.Frames[i] = [2]float32{l, r}
	}
	return s, nil
}

// Resample returns the sample converted to sampleRate with linear
// interpolation. The sample itself is returned if the rates already match.
func (s *Sample) Resample(sampleRate int) *Sample {
	if sampleRate == s.SampleRate || s.SampleRate <= 0 || len(s.Frames) == 0 {
		return s
	}
	ratio := float64(s.SampleRate) / float64(sampleRate)
	n := int(float64(len(s.Frames)) / ratio)
	ret := &Sample{SampleRate: sampleRate, Frames: make(bats.AudioBuffer, n)}
	last := len(s.Frames) - 1
	for i := range ret.Frames {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			ret.Frames[i] = s.Frames[last]
			continue
		}
		frac := float32(pos - float64(j))
		a, b := s.Frames[j], s.Frames[j+1]
		ret.Frames[i] = [2]float32{a[0] + (b[0]-a[0])*frac, a[1] + (b[1]-a[1])*frac}
	}
	return ret
}
