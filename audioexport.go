package bats

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ossrs/go-oryx-lib/errors"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// Wav encodes the buffer as a stereo .wav file into w. If pcm16 is true the
// samples are written as 16-bit integers, otherwise as 32-bit floats.
func (b AudioBuffer) Wav(w io.WriteSeeker, sampleRate int, pcm16 bool) error {
	bitDepth, format := 32, wavFormatFloat
	if pcm16 {
		bitDepth, format = 16, wavFormatPCM
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 2, format)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           make([]int, 0, len(b)*2),
		SourceBitDepth: bitDepth,
	}
	for _, f := range b {
		for _, v := range f {
			if pcm16 {
				buf.Data = append(buf.Data, int(int16Sample(v)))
			} else {
				buf.Data = append(buf.Data, int(int32(math.Float32bits(v))))
			}
		}
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrapf(err, "write %v frames", len(b))
	}
	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "close wav encoder")
	}
	return nil
}

// Raw returns the buffer as raw little-endian interleaved samples.
func (b AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	if pcm16 {
		int16data := make([]int16, 0, len(b)*2)
		for _, f := range b {
			int16data = append(int16data, int16Sample(f[0]), int16Sample(f[1]))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, []([2]float32)(b))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not binary write data to binary buffer")
	}
	return buf.Bytes(), nil
}

func int16Sample(v float32) int16 {
	x := int(v * math.MaxInt16)
	if x < math.MinInt16 {
		return math.MinInt16
	}
	if x > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(x)
}
