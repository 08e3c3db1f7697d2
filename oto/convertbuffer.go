package oto

import (
	"encoding/binary"
	"math"

	"github.com/vsariola/bats"
)

const bytesPerFrame = 8

// Reader turns a render function into the byte stream oto plays. It always
// renders whole buffers of a fixed size, and hands out the bytes in whatever
// sizes the device asks for.
type Reader struct {
	render func(buf bats.AudioBuffer) error
	buf    bats.AudioBuffer
	bytes  []byte
	pos    int
}

func NewReader(render func(buf bats.AudioBuffer) error, frames int) *Reader {
	return &Reader{
		render: render,
		buf:    make(bats.AudioBuffer, frames),
		bytes:  make([]byte, 0, frames*bytesPerFrame),
	}
}

func (r *Reader) Read(p []byte) (n int, err error) {
	for n < len(p) {
		if r.pos >= len(r.bytes) {
			if err := r.render(r.buf); err != nil {
				return n, err
			}
			r.bytes = AppendFloat32LE(r.bytes[:0], r.buf)
			r.pos = 0
		}
		c := copy(p[n:], r.bytes[r.pos:])
		n += c
		r.pos += c
	}
	return n, nil
}

// AppendFloat32LE appends the interleaved frames of buf to dst as little
// endian 32-bit floats.
func AppendFloat32LE(dst []byte, buf bats.AudioBuffer) []byte {
	for _, f := range buf {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f[0]))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f[1]))
	}
	return dst
}
