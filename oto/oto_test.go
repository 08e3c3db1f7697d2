package oto_test

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/vsariola/bats"
	"github.com/vsariola/bats/oto"
)

func TestReaderRendersWholeBuffers(t *testing.T) {
	next := float32(0)
	calls := 0
	render := func(buf bats.AudioBuffer) error {
		calls++
		if len(buf) != 3 {
			t.Fatalf("render got %d frames, want 3", len(buf))
		}
		for i := range buf {
			buf[i] = [2]float32{next, -next}
			next++
		}
		return nil
	}
	r := oto.NewReader(render, 3)
	var got []byte
	for _, size := range []int{5, 8, 1, 30, 36} {
		p := make([]byte, size)
		n, err := r.Read(p)
		if err != nil || n != size {
			t.Fatalf("Read(%d) = %d, %v", size, n, err)
		}
		got = append(got, p...)
	}
	for i := 0; i+8 <= len(got); i += 8 {
		left := math.Float32frombits(binary.LittleEndian.Uint32(got[i:]))
		right := math.Float32frombits(binary.LittleEndian.Uint32(got[i+4:]))
		if want := float32(i / 8); left != want || right != -want {
			t.Fatalf("frame %d = [%v %v], want [%v %v]", i/8, left, right, want, -want)
		}
	}
	if want := (len(got) + 23) / 24; calls != want {
		t.Errorf("render called %d times, want %d", calls, want)
	}
}

func TestReaderStopsOnRenderError(t *testing.T) {
	fail := errors.New("device gone")
	r := oto.NewReader(func(buf bats.AudioBuffer) error { return fail }, 4)
	if _, err := io.ReadFull(r, make([]byte, 16)); err != fail {
		t.Errorf("Read returned %v, want the render error", err)
	}
}

func TestAppendFloat32LE(t *testing.T) {
	b := oto.AppendFloat32LE(nil, bats.AudioBuffer{{1, -0.5}})
	want := []byte{0, 0, 0x80, 0x3f, 0, 0, 0, 0xbf}
	if string(b) != string(want) {
		t.Errorf("got % x, want % x", b, want)
	}
}
