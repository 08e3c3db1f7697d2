//go:build !cgo

package cmd

import (
	"github.com/vsariola/bats/midi"
)

func NewMidiContext(sampleRate int) midi.Context {
	// with no cgo, we cannot use MIDI, so return a null context
	return midi.NullContext{}
}
