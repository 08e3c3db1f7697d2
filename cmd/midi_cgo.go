//go:build cgo

package cmd

import (
	"github.com/vsariola/bats/midi"
	"github.com/vsariola/bats/midi/gomidi"
)

func NewMidiContext(sampleRate int) midi.Context {
	return gomidi.NewContext(sampleRate)
}
