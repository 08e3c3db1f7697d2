// Package gomidi reads MIDI input with the RtMidi driver of gomidi. It needs
// cgo.
package gomidi

import (
	"context"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/vsariola/bats/midi"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	RTMIDIContext struct {
		*midi.Queue
		driver             *rtmididrv.Driver
		currentIn          drivers.In
		stop               func()
		inputDevices       []RTMIDIDevice
		devicesInitialized bool
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}
)

// NewContext opens the driver. Events are timed at sampleRate. If the driver
// is not available the context has no inputs.
func NewContext(sampleRate int) *RTMIDIContext {
	m := RTMIDIContext{Queue: midi.NewQueue(sampleRate)}
	var err error
	if m.driver, err = rtmididrv.New(); err != nil {
		logger.Wf(context.Background(), "MIDI driver unavailable: %v", err)
		m.driver = nil
	}
	return &m
}

func (m *RTMIDIContext) Inputs(yield func(midi.InputDevice) bool) {
	if m.devicesInitialized {
		for _, device := range m.inputDevices {
			if !yield(device) {
				break
			}
		}
		return
	}
	if m.driver == nil {
		return
	}
	ins, err := m.driver.Ins()
	if err != nil {
		return
	}
	for i := 0; i < len(ins); i++ {
		m.inputDevices = append(m.inputDevices, RTMIDIDevice{context: m, in: ins[i]})
	}
	m.devicesInitialized = true
	for _, device := range m.inputDevices {
		if !yield(device) {
			break
		}
	}
}

func (m *RTMIDIContext) Support() midi.Support {
	if m.driver == nil {
		return midi.SupportNoDriver
	}
	return midi.SupportAvailable
}

// Open opens the input, closing the one open before.
func (d RTMIDIDevice) Open() error {
	c := d.context
	if c.currentIn == d.in {
		return nil
	}
	if c.driver == nil {
		return errors.New("no driver available")
	}
	if c.HasDeviceOpen() {
		c.closeInput()
	}
	if err := d.in.Open(); err != nil {
		return errors.Wrapf(err, "opening MIDI input %v failed", d.in)
	}
	stop, err := gomidi.ListenTo(d.in, c.handleMessage)
	if err != nil {
		d.in.Close()
		return errors.Wrapf(err, "listening to MIDI input %v failed", d.in)
	}
	c.currentIn, c.stop = d.in, stop
	return nil
}

func (d RTMIDIDevice) Close() error {
	if d.context.currentIn != d.in {
		return nil
	}
	return d.context.closeInput()
}

func (d RTMIDIDevice) IsOpen() bool {
	return d.in.IsOpen()
}

func (d RTMIDIDevice) String() string {
	return d.in.String()
}

func (c *RTMIDIContext) closeInput() error {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	err := c.currentIn.Close()
	c.currentIn = nil
	return err
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	if c.HasDeviceOpen() {
		c.closeInput()
	}
	c.driver.Close()
}

func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

func (c *RTMIDIContext) handleMessage(msg gomidi.Message, timestampms int32) {
	c.Push(timestampms, msg)
}
