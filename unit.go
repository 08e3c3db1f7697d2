package bats

type (
	// Unit is a single instantiated plugin: the processing contract every
	// plugin format adapter implements.
	//
	// Process is called on the audio thread. in has Ports.AudioIn channels and
	// out has Ports.AudioOut channels, all of exactly the same length (the
	// frame count of the call). events are the MIDI events of the call, sorted
	// by frame. Process must not block, and should not allocate. A returned
	// error is treated as a fault of the unit for the current buffer: its
	// output is replaced with silence.
	//
	// Close releases the resources of the unit. It is never called on the
	// audio thread.
	Unit interface {
		Ports() Ports
		Process(in, out [][]float32, events []MIDIEvent) error
		Close() error
	}

	// Parametrized is implemented by units that expose parameters. SetParam
	// is called on the audio thread and should clamp the value to the range
	// of the parameter.
	Parametrized interface {
		Params() []ParamInfo
		Param(id int) float32
		SetParam(id int, value float32)
	}

	// Ports is the fixed port layout of a unit, decided at instantiation.
	Ports struct {
		AudioIn  int
		AudioOut int
		MIDIIn   bool
	}

	ParamInfo struct {
		ID      int
		Name    string
		Default float32
		Min     float32
		Max     float32
	}

	// Format is a plugin format adapter. All plugins of a format share the
	// namespace prefix of their PluginIDs.
	Format interface {
		Namespace() string
		Plugins() []PluginDescriptor
		Instantiate(id PluginID, sampleRate, bufferSize int) (Unit, error)
	}

	// MIDIEvent is a short (at most three byte) MIDI message. Frame is
	// relative to the start of the current buffer.
	MIDIEvent struct {
		Frame int
		Data  [3]byte
	}
)

const (
	midiNoteOff       = 0x80
	midiNoteOn        = 0x90
	midiControlChange = 0xB0
	midiSystemReset   = 0xFF
	midiAllNotesOff   = 123
)

func NoteOnEvent(frame int, channel, note, velocity byte) MIDIEvent {
	return MIDIEvent{Frame: frame, Data: [3]byte{midiNoteOn | channel&0x0F, note & 0x7F, velocity & 0x7F}}
}

func NoteOffEvent(frame int, channel, note byte) MIDIEvent {
	return MIDIEvent{Frame: frame, Data: [3]byte{midiNoteOff | channel&0x0F, note & 0x7F, 0}}
}

func ResetEvent(frame int) MIDIEvent {
	return MIDIEvent{Frame: frame, Data: [3]byte{midiSystemReset}}
}

// NoteOn reports the note and velocity of a note on message. A note on with
// zero velocity is a note off, and is not reported here.
func (e MIDIEvent) NoteOn() (note, velocity byte, ok bool) {
	if e.Data[0]&0xF0 != midiNoteOn || e.Data[2] == 0 {
		return 0, 0, false
	}
	return e.Data[1], e.Data[2], true
}

func (e MIDIEvent) NoteOff() (note byte, ok bool) {
	switch {
	case e.Data[0]&0xF0 == midiNoteOff:
		return e.Data[1], true
	case e.Data[0]&0xF0 == midiNoteOn && e.Data[2] == 0:
		return e.Data[1], true
	}
	return 0, false
}

// Reset reports whether the event is a system reset or an all notes off
// control change.
func (e MIDIEvent) Reset() bool {
	if e.Data[0] == midiSystemReset {
		return true
	}
	return e.Data[0]&0xF0 == midiControlChange && e.Data[1] == midiAllNotesOff
}
