package engine

import (
	"fmt"

	"github.com/vsariola/bats"
)

type (
	// Command is a mutation request for the Graph. It is plain data passed
	// by value through the CommandChannel, so that neither sending nor
	// draining it boxes anything. Kind tells which of the fields are used.
	Command struct {
		Kind     Kind
		Track    bats.TrackID
		Instance bats.InstanceID

		NewTrack    *Track    // MakeTrack
		NewInstance *Instance // InstantiatePlugin

		Volume  float32 // SetVolume, SetMetronomeVolume, MakeTrack
		Enabled bool    // SetEnabled, MakeTrack
		Param   int     // SetParam
		Value   float32 // SetParam
		BPM     float64 // SetBPM

		seq uint64 // set by CommandChannel.Push
	}

	Kind int

	// Result reports the outcome of applying one Command. Seq is the sequence
	// number the command got when it was pushed to the CommandChannel.
	Result struct {
		Seq      uint64
		Kind     Kind
		Track    bats.TrackID
		Instance bats.InstanceID
		Err      error

		// Undo is the compensating command; its Kind is KindNone when the
		// command cannot be undone.
		Undo Command

		// Released are the instances detached from the graph by the command.
		// They must be closed by the receiver, off the audio thread.
		Released []*Instance
	}
)

const (
	KindNone Kind = iota
	KindMakeTrack
	KindDeleteTrack
	KindInstantiatePlugin
	KindDeletePluginInstance
	KindSetVolume
	KindSetEnabled
	KindSetParam
	KindSetBPM
	KindSetMetronomeVolume
	// KindFault is never sent as a command: a Result of this kind notifies
	// that the engine has entered the Faulted state.
	KindFault
)

var kindNames = [...]string{
	KindNone:                 "None",
	KindMakeTrack:            "MakeTrack",
	KindDeleteTrack:          "DeleteTrack",
	KindInstantiatePlugin:    "InstantiatePlugin",
	KindDeletePluginInstance: "DeletePluginInstance",
	KindSetVolume:            "SetVolume",
	KindSetEnabled:           "SetEnabled",
	KindSetParam:             "SetParam",
	KindSetBPM:               "SetBPM",
	KindSetMetronomeVolume:   "SetMetronomeVolume",
	KindFault:                "Fault",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MakeTrack inserts t, which must have been built with NewTrack. The track
// belongs to the audio thread once the command is pushed; its volume and
// enabled flag are copied into the command for the sender to read.
func MakeTrack(t *Track) Command {
	return Command{Kind: KindMakeTrack, Track: t.ID, NewTrack: t, Volume: clampVolume(t.Volume), Enabled: t.Enabled}
}

func DeleteTrack(id bats.TrackID) Command {
	return Command{Kind: KindDeleteTrack, Track: id}
}

// InstantiatePlugin appends inst, built with NewInstance, to the chain of the
// track.
func InstantiatePlugin(track bats.TrackID, inst *Instance) Command {
	c := Command{Kind: KindInstantiatePlugin, Track: track, NewInstance: inst}
	if inst != nil {
		c.Instance = inst.ID
	}
	return c
}

func DeletePluginInstance(track bats.TrackID, instance bats.InstanceID) Command {
	return Command{Kind: KindDeletePluginInstance, Track: track, Instance: instance}
}

func SetVolume(track bats.TrackID, volume float32) Command {
	return Command{Kind: KindSetVolume, Track: track, Volume: volume}
}

func SetEnabled(track bats.TrackID, enabled bool) Command {
	return Command{Kind: KindSetEnabled, Track: track, Enabled: enabled}
}

func SetParam(track bats.TrackID, instance bats.InstanceID, param int, value float32) Command {
	return Command{Kind: KindSetParam, Track: track, Instance: instance, Param: param, Value: value}
}

func SetBPM(bpm float64) Command {
	return Command{Kind: KindSetBPM, BPM: bpm}
}

func SetMetronomeVolume(volume float32) Command {
	return Command{Kind: KindSetMetronomeVolume, Volume: volume}
}

func (c Command) String() string {
	switch c.Kind {
	case KindMakeTrack, KindDeleteTrack:
		return fmt.Sprintf("%v(track %d)", c.Kind, c.Track)
	case KindInstantiatePlugin, KindDeletePluginInstance:
		return fmt.Sprintf("%v(track %d, instance %d)", c.Kind, c.Track, c.Instance)
	case KindSetVolume:
		return fmt.Sprintf("%v(track %d, %g)", c.Kind, c.Track, c.Volume)
	case KindSetEnabled:
		return fmt.Sprintf("%v(track %d, %v)", c.Kind, c.Track, c.Enabled)
	case KindSetParam:
		return fmt.Sprintf("%v(track %d, instance %d, param %d, %g)", c.Kind, c.Track, c.Instance, c.Param, c.Value)
	case KindSetBPM:
		return fmt.Sprintf("%v(%g)", c.Kind, c.BPM)
	case KindSetMetronomeVolume:
		return fmt.Sprintf("%v(%g)", c.Kind, c.Volume)
	}
	return c.Kind.String()
}
