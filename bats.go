package bats

import (
	"strings"

	"github.com/ossrs/go-oryx-lib/errors"
)

type (
	// TrackID identifies a track. Ids are allocated from a monotonically
	// increasing counter and never reused within a session.
	TrackID int

	// InstanceID identifies a live plugin instance, i.e. a PluginUnit owned by
	// exactly one track.
	InstanceID int

	// PluginID is a namespaced plugin descriptor id, e.g. "bats:toof" or
	// "lv2:http://drobilla.net/plugins/mda/EPiano". The namespace selects the
	// Format that can instantiate it; the rest is opaque to everything but
	// that Format.
	PluginID string

	// PluginDescriptor describes a plugin type (not an instance).
	PluginDescriptor struct {
		ID         PluginID
		Name       string
		Classes    []string
		Instrument bool
		Ports      Ports
		Params     []ParamInfo `yaml:",omitempty"`
	}

	// TrackInfo is the read-only view of a track, as published in snapshots.
	TrackInfo struct {
		ID              TrackID
		Volume          float32
		Enabled         bool
		Degraded        bool
		Faults          int
		PluginInstances []InstanceID
	}

	// PluginInstanceInfo is the read-only view of a plugin instance.
	PluginInstanceInfo struct {
		ID         InstanceID
		Track      TrackID
		Descriptor PluginID
		Faults     int
	}

	// Settings are the session wide settings and statistics of an engine.
	Settings struct {
		ClientName      string
		Session         string
		SampleRate      int
		BufferSize      int
		CPULoad         float64
		BPM             float64
		MetronomeVolume float32
		State           string
		Overruns        uint64
		DroppedResults  uint64
	}
)

var (
	ErrUnknownTrack              = errors.New("unknown track")
	ErrUnknownPluginInstance     = errors.New("unknown plugin instance")
	ErrPluginInstantiationFailed = errors.New("plugin instantiation failed")
	ErrChannelFull               = errors.New("command channel full")
	ErrEngineFaulted             = errors.New("engine faulted")
	ErrUnknownParam              = errors.New("unknown parameter")
)

// NewPluginID joins a namespace and a format specific name into a PluginID.
func NewPluginID(namespace, name string) PluginID {
	return PluginID(namespace + ":" + name)
}

// Namespace returns the part before the first colon, or "" if there is none.
func (p PluginID) Namespace() string {
	ns, _, ok := strings.Cut(string(p), ":")
	if !ok {
		return ""
	}
	return ns
}

// Name returns the format specific part of the id.
func (p PluginID) Name() string {
	_, name, ok := strings.Cut(string(p), ":")
	if !ok {
		return string(p)
	}
	return name
}

func (p PluginID) String() string {
	return string(p)
}

// Copy returns a deep copy, so the result can be handed to another goroutine.
func (t TrackInfo) Copy() TrackInfo {
	t.PluginInstances = append([]InstanceID(nil), t.PluginInstances...)
	return t
}
